package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"rollcall-service/internal/client/flows"
)

// ========== Session ==========

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return errUsage
	}

	var identifier string
	if len(args) == 1 {
		identifier = args[0]
	} else {
		var err error
		if identifier, err = prompt(a.in, a.out, "Username or email"); err != nil {
			return err
		}
	}
	if identifier == "" {
		return errUsage
	}

	password, err := promptPassword(a.in, a.out, "Password")
	if err != nil {
		return err
	}
	if err := a.flows.Login(ctx, identifier, password); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s\n", identifier)
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}

	var in flows.RegisterInput
	fields := []struct {
		label string
		dst   *string
	}{
		{"Username", &in.Username},
		{"Email", &in.Email},
		{"Full name", &in.FullName},
	}
	for _, f := range fields {
		v, err := prompt(a.in, a.out, f.label)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	var err error
	if in.Password, err = promptPassword(a.in, a.out, "Password"); err != nil {
		return err
	}
	if in.ConfirmPassword, err = promptPassword(a.in, a.out, "Confirm password"); err != nil {
		return err
	}

	if err := a.flows.Register(ctx, in); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s\n", in.Username)
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	if err := a.flows.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) me(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	p, err := a.flows.Me(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Username\t%s\n", p.Username)
	fmt.Fprintf(tw, "Name\t%s\n", p.Name)
	fmt.Fprintf(tw, "Email\t%s\n", p.Email)
	fmt.Fprintf(tw, "Check-ins\t%d\n", p.TotalCheckins)
	fmt.Fprintf(tw, "Streak\t%d (best %d)\n", p.CurrentStreak, p.LongestStreak)
	if len(p.Achievements) > 0 {
		fmt.Fprintf(tw, "Achievements\t%s\n", strings.Join(p.Achievements, ", "))
	}
	return tw.Flush()
}

// ========== Events & Check-ins ==========

func (a *App) events(ctx context.Context, args []string) error {
	fs := a.flagSet("events")
	mine := fs.Bool("mine", false, "only events you take part in")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 {
		return errUsage
	}

	list, err := a.flows.Events(ctx, *mine)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No events")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tPARTICIPANTS\tCHECK-INS")
	for _, e := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\n", e.ID, e.Title, e.Category, e.ParticipantCount, e.TotalCheckins)
	}
	return tw.Flush()
}

func (a *App) checkin(ctx context.Context, args []string) error {
	fs := a.flagSet("checkin")
	mood := fs.String("mood", "", "how it went")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	eventID, err := parseID(fs.Arg(0))
	if err != nil {
		return err
	}
	note := strings.Join(fs.Args()[1:], " ")

	c, err := a.flows.CheckIn(ctx, eventID, note, *mood)
	if err != nil {
		return err
	}

	suffix := ""
	if c.UsedFreeze {
		suffix = " (a streak freeze covered the gap)"
	}
	fmt.Fprintf(a.out, "Checked in to event %d. Streak: %d%s\n", c.EventID, c.StreakCount, suffix)
	return nil
}

func (a *App) streaks(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	list, err := a.flows.Streaks(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No streaks yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tCURRENT\tLONGEST\tTOTAL\tLAST")
	for _, s := range list {
		name := s.EventTitle
		if name == "" {
			name = fmt.Sprintf("#%d", s.EventID)
		}
		last := "-"
		if s.LastCheckDate != nil {
			last = s.LastCheckDate.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", name, s.CurrentStreak, s.LongestStreak, s.TotalCheckins, last)
	}
	return tw.Flush()
}

func (a *App) leaderboard(ctx context.Context, args []string) error {
	fs := a.flagSet("leaderboard")
	eventID := fs.Int64("event", 0, "rank one event's participants")
	metric := fs.String("metric", "", "current_streak, longest_streak or total_checkins")
	limit := fs.Int("limit", 0, "number of rows")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 || *eventID < 0 || *limit < 0 {
		return errUsage
	}

	entries, err := a.flows.Leaderboard(ctx, *eventID, *metric, *limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "Nobody on the board yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tUSER\tCURRENT\tLONGEST\tTOTAL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", e.Rank, e.Username, e.CurrentStreak, e.LongestStreak, e.TotalCheckins)
	}
	return tw.Flush()
}
