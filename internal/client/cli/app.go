// Package cli is the rollcall command line: one command per invocation,
// backed by the client flows and a file token store.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"rollcall-service/internal/client/api"
	"rollcall-service/internal/client/flows"
	"rollcall-service/internal/domain/checkin"
	"rollcall-service/internal/domain/event"
	"rollcall-service/internal/domain/leaderboard"
	"rollcall-service/internal/domain/user"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

var errUsage = errors.New("usage")

// Flows is what the commands need from flows.Flows
type Flows interface {
	Login(ctx context.Context, identifier, password string) error
	Register(ctx context.Context, in flows.RegisterInput) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*user.Profile, error)
	Events(ctx context.Context, mine bool) ([]event.Event, error)
	CheckIn(ctx context.Context, eventID int64, note, mood string) (*checkin.Checkin, error)
	Streaks(ctx context.Context) ([]checkin.StreakSummary, error)
	Leaderboard(ctx context.Context, eventID int64, metric string, limit int) ([]leaderboard.Entry, error)
}

type App struct {
	flows  Flows
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, args []string) error
}

func NewApp(f Flows, in io.Reader, out, errOut io.Writer) *App {
	return &App{flows: f, in: bufio.NewReader(in), out: out, errOut: errOut}
}

// codeInvalidCredentials marks a 401 for a rejected password, not an ended session
const codeInvalidCredentials = "INVALID_CREDENTIALS"

// LoginHint is the unauthorized handler for the terminal: it tells the user
// how to get a new session. A rejected login is reported by the command itself.
func LoginHint(w io.Writer) api.UnauthorizedHandler {
	return func(_ context.Context, loginURL string, cause *api.Error) {
		if cause != nil && cause.Code == codeInvalidCredentials {
			return
		}
		fmt.Fprintf(w, "Your session has ended. Run `rollcall login` to sign in again (%s).\n", loginURL)
	}
}

func (a *App) commands() map[string]command {
	return map[string]command{
		"login":       {"login [username-or-email]", a.login},
		"register":    {"register", a.register},
		"me":          {"me", a.me},
		"logout":      {"logout", a.logout},
		"events":      {"events [-mine]", a.events},
		"checkin":     {"checkin [-mood m] <event-id> [note]", a.checkin},
		"streaks":     {"streaks", a.streaks},
		"leaderboard": {"leaderboard [-event id] [-metric m] [-limit n]", a.leaderboard},
	}
}

// Run executes args[0] and returns the process exit code
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage(a.out)
		if len(args) == 0 {
			return ExitUsage
		}
		return ExitOK
	}

	cmd, ok := a.commands()[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n\n", args[0])
		a.usage(a.errOut)
		return ExitUsage
	}

	err := cmd.run(ctx, args[1:])
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		fmt.Fprintf(a.errOut, "usage: rollcall %s\n", cmd.usage)
		return ExitUsage
	default:
		fmt.Fprintf(a.errOut, "error: %s\n", message(err))
		return ExitError
	}
}

func (a *App) usage(w io.Writer) {
	fmt.Fprintln(w, "usage: rollcall <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	for _, name := range []string{"register", "login", "logout", "me", "events", "checkin", "streaks", "leaderboard"} {
		fmt.Fprintf(w, "  %s\n", a.commands()[name].usage)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// message prefers the server's text over the wrapped chain
func message(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, errUsage
	}
	return id, nil
}
