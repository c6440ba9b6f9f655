package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"rollcall-service/internal/client/api"
	"rollcall-service/internal/client/flows"
	"rollcall-service/internal/domain/checkin"
	"rollcall-service/internal/domain/event"
	"rollcall-service/internal/domain/leaderboard"
	"rollcall-service/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlows struct {
	loginID      string
	loginPW      string
	registered   flows.RegisterInput
	loggedOut    bool
	mine         bool
	checkinEvent int64
	checkinNote  string
	checkinMood  string
	boardEvent   int64
	boardMetric  string
	boardLimit   int
	err          error
}

func (f *fakeFlows) Login(_ context.Context, id, pw string) error {
	f.loginID, f.loginPW = id, pw
	return f.err
}

func (f *fakeFlows) Register(_ context.Context, in flows.RegisterInput) error {
	f.registered = in
	return f.err
}

func (f *fakeFlows) Logout(context.Context) error {
	f.loggedOut = true
	return f.err
}

func (f *fakeFlows) Me(context.Context) (*user.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &user.Profile{Username: "ada", Name: "Ada", CurrentStreak: 3, LongestStreak: 9, Achievements: []string{"first_checkin"}}, nil
}

func (f *fakeFlows) Events(_ context.Context, mine bool) ([]event.Event, error) {
	f.mine = mine
	return []event.Event{{ID: 4, Title: "Morning run", Category: "fitness", ParticipantCount: 2}}, f.err
}

func (f *fakeFlows) CheckIn(_ context.Context, eventID int64, note, mood string) (*checkin.Checkin, error) {
	f.checkinEvent, f.checkinNote, f.checkinMood = eventID, note, mood
	if f.err != nil {
		return nil, f.err
	}
	return &checkin.Checkin{EventID: eventID, StreakCount: 5, UsedFreeze: true}, nil
}

func (f *fakeFlows) Streaks(context.Context) ([]checkin.StreakSummary, error) {
	last := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return []checkin.StreakSummary{{EventID: 4, EventTitle: "Morning run", CurrentStreak: 2, LastCheckDate: &last}}, f.err
}

func (f *fakeFlows) Leaderboard(_ context.Context, eventID int64, metric string, limit int) ([]leaderboard.Entry, error) {
	f.boardEvent, f.boardMetric, f.boardLimit = eventID, metric, limit
	return []leaderboard.Entry{{Rank: 1, Username: "ada", CurrentStreak: 7}}, f.err
}

func newTestApp(t *testing.T, input string) (*App, *fakeFlows, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = orig })

	f := &fakeFlows{}
	var out, errOut bytes.Buffer
	return NewApp(f, strings.NewReader(input), &out, &errOut), f, &out, &errOut
}

func TestLoginPrompts(t *testing.T) {
	app, f, out, _ := newTestApp(t, "ada\nsecret123\n")

	code := app.Run(context.Background(), []string{"login"})

	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "ada", f.loginID)
	assert.Equal(t, "secret123", f.loginPW)
	assert.Contains(t, out.String(), "Logged in as ada")
}

func TestLoginUsesTerminalPassword(t *testing.T) {
	app, f, _, _ := newTestApp(t, "")
	isTerminal = func(int) bool { return true }
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte("hidden"), nil }
	t.Cleanup(func() { readPassword = orig })

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"login", "ada@example.com"}))
	assert.Equal(t, "ada@example.com", f.loginID)
	assert.Equal(t, "hidden", f.loginPW)
}

func TestLoginFailure(t *testing.T) {
	app, f, _, errOut := newTestApp(t, "secret\n")
	f.err = &api.Error{Message: "invalid credentials", Status: 401}

	code := app.Run(context.Background(), []string{"login", "ada"})

	assert.Equal(t, ExitError, code)
	assert.Equal(t, "error: invalid credentials\n", errOut.String())
}

func TestRegisterCollectsForm(t *testing.T) {
	app, f, _, _ := newTestApp(t, "ada\nada@example.com\nAda Lovelace\nsecret123\nsecret123\n")

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"register"}))
	assert.Equal(t, flows.RegisterInput{
		Username:        "ada",
		Email:           "ada@example.com",
		FullName:        "Ada Lovelace",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	}, f.registered)
}

func TestCheckin(t *testing.T) {
	app, f, out, _ := newTestApp(t, "")

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"checkin", "-mood", "great", "4", "five", "km"}))
	assert.Equal(t, int64(4), f.checkinEvent)
	assert.Equal(t, "five km", f.checkinNote)
	assert.Equal(t, "great", f.checkinMood)
	assert.Contains(t, out.String(), "Streak: 5 (a streak freeze covered the gap)")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no args", nil},
		{"unknown", []string{"dance"}},
		{"checkin without id", []string{"checkin"}},
		{"checkin bad id", []string{"checkin", "abc"}},
		{"bad flag", []string{"events", "-nope"}},
		{"negative limit", []string{"leaderboard", "-limit", "-1"}},
		{"extra args", []string{"me", "now"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _, _, _ := newTestApp(t, "")
			assert.Equal(t, ExitUsage, app.Run(context.Background(), tt.args))
		})
	}
}

func TestListings(t *testing.T) {
	app, f, out, _ := newTestApp(t, "")

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"events", "-mine"}))
	assert.True(t, f.mine)
	assert.Contains(t, out.String(), "Morning run")

	out.Reset()
	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"streaks"}))
	assert.Contains(t, out.String(), "2026-03-02")

	out.Reset()
	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"leaderboard", "-event", "4", "-limit", "3"}))
	assert.Equal(t, int64(4), f.boardEvent)
	assert.Equal(t, 3, f.boardLimit)
	assert.Contains(t, out.String(), "ada")

	out.Reset()
	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"me"}))
	assert.Contains(t, out.String(), "first_checkin")
}

func TestExpiredSession(t *testing.T) {
	app, f, _, errOut := newTestApp(t, "")
	f.err = fmt.Errorf("%w: %s", flows.ErrNotLoggedIn, "session expired or invalid")

	assert.Equal(t, ExitError, app.Run(context.Background(), []string{"streaks"}))
	assert.Contains(t, errOut.String(), "session expired or invalid")
}

func TestLogout(t *testing.T) {
	app, f, out, _ := newTestApp(t, "")

	require.Equal(t, ExitOK, app.Run(context.Background(), []string{"logout"}))
	assert.True(t, f.loggedOut)
	assert.Equal(t, "Logged out\n", out.String())

	f.err = errors.New("disk full")
	assert.Equal(t, ExitError, app.Run(context.Background(), []string{"logout"}))
}

func TestLoginHint(t *testing.T) {
	var buf bytes.Buffer
	LoginHint(&buf)(context.Background(), "http://localhost:8000/login", nil)
	assert.Contains(t, buf.String(), "rollcall login")
	assert.Contains(t, buf.String(), "http://localhost:8000/login")
}

func TestLoginHintSkipsRejectedCredentials(t *testing.T) {
	var buf bytes.Buffer
	hint := LoginHint(&buf)

	hint(context.Background(), "http://localhost:8000/login", &api.Error{Message: "invalid credentials", Code: "INVALID_CREDENTIALS", Status: 401})
	assert.Empty(t, buf.String())

	hint(context.Background(), "http://localhost:8000/login", &api.Error{Message: "session expired or invalid", Code: "SESSION_EXPIRED", Status: 401})
	assert.Contains(t, buf.String(), "rollcall login")
}
