// Package flows runs the client use cases: each one performs its network call
// through api.Client and dispatches the outcome to the auth store.
package flows

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"rollcall-service/internal/client/api"
	"rollcall-service/internal/client/store"
	"rollcall-service/internal/domain/auth"
	"rollcall-service/internal/domain/checkin"
	"rollcall-service/internal/domain/event"
	"rollcall-service/internal/domain/leaderboard"
	"rollcall-service/internal/domain/user"

	"go.uber.org/zap"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrNotLoggedIn      = errors.New("not logged in")
)

// Requester is the slice of api.Client the flows use
type Requester interface {
	Get(ctx context.Context, path string, opts ...api.RequestOption) api.Result
	Post(ctx context.Context, path string, body any, opts ...api.RequestOption) api.Result
}

type Flows struct {
	api    Requester
	store  *store.Store
	logger *zap.Logger
}

func New(requester Requester, st *store.Store, logger *zap.Logger) *Flows {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flows{api: requester, store: st, logger: logger}
}

// RegisterInput is the registration form
type RegisterInput struct {
	Username        string
	Email           string
	FullName        string
	Password        string
	ConfirmPassword string
}

// ========== Session ==========

// Login authenticates against the server and stores the session
func (f *Flows) Login(ctx context.Context, identifier, password string) error {
	f.store.SetLoading(true)
	defer f.store.SetLoading(false)

	res := f.api.Post(ctx, "/auth/login", auth.LoginRequest{UsernameOrEmail: identifier, Password: password})
	return f.authenticate(res)
}

// Register rejects a confirmation mismatch before any request is made
func (f *Flows) Register(ctx context.Context, in RegisterInput) error {
	if in.Password != in.ConfirmPassword {
		f.store.SetError(ErrPasswordMismatch.Error())
		return ErrPasswordMismatch
	}

	f.store.SetLoading(true)
	defer f.store.SetLoading(false)

	res := f.api.Post(ctx, "/auth/register", auth.RegisterRequest{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
		Password: in.Password,
	})
	return f.authenticate(res)
}

func (f *Flows) authenticate(res api.Result) error {
	if err := f.fail(res); err != nil {
		return err
	}

	var resp auth.LoginResponse
	if err := res.Decode(&resp); err != nil {
		f.store.SetError("unexpected response from server")
		return fmt.Errorf("decode login response: %w", err)
	}
	if resp.AccessToken == "" {
		f.store.SetError("unexpected response from server")
		return errors.New("login response carries no token")
	}

	profile := resp.User
	return f.store.SetCredentials(store.Credentials{Token: resp.AccessToken, User: &profile})
}

// Logout tells the server when a token is held, then clears local state regardless
func (f *Flows) Logout(ctx context.Context) error {
	if f.store.State().Token != "" {
		if res := f.api.Post(ctx, "/auth/logout", nil); !res.Success && !res.RequiresReauth {
			f.logger.Warn("server logout failed", zap.String("error", res.Error.Message))
		}
	}
	return f.store.Logout()
}

// Me refreshes the profile in the store
func (f *Flows) Me(ctx context.Context) (*user.Profile, error) {
	var p user.Profile
	if err := f.fetch(f.api.Get(ctx, "/auth/me"), &p); err != nil {
		return nil, err
	}
	f.store.SetUser(&p)
	return &p, nil
}

// ========== Events & Check-ins ==========

func (f *Flows) Events(ctx context.Context, mine bool) ([]event.Event, error) {
	path := "/events"
	if mine {
		path = "/events/participating"
	}
	var list []event.Event
	if err := f.fetch(f.api.Get(ctx, path), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (f *Flows) CheckIn(ctx context.Context, eventID int64, note, mood string) (*checkin.Checkin, error) {
	var c checkin.Checkin
	res := f.api.Post(ctx, "/checkins", checkin.CreateRequest{EventID: eventID, Note: note, Mood: mood})
	if err := f.fetch(res, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (f *Flows) Streaks(ctx context.Context) ([]checkin.StreakSummary, error) {
	var list []checkin.StreakSummary
	if err := f.fetch(f.api.Get(ctx, "/checkins/streaks"), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Leaderboard returns the global board, or one event's when eventID > 0
func (f *Flows) Leaderboard(ctx context.Context, eventID int64, metric string, limit int) ([]leaderboard.Entry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	path := "/leaderboard"
	if eventID > 0 {
		path = fmt.Sprintf("/events/%d/leaderboard", eventID)
	} else if metric != "" {
		q.Set("metric", metric)
	}

	var entries []leaderboard.Entry
	if err := f.fetch(f.api.Get(ctx, path, api.WithQuery(q)), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ========== Helpers ==========

func (f *Flows) fetch(res api.Result, v any) error {
	if err := f.fail(res); err != nil {
		return err
	}
	return res.Decode(v)
}

// fail dispatches a failed result: the store learns the message, and a 401
// also ends the local session
func (f *Flows) fail(res api.Result) error {
	if res.Success {
		return nil
	}
	if res.RequiresReauth {
		_ = f.store.Logout()
		f.store.SetError(res.Error.Message)
		return fmt.Errorf("%w: %s", ErrNotLoggedIn, res.Error.Message)
	}
	f.store.SetError(res.Error.Message)
	return res.Error
}
