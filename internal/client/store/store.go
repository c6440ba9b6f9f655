// Package store holds the client's authentication state.
//
// A Store is the single writer of its State: only its own methods mutate it,
// and none of them touch the network.
package store

import (
	"sync"

	"rollcall-service/internal/client/storage"
	"rollcall-service/internal/domain/user"

	"go.uber.org/zap"
)

// State is a snapshot of the auth slice
type State struct {
	Token           string
	User            *user.Profile
	IsAuthenticated bool
	Loading         bool
	Error           string
}

// Credentials is what a successful login or registration yields
type Credentials struct {
	Token string
	User  *user.Profile
}

type Store struct {
	mu        sync.RWMutex
	state     State
	tokens    storage.Store
	listeners []func(State)
	logger    *zap.Logger
}

// New hydrates the token from tokens exactly once. A hydrated token does not
// make the state authenticated; only SetCredentials does.
func New(tokens storage.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{tokens: tokens, logger: logger}
	if token, ok := tokens.Get(storage.TokenKey); ok {
		s.state.Token = token
	}
	return s
}

// State returns a copy safe to hold on to
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Subscribe registers fn to receive the state after every change
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetCredentials authenticates the slice and mirrors the token to storage.
// The state changes even when storage fails; the error reports the failure.
func (s *Store) SetCredentials(c Credentials) error {
	var err error
	s.update(func(st *State) {
		st.Token = c.Token
		st.User = cloneProfile(c.User)
		st.IsAuthenticated = true
		st.Error = ""
		err = s.tokens.Set(storage.TokenKey, c.Token)
	})
	if err != nil {
		s.logger.Warn("failed to persist session token", zap.Error(err))
	}
	return err
}

// SetUser replaces the profile only
func (s *Store) SetUser(p *user.Profile) {
	s.update(func(st *State) { st.User = cloneProfile(p) })
}

func (s *Store) SetLoading(loading bool) {
	s.update(func(st *State) { st.Loading = loading })
}

func (s *Store) SetError(message string) {
	s.update(func(st *State) { st.Error = message })
}

// Logout clears the slice and removes the stored token
func (s *Store) Logout() error {
	var err error
	s.update(func(st *State) {
		st.Token = ""
		st.User = nil
		st.IsAuthenticated = false
		st.Error = ""
		err = s.tokens.Remove(storage.TokenKey)
	})
	if err != nil {
		s.logger.Warn("failed to remove session token", zap.Error(err))
	}
	return err
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshot()
	listeners := append(([]func(State))(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Store) snapshot() State {
	st := s.state
	st.User = cloneProfile(st.User)
	return st
}

func cloneProfile(p *user.Profile) *user.Profile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Achievements != nil {
		cp.Achievements = append([]string(nil), p.Achievements...)
	}
	return &cp
}
