// internal/service/user/user.go
package user

import (
	"context"
	"fmt"
	"strings"

	"rollcall-service/internal/domain/leaderboard"
	"rollcall-service/internal/domain/user"
	xerrors "rollcall-service/internal/pkg/errors"
	"rollcall-service/internal/pkg/sanitize"

	"go.uber.org/zap"
)

// Repository is the user table as this service sees it
type Repository interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
	List(ctx context.Context, skip, limit int) ([]*user.User, error)
	Update(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, id int64) error
}

// Boards serves the global leaderboard
type Boards interface {
	Global(ctx context.Context, metric string, limit int) ([]leaderboard.Entry, error)
	InvalidateAll(ctx context.Context)
}

// SessionRevoker logs a user out everywhere
type SessionRevoker interface {
	LogoutAllSessions(ctx context.Context, userID int64) error
}

type UserService struct {
	users     Repository
	boards    Boards
	sessions  SessionRevoker
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger
}

func NewUserService(users Repository, boards Boards, sessions SessionRevoker, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:     users,
		boards:    boards,
		sessions:  sessions,
		sanitizer: sanitize.New(),
		logger:    logger,
	}
}

// List returns a page of user profiles
func (s *UserService) List(ctx context.Context, q user.ListQuery) ([]user.Profile, error) {
	users, err := s.users.List(ctx, q.Skip, q.Limit)
	if err != nil {
		return nil, err
	}

	profiles := make([]user.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// Get returns one profile
func (s *UserService) Get(ctx context.Context, id int64) (*user.Profile, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := u.Profile()
	return &p, nil
}

// Update edits a profile. Callers may edit themselves; admins may edit anyone.
func (s *UserService) Update(ctx context.Context, actorID int64, isAdmin bool, id int64, req *user.UpdateRequest) (*user.Profile, error) {
	if actorID != id && !isAdmin {
		return nil, fmt.Errorf("%w: you can only update your own profile", xerrors.ErrForbidden)
	}
	if req.IsActive != nil && !isAdmin {
		return nil, fmt.Errorf("%w: only admins can change account status", xerrors.ErrForbidden)
	}

	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive := u.IsActive

	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FullName != nil {
		u.FullName = s.sanitizer.Text(*req.FullName)
	}
	if req.ProfileImage != nil {
		u.ProfileImage = strings.TrimSpace(*req.ProfileImage)
	}
	if req.Bio != nil {
		u.Bio = s.sanitizer.Text(*req.Bio)
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if err := s.users.Update(ctx, u); err != nil {
		if xerrors.Is(err, xerrors.ErrDuplicateEntry) {
			return nil, fmt.Errorf("%w: email already registered", xerrors.ErrDuplicateEntry)
		}
		return nil, err
	}

	if wasActive && !u.IsActive {
		s.revokeSessions(ctx, id, "deactivated")
	}
	if wasActive != u.IsActive {
		s.boards.InvalidateAll(ctx)
	}

	s.logger.Info("user updated", zap.Int64("user_id", id), zap.Int64("actor_id", actorID))

	p := u.Profile()
	return &p, nil
}

// Delete removes an account. Callers may delete themselves; admins may delete anyone.
func (s *UserService) Delete(ctx context.Context, actorID int64, isAdmin bool, id int64) error {
	if actorID != id && !isAdmin {
		return fmt.Errorf("%w: you can only delete your own account", xerrors.ErrForbidden)
	}

	s.revokeSessions(ctx, id, "deleted")

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.boards.InvalidateAll(ctx)

	s.logger.Info("user deleted", zap.Int64("user_id", id), zap.Int64("actor_id", actorID))
	return nil
}

// Leaderboard ranks all users by metric
func (s *UserService) Leaderboard(ctx context.Context, metric string, limit int) ([]leaderboard.Entry, error) {
	return s.boards.Global(ctx, metric, limit)
}

// revokeSessions ends every session of a user who may no longer sign in
func (s *UserService) revokeSessions(ctx context.Context, id int64, reason string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.LogoutAllSessions(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions", zap.Int64("user_id", id), zap.String("reason", reason), zap.Error(err))
	}
}
