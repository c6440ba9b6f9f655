// internal/service/streakfreeze/streakfreeze.go
package streakfreeze

import (
	"context"
	"fmt"
	"time"

	"rollcall-service/internal/domain/streakfreeze"
	xerrors "rollcall-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Repository stores streak freezes
type Repository interface {
	Grant(ctx context.Context, f *streakfreeze.StreakFreeze) error
	ListAvailable(ctx context.Context, userID, eventID int64) ([]*streakfreeze.StreakFreeze, error)
}

// Participants checks event membership
type Participants interface {
	IsParticipant(ctx context.Context, eventID, userID int64) (bool, error)
}

type Service struct {
	freezes      Repository
	participants Participants
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(freezes Repository, participants Participants, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		freezes:      freezes,
		participants: participants,
		logger:       logger,
		now:          time.Now,
	}
}

// Available lists the caller's unused freezes for an event, oldest first
func (s *Service) Available(ctx context.Context, userID, eventID int64) ([]*streakfreeze.StreakFreeze, error) {
	return s.freezes.ListAvailable(ctx, userID, eventID)
}

// Grant gives a participant one freeze (admin only)
func (s *Service) Grant(ctx context.Context, isAdmin bool, eventID int64, req *streakfreeze.GrantRequest) (*streakfreeze.StreakFreeze, error) {
	if !isAdmin {
		return nil, fmt.Errorf("%w: only admins can grant streak freezes", xerrors.ErrForbidden)
	}
	if req.ExpiryDate != nil && !req.ExpiryDate.After(s.now()) {
		return nil, fmt.Errorf("%w: expiry date must be in the future", xerrors.ErrInvalidInput)
	}

	ok, err := s.participants.IsParticipant(ctx, eventID, req.UserID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.ErrNotParticipant
	}

	f := &streakfreeze.StreakFreeze{
		UserID:     req.UserID,
		EventID:    eventID,
		ExpiryDate: req.ExpiryDate,
	}
	if err := s.freezes.Grant(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("streak freeze granted",
		zap.Int64("freeze_id", f.ID),
		zap.Int64("user_id", f.UserID),
		zap.Int64("event_id", eventID),
	)
	return f, nil
}
