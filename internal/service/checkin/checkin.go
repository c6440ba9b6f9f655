// internal/service/checkin/checkin.go
package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rollcall-service/internal/domain/checkin"
	"rollcall-service/internal/domain/streakfreeze"
	wstypes "rollcall-service/internal/domain/websocket"
	xerrors "rollcall-service/internal/pkg/errors"
	"rollcall-service/internal/pkg/sanitize"
	"rollcall-service/internal/repository/postgres"

	"go.uber.org/zap"
)

// Repository is the check-in storage
type Repository interface {
	Record(ctx context.Context, p postgres.RecordParams) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*checkin.Checkin, error)
	Latest(ctx context.Context, userID, eventID int64) (*checkin.Checkin, error)
	LatestForUser(ctx context.Context, userID int64) (*checkin.Checkin, error)
	ListByUser(ctx context.Context, userID int64, q checkin.ListQuery) ([]*checkin.Checkin, error)
	ListByEvent(ctx context.Context, eventID int64, skip, limit int) ([]*checkin.Checkin, error)
	StreakSummary(ctx context.Context, userID, eventID int64, today time.Time) (*checkin.StreakSummary, error)
	Summaries(ctx context.Context, userID int64, today time.Time) ([]*checkin.StreakSummary, error)
}

// Participants answers event membership questions
type Participants interface {
	IsParticipant(ctx context.Context, eventID, userID int64) (bool, error)
	ParticipantIDs(ctx context.Context, eventID int64) ([]int64, error)
}

// Freezes lists a user's unused freezes
type Freezes interface {
	ListAvailable(ctx context.Context, userID, eventID int64) ([]*streakfreeze.StreakFreeze, error)
}

// BoardInvalidator drops cached leaderboards
type BoardInvalidator interface {
	Invalidate(ctx context.Context, eventID int64)
}

// Publisher pushes check-ins to participants
type Publisher interface {
	PublishCheckin(participantIDs []int64, data wstypes.CheckinEventData)
}

// Recorder counts check-ins
type Recorder interface {
	RecordCheckin(usedFreeze bool)
}

// Dependencies wires a CheckinService
type Dependencies struct {
	Checkins     Repository
	Participants Participants
	Freezes      Freezes
	Boards       BoardInvalidator
	Publisher    Publisher
	Metrics      Recorder
	Logger       *zap.Logger
}

type CheckinService struct {
	checkins     Repository
	participants Participants
	freezes      Freezes
	boards       BoardInvalidator
	publisher    Publisher
	metrics      Recorder
	sanitizer    *sanitize.Sanitizer
	logger       *zap.Logger
	now          func() time.Time
}

func NewCheckinService(d Dependencies) *CheckinService {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &CheckinService{
		checkins:     d.Checkins,
		participants: d.Participants,
		freezes:      d.Freezes,
		boards:       d.Boards,
		publisher:    d.Publisher,
		metrics:      d.Metrics,
		sanitizer:    sanitize.New(),
		logger:       d.Logger,
		now:          time.Now,
	}
}

// ========== Check-in ==========

// Create records today's check-in for the caller and extends their streak
func (s *CheckinService) Create(ctx context.Context, userID int64, username string, req *checkin.CreateRequest) (*checkin.Checkin, error) {
	if err := s.requireParticipant(ctx, req.EventID, userID); err != nil {
		return nil, err
	}

	today := checkin.Day(s.now())

	prev, err := s.checkins.Latest(ctx, userID, req.EventID)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}
	if errors.Is(err, xerrors.ErrNotFound) {
		prev = nil
	}

	plan, err := NextStreak(prev, today)
	if err != nil {
		return nil, err
	}

	params := postgres.RecordParams{
		Checkin: &checkin.Checkin{
			UserID:      userID,
			EventID:     req.EventID,
			CheckDate:   today,
			Note:        s.sanitizer.Text(req.Note),
			Mood:        strings.TrimSpace(req.Mood),
			StreakCount: plan.Streak,
		},
	}

	streak := plan.Streak
	if plan.FreezeStreak > 0 {
		available, err := s.freezes.ListAvailable(ctx, userID, req.EventID)
		if err != nil {
			return nil, err
		}
		if len(available) > 0 {
			params.FreezeStreak = plan.FreezeStreak
			streak = plan.FreezeStreak
		}
	}

	first, err := s.isFirst(ctx, userID)
	if err != nil {
		return nil, err
	}
	params.Achievements = Achievements(streak, first)

	if err := s.checkins.Record(ctx, params); err != nil {
		return nil, err
	}
	c := params.Checkin

	s.logger.Info("check-in recorded",
		zap.Int64("checkin_id", c.ID),
		zap.Int64("user_id", userID),
		zap.Int64("event_id", c.EventID),
		zap.Int("streak", c.StreakCount),
		zap.Bool("used_freeze", c.UsedFreeze),
	)

	if s.metrics != nil {
		s.metrics.RecordCheckin(c.UsedFreeze)
	}
	if s.boards != nil {
		s.boards.Invalidate(ctx, c.EventID)
	}
	s.announce(ctx, c, username)

	return c, nil
}

func (s *CheckinService) isFirst(ctx context.Context, userID int64) (bool, error) {
	_, err := s.checkins.LatestForUser(ctx, userID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return true, nil
	}
	return false, err
}

func (s *CheckinService) announce(ctx context.Context, c *checkin.Checkin, username string) {
	if s.publisher == nil {
		return
	}
	ids, err := s.participants.ParticipantIDs(ctx, c.EventID)
	if err != nil {
		s.logger.Warn("failed to load participants for push", zap.Int64("event_id", c.EventID), zap.Error(err))
		return
	}
	s.publisher.PublishCheckin(ids, wstypes.CheckinEventData{
		CheckinID:   c.ID,
		EventID:     c.EventID,
		UserID:      c.UserID,
		Username:    username,
		StreakCount: c.StreakCount,
		CheckDate:   c.CheckDate,
	})
}

// ========== Reads ==========

// List pages through the caller's check-ins
func (s *CheckinService) List(ctx context.Context, userID int64, q checkin.ListQuery) ([]*checkin.Checkin, error) {
	return s.checkins.ListByUser(ctx, userID, q)
}

// ListByEvent pages through an event's check-ins; participants only
func (s *CheckinService) ListByEvent(ctx context.Context, userID, eventID int64, skip, limit int) ([]*checkin.Checkin, error) {
	if err := s.requireParticipant(ctx, eventID, userID); err != nil {
		return nil, err
	}
	return s.checkins.ListByEvent(ctx, eventID, skip, limit)
}

// Get returns a check-in visible to its owner and the event's participants
func (s *CheckinService) Get(ctx context.Context, userID, id int64) (*checkin.Checkin, error) {
	c, err := s.checkins.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID == userID {
		return c, nil
	}

	ok, err := s.participants.IsParticipant(ctx, c.EventID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "check-in not found")
	}
	return c, nil
}

// Latest returns the user's most recent check-in
func (s *CheckinService) Latest(ctx context.Context, userID int64) (*checkin.Checkin, error) {
	return s.checkins.LatestForUser(ctx, userID)
}

// StreakSummary describes the user's streak in one event
func (s *CheckinService) StreakSummary(ctx context.Context, userID, eventID int64) (*checkin.StreakSummary, error) {
	return s.checkins.StreakSummary(ctx, userID, eventID, s.now().UTC())
}

// Summaries lists the user's streak in every event
func (s *CheckinService) Summaries(ctx context.Context, userID int64) ([]*checkin.StreakSummary, error) {
	return s.checkins.Summaries(ctx, userID, s.now().UTC())
}

// ========== Delete ==========

// Delete removes a check-in (owner or admin)
func (s *CheckinService) Delete(ctx context.Context, userID int64, isAdmin bool, id int64) error {
	c, err := s.checkins.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != userID && !isAdmin {
		return fmt.Errorf("%w: you can only delete your own check-ins", xerrors.ErrForbidden)
	}

	if err := s.checkins.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("check-in deleted", zap.Int64("checkin_id", id), zap.Int64("actor_id", userID))
	if s.boards != nil {
		s.boards.Invalidate(ctx, c.EventID)
	}
	return nil
}

func (s *CheckinService) requireParticipant(ctx context.Context, eventID, userID int64) error {
	ok, err := s.participants.IsParticipant(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.ErrNotParticipant
	}
	return nil
}
