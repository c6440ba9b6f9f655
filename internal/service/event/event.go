// internal/service/event/event.go
package event

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rollcall-service/internal/domain/event"
	"rollcall-service/internal/domain/leaderboard"
	wstypes "rollcall-service/internal/domain/websocket"
	xerrors "rollcall-service/internal/pkg/errors"
	"rollcall-service/internal/pkg/sanitize"

	"go.uber.org/zap"
)

const defaultPopularLimit = 10

// Repository is the event storage the service needs
type Repository interface {
	Create(ctx context.Context, e *event.Event) error
	FindByID(ctx context.Context, id int64) (*event.Event, error)
	ListPublic(ctx context.Context, q event.ListQuery) ([]*event.Event, error)
	ListByCreator(ctx context.Context, userID int64) ([]*event.Event, error)
	ListParticipating(ctx context.Context, userID int64) ([]*event.Event, error)
	ListPopular(ctx context.Context, limit int) ([]*event.Event, error)
	Update(ctx context.Context, e *event.Event) error
	Delete(ctx context.Context, id int64) error
	AddParticipant(ctx context.Context, eventID, userID int64) error
	RemoveParticipant(ctx context.Context, eventID, userID int64) error
	AddInvites(ctx context.Context, eventID, invitedBy int64, userIDs []int64) (int64, error)
	Stats(ctx context.Context, eventID int64, today time.Time) (*event.Stats, error)
}

// Boards serves per-event leaderboards
type Boards interface {
	ForEvent(ctx context.Context, eventID int64, limit int) ([]leaderboard.Entry, error)
	Invalidate(ctx context.Context, eventID int64)
}

// Publisher pushes realtime events to connected users
type Publisher interface {
	PublishEvent(userIDs []int64, eventType wstypes.EventType, data interface{})
}

type EventService struct {
	events    Repository
	boards    Boards
	publisher Publisher
	sanitizer *sanitize.Sanitizer
	logger    *zap.Logger
	now       func() time.Time
}

func NewEventService(events Repository, boards Boards, publisher Publisher, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		events:    events,
		boards:    boards,
		publisher: publisher,
		sanitizer: sanitize.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// ========== CRUD ==========

// Create adds an event with the caller as creator and first participant
func (s *EventService) Create(ctx context.Context, userID int64, req *event.CreateRequest) (*event.Event, error) {
	e := &event.Event{
		Title:       s.sanitizer.Text(req.Title),
		Description: s.sanitizer.Text(req.Description),
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		Icon:        strings.TrimSpace(req.Icon),
		IsPublic:    true,
		CreatorID:   userID,
	}
	if req.IsPublic != nil {
		e.IsPublic = *req.IsPublic
	}
	if len(e.Title) < 3 {
		return nil, fmt.Errorf("%w: title must be at least 3 characters", xerrors.ErrInvalidInput)
	}

	if err := s.events.Create(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		zap.Int64("event_id", e.ID),
		zap.Int64("creator_id", userID),
		zap.Bool("public", e.IsPublic),
	)
	return e, nil
}

// ListPublic pages through public events
func (s *EventService) ListPublic(ctx context.Context, q event.ListQuery) ([]*event.Event, error) {
	q.Category = strings.ToLower(strings.TrimSpace(q.Category))
	return s.events.ListPublic(ctx, q)
}

// Mine lists events the caller created
func (s *EventService) Mine(ctx context.Context, userID int64) ([]*event.Event, error) {
	return s.events.ListByCreator(ctx, userID)
}

// Participating lists events the caller takes part in
func (s *EventService) Participating(ctx context.Context, userID int64) ([]*event.Event, error) {
	return s.events.ListParticipating(ctx, userID)
}

// Popular lists public events by participant count
func (s *EventService) Popular(ctx context.Context, limit int) ([]*event.Event, error) {
	if limit <= 0 || limit > leaderboard.MaxLimit {
		limit = defaultPopularLimit
	}
	return s.events.ListPopular(ctx, limit)
}

// Get returns an event the caller may see. Hidden events look missing.
func (s *EventService) Get(ctx context.Context, userID, id int64) (*event.Event, error) {
	e, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.VisibleTo(userID) {
		return nil, xerrors.Wrap(xerrors.ErrNotFound, "event not found")
	}
	return e, nil
}

// Update edits an event (creator only)
func (s *EventService) Update(ctx context.Context, userID, id int64, req *event.UpdateRequest) (*event.Event, error) {
	e, err := s.owned(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		e.Title = s.sanitizer.Text(*req.Title)
		if len(e.Title) < 3 {
			return nil, fmt.Errorf("%w: title must be at least 3 characters", xerrors.ErrInvalidInput)
		}
	}
	if req.Description != nil {
		e.Description = s.sanitizer.Text(*req.Description)
	}
	if req.Category != nil {
		e.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.Icon != nil {
		e.Icon = strings.TrimSpace(*req.Icon)
	}
	if req.IsPublic != nil {
		e.IsPublic = *req.IsPublic
	}

	if err := s.events.Update(ctx, e); err != nil {
		return nil, err
	}

	s.publish(e.Participants, wstypes.EventTypeEventUpdated, e)
	return e, nil
}

// Delete removes an event (creator only)
func (s *EventService) Delete(ctx context.Context, userID, id int64) error {
	e, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return err
	}
	s.boards.Invalidate(ctx, id)

	s.logger.Info("event deleted", zap.Int64("event_id", id), zap.Int64("creator_id", userID))
	s.publish(others(e.Participants, userID), wstypes.EventTypeEventUpdated, map[string]interface{}{
		"id":      id,
		"deleted": true,
	})
	return nil
}

// ========== Membership ==========

// Join enrols the caller. Private events need an invite.
func (s *EventService) Join(ctx context.Context, userID, id int64) (*event.Event, error) {
	e, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.IsParticipant(userID) {
		return nil, xerrors.ErrAlreadyParticipant
	}
	if !e.IsPublic && !e.IsInvited(userID) {
		return nil, fmt.Errorf("%w: this event is private", xerrors.ErrForbidden)
	}

	if err := s.events.AddParticipant(ctx, id, userID); err != nil {
		return nil, err
	}
	e.Participants = append(e.Participants, userID)
	e.ParticipantCount++
	s.boards.Invalidate(ctx, id)

	s.publish(e.Participants, wstypes.EventTypeParticipantJoined, wstypes.ParticipantEventData{EventID: id, UserID: userID})
	return e, nil
}

// Leave withdraws the caller. The creator cannot leave.
func (s *EventService) Leave(ctx context.Context, userID, id int64) error {
	e, err := s.events.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if e.CreatorID == userID {
		return xerrors.ErrCreatorCannotLeave
	}
	if !e.IsParticipant(userID) {
		return fmt.Errorf("%w: you are not a participant of this event", xerrors.ErrBadRequest)
	}

	if err := s.events.RemoveParticipant(ctx, id, userID); err != nil {
		return err
	}
	s.boards.Invalidate(ctx, id)

	s.publish(others(e.Participants, userID), wstypes.EventTypeParticipantLeft, wstypes.ParticipantEventData{EventID: id, UserID: userID})
	return nil
}

// Invite lets the creator or a participant invite users. Returns how many invites were new.
func (s *EventService) Invite(ctx context.Context, userID, id int64, req *event.InviteRequest) (int64, error) {
	e, err := s.events.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if e.CreatorID != userID && !e.IsParticipant(userID) {
		return 0, fmt.Errorf("%w: only participants can invite", xerrors.ErrForbidden)
	}

	var ids []int64
	seen := map[int64]bool{}
	for _, uid := range req.UserIDs {
		if seen[uid] || e.IsParticipant(uid) {
			continue
		}
		seen[uid] = true
		ids = append(ids, uid)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.events.AddInvites(ctx, id, userID, ids)
	if err != nil {
		return 0, err
	}

	s.logger.Info("users invited", zap.Int64("event_id", id), zap.Int64("invited_by", userID), zap.Int64("count", n))
	return n, nil
}

// ========== Aggregates ==========

// Leaderboard ranks an event's participants
func (s *EventService) Leaderboard(ctx context.Context, userID, id int64, limit int) ([]leaderboard.Entry, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.boards.ForEvent(ctx, id, limit)
}

// Stats summarises an event's streaks
func (s *EventService) Stats(ctx context.Context, userID, id int64) (*event.Stats, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.events.Stats(ctx, id, s.now().UTC())
}

// ========== Helpers ==========

func (s *EventService) owned(ctx context.Context, userID, id int64, action string) (*event.Event, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if e.CreatorID != userID {
		return nil, fmt.Errorf("%w: only the creator can %s this event", xerrors.ErrForbidden, action)
	}
	return e, nil
}

func (s *EventService) publish(userIDs []int64, eventType wstypes.EventType, data interface{}) {
	if s.publisher == nil || len(userIDs) == 0 {
		return
	}
	s.publisher.PublishEvent(userIDs, eventType, data)
}

func others(ids []int64, exclude int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
