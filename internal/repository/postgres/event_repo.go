// internal/repository/postgres/event_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"rollcall-service/internal/domain/event"
	"rollcall-service/internal/domain/leaderboard"
	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const eventColumns = `e.id, e.title, e.description, e.category, e.icon, e.is_public, e.creator_id,
	e.total_checkins,
	(SELECT COUNT(*) FROM event_participants p WHERE p.event_id = e.id) AS participant_count,
	e.created_at, e.updated_at`

type EventRepository struct {
	db Conn
}

func NewEventRepository(db Conn) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row scanner, extra ...any) (*event.Event, error) {
	var e event.Event
	dest := []any{
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Icon, &e.IsPublic, &e.CreatorID,
		&e.TotalCheckins, &e.ParticipantCount, &e.CreatedAt, &e.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]*event.Event, error) {
	defer rows.Close()

	events := []*event.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ========== Event Methods ==========

// Create inserts the event and enrols its creator in one transaction
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO events (title, description, category, icon, is_public, creator_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query, e.Title, e.Description, e.Category, e.Icon, e.IsPublic, e.CreatorID).
			Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO event_participants (event_id, user_id) VALUES ($1, $2)`, e.ID, e.CreatorID); err != nil {
			return fmt.Errorf("failed to add creator as participant: %w", err)
		}

		e.Participants = []int64{e.CreatorID}
		e.InvitedUsers = []int64{}
		e.ParticipantCount = 1
		return nil
	})
}

// FindByID loads an event together with its participant and invite lists
func (r *EventRepository) FindByID(ctx context.Context, id int64) (*event.Event, error) {
	query := `SELECT ` + eventColumns + `,
		ARRAY(SELECT p.user_id FROM event_participants p WHERE p.event_id = e.id ORDER BY p.joined_at, p.user_id),
		ARRAY(SELECT i.user_id FROM event_invites i WHERE i.event_id = e.id ORDER BY i.created_at, i.user_id)
		FROM events e WHERE e.id = $1`

	var participants, invited []int64
	e, err := scanEvent(r.db.QueryRow(ctx, query, id), &participants, &invited)
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find event")
	}
	e.Participants = participants
	e.InvitedUsers = invited
	return e, nil
}

// ListPublic pages through public events, newest first, optionally by category
func (r *EventRepository) ListPublic(ctx context.Context, q event.ListQuery) ([]*event.Event, error) {
	skip, limit := page(q.Skip, q.Limit, 100)
	query := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.is_public AND ($1 = '' OR e.category = $1)
		ORDER BY e.created_at DESC, e.id DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.db.Query(ctx, query, q.Category, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return collectEvents(rows)
}

// ListByCreator returns the events a user created
func (r *EventRepository) ListByCreator(ctx context.Context, userID int64) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.creator_id = $1
		ORDER BY e.created_at DESC, e.id DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list created events: %w", err)
	}
	return collectEvents(rows)
}

// ListParticipating returns the events a user takes part in
func (r *EventRepository) ListParticipating(ctx context.Context, userID int64) ([]*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e
		JOIN event_participants ep ON ep.event_id = e.id
		WHERE ep.user_id = $1
		ORDER BY ep.joined_at DESC, e.id DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participating events: %w", err)
	}
	return collectEvents(rows)
}

// ListPopular ranks public events by participants then check-ins
func (r *EventRepository) ListPopular(ctx context.Context, limit int) ([]*event.Event, error) {
	_, limit = page(0, limit, 10)
	query := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.is_public
		ORDER BY participant_count DESC, e.total_checkins DESC, e.id ASC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list popular events: %w", err)
	}
	return collectEvents(rows)
}

// Update writes the editable columns
func (r *EventRepository) Update(ctx context.Context, e *event.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = $3, category = $4, icon = $5, is_public = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, e.ID, e.Title, e.Description, e.Category, e.Icon, e.IsPublic).Scan(&e.UpdatedAt)
	if err != nil {
		return xerrors.Wrap(notFound(err), "failed to update event")
	}
	return nil
}

// Delete removes an event with its participants, invites and check-ins
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ========== Participant Methods ==========

// AddParticipant enrols a user
func (r *EventRepository) AddParticipant(ctx context.Context, eventID, userID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO event_participants (event_id, user_id) VALUES ($1, $2)`, eventID, userID)
	if isUniqueViolation(err) {
		return xerrors.ErrAlreadyParticipant
	}
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	return nil
}

// RemoveParticipant withdraws a user
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotParticipant
	}
	return nil
}

// IsParticipant reports whether the user takes part in the event
func (r *EventRepository) IsParticipant(ctx context.Context, eventID, userID int64) (bool, error) {
	var ok bool
	query := `SELECT EXISTS(SELECT 1 FROM event_participants WHERE event_id = $1 AND user_id = $2)`
	if err := r.db.QueryRow(ctx, query, eventID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return ok, nil
}

// ParticipantIDs lists every participant of the event
func (r *EventRepository) ParticipantIDs(ctx context.Context, eventID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM event_participants WHERE event_id = $1 ORDER BY user_id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddInvites records invitations that do not exist yet and returns how many were new
func (r *EventRepository) AddInvites(ctx context.Context, eventID, invitedBy int64, userIDs []int64) (int64, error) {
	query := `
		INSERT INTO event_invites (event_id, user_id, invited_by)
		SELECT $1, u.id, $2 FROM users u WHERE u.id = ANY($3::bigint[])
		ON CONFLICT (event_id, user_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, eventID, invitedBy, userIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to invite users: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ========== Aggregates ==========

// lastStreak is the streak_count of the participant's latest check-in when it
// still counts (dated today or yesterday), else 0. $2 is today.
const lastStreak = `COALESCE((
		SELECT c.streak_count FROM checkins c
		WHERE c.user_id = p.user_id AND c.event_id = p.event_id AND c.check_date >= $2::date - 1
		ORDER BY c.check_date DESC LIMIT 1
	), 0)`

// Leaderboard ranks participants by their streak in this event
func (r *EventRepository) Leaderboard(ctx context.Context, eventID int64, limit int, today time.Time) ([]leaderboard.Entry, error) {
	limit = leaderboard.ClampLimit(limit)
	query := `
		SELECT u.id, u.username, u.full_name, u.profile_image,
			` + lastStreak + ` AS current_streak,
			COALESCE((SELECT MAX(c.streak_count) FROM checkins c WHERE c.user_id = p.user_id AND c.event_id = p.event_id), 0) AS longest_streak,
			(SELECT COUNT(*) FROM checkins c WHERE c.user_id = p.user_id AND c.event_id = p.event_id) AS total_checkins
		FROM event_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.event_id = $1
		ORDER BY current_streak DESC, longest_streak DESC, u.id ASC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, eventID, today, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load event leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []leaderboard.Entry{}
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Name, &e.ProfileImage,
			&e.CurrentStreak, &e.LongestStreak, &e.TotalCheckins); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		if e.Name == "" {
			e.Name = e.Username
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats averages live streaks over participants; highest is the best streak ever reached
func (r *EventRepository) Stats(ctx context.Context, eventID int64, today time.Time) (*event.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			(SELECT COUNT(*) FROM checkins WHERE event_id = $1),
			COALESCE(AVG(s.current_streak), 0)::float8,
			COALESCE((SELECT MAX(streak_count) FROM checkins WHERE event_id = $1), 0)
		FROM (
			SELECT ` + lastStreak + ` AS current_streak
			FROM event_participants p
			WHERE p.event_id = $1
		) s
	`

	st := event.Stats{EventID: eventID}
	err := r.db.QueryRow(ctx, query, eventID, today).
		Scan(&st.ParticipantCount, &st.TotalCheckins, &st.AvgStreak, &st.HighestStreak)
	if err != nil {
		return nil, fmt.Errorf("failed to load event stats: %w", err)
	}
	return &st, nil
}
