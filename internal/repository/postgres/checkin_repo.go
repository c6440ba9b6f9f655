// internal/repository/postgres/checkin_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rollcall-service/internal/domain/checkin"
	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

const checkinColumns = `id, user_id, event_id, check_date, note, mood, streak_count, used_freeze, created_at`

type CheckinRepository struct {
	db Conn
}

func NewCheckinRepository(db Conn) *CheckinRepository {
	return &CheckinRepository{db: db}
}

func scanCheckin(row scanner) (*checkin.Checkin, error) {
	var c checkin.Checkin
	err := row.Scan(&c.ID, &c.UserID, &c.EventID, &c.CheckDate, &c.Note, &c.Mood,
		&c.StreakCount, &c.UsedFreeze, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCheckins(rows pgx.Rows) ([]*checkin.Checkin, error) {
	defer rows.Close()

	list := []*checkin.Checkin{}
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// RecordParams describes one check-in write
type RecordParams struct {
	Checkin *checkin.Checkin
	// FreezeStreak, when positive, is the streak to record if a freeze can be consumed;
	// otherwise Checkin.StreakCount stands.
	FreezeStreak int
	// Achievements earned by this check-in, merged into the user's set
	Achievements []string
}

// ========== Write Methods ==========

// Record consumes an optional freeze, inserts the check-in and bumps the user
// and event counters in a single transaction.
func (r *CheckinRepository) Record(ctx context.Context, p RecordParams) error {
	c := p.Checkin
	achievements := p.Achievements
	if achievements == nil {
		achievements = []string{}
	}

	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		if p.FreezeStreak > 0 {
			tag, err := tx.Exec(ctx, `
				UPDATE streak_freezes SET is_used = TRUE, used_date = $3
				WHERE id = (
					SELECT id FROM streak_freezes
					WHERE user_id = $1 AND event_id = $2 AND NOT is_used
					  AND (expiry_date IS NULL OR expiry_date > NOW())
					ORDER BY created_at, id
					LIMIT 1
					FOR UPDATE SKIP LOCKED
				)
			`, c.UserID, c.EventID, c.CheckDate)
			if err != nil {
				return fmt.Errorf("failed to consume streak freeze: %w", err)
			}
			if tag.RowsAffected() == 1 {
				c.StreakCount = p.FreezeStreak
				c.UsedFreeze = true
			}
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO checkins (user_id, event_id, check_date, note, mood, streak_count, used_freeze)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`, c.UserID, c.EventID, c.CheckDate, c.Note, c.Mood, c.StreakCount, c.UsedFreeze).Scan(&c.ID, &c.CreatedAt)
		if isUniqueViolation(err) {
			return xerrors.ErrAlreadyCheckedIn
		}
		if err != nil {
			return fmt.Errorf("failed to create check-in: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE users
			SET total_checkins = total_checkins + 1,
			    current_streak = $2,
			    longest_streak = GREATEST(longest_streak, $2),
			    achievements = ARRAY(SELECT DISTINCT a FROM unnest(achievements || $3::text[]) AS a ORDER BY a),
			    updated_at = NOW()
			WHERE id = $1
		`, c.UserID, c.StreakCount, achievements)
		if err != nil {
			return fmt.Errorf("failed to update user counters: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE events SET total_checkins = total_checkins + 1 WHERE id = $1`, c.EventID); err != nil {
			return fmt.Errorf("failed to update event counters: %w", err)
		}
		return nil
	})
}

// Delete removes a check-in and rolls the counters back
func (r *CheckinRepository) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, r.db, func(tx pgx.Tx) error {
		var userID, eventID int64
		err := tx.QueryRow(ctx, `DELETE FROM checkins WHERE id = $1 RETURNING user_id, event_id`, id).Scan(&userID, &eventID)
		if err != nil {
			return xerrors.Wrap(notFound(err), "failed to delete check-in")
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET total_checkins = GREATEST(total_checkins - 1, 0), updated_at = NOW() WHERE id = $1`, userID); err != nil {
			return fmt.Errorf("failed to update user counters: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE events SET total_checkins = GREATEST(total_checkins - 1, 0) WHERE id = $1`, eventID); err != nil {
			return fmt.Errorf("failed to update event counters: %w", err)
		}
		return nil
	})
}

// ========== Read Methods ==========

// FindByID retrieves a check-in by ID
func (r *CheckinRepository) FindByID(ctx context.Context, id int64) (*checkin.Checkin, error) {
	c, err := scanCheckin(r.db.QueryRow(ctx, `SELECT `+checkinColumns+` FROM checkins WHERE id = $1`, id))
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find check-in")
	}
	return c, nil
}

// Latest returns the user's most recent check-in for an event
func (r *CheckinRepository) Latest(ctx context.Context, userID, eventID int64) (*checkin.Checkin, error) {
	query := `SELECT ` + checkinColumns + ` FROM checkins
		WHERE user_id = $1 AND event_id = $2
		ORDER BY check_date DESC LIMIT 1`

	c, err := scanCheckin(r.db.QueryRow(ctx, query, userID, eventID))
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find latest check-in")
	}
	return c, nil
}

// LatestForUser returns the user's most recent check-in across events
func (r *CheckinRepository) LatestForUser(ctx context.Context, userID int64) (*checkin.Checkin, error) {
	query := `SELECT ` + checkinColumns + ` FROM checkins
		WHERE user_id = $1
		ORDER BY check_date DESC, created_at DESC LIMIT 1`

	c, err := scanCheckin(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find latest check-in")
	}
	return c, nil
}

// ListByUser pages through a user's check-ins, optionally for one event
func (r *CheckinRepository) ListByUser(ctx context.Context, userID int64, q checkin.ListQuery) ([]*checkin.Checkin, error) {
	skip, limit := page(q.Skip, q.Limit, 100)
	query := `SELECT ` + checkinColumns + ` FROM checkins
		WHERE user_id = $1 AND ($2::bigint = 0 OR event_id = $2)
		ORDER BY check_date DESC, id DESC
		OFFSET $3 LIMIT $4`

	rows, err := r.db.Query(ctx, query, userID, q.EventID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	return collectCheckins(rows)
}

// ListByEvent pages through an event's check-ins
func (r *CheckinRepository) ListByEvent(ctx context.Context, eventID int64, skip, limit int) ([]*checkin.Checkin, error) {
	skip, limit = page(skip, limit, 100)
	query := `SELECT ` + checkinColumns + ` FROM checkins
		WHERE event_id = $1
		ORDER BY check_date DESC, id DESC
		OFFSET $2 LIMIT $3`

	rows, err := r.db.Query(ctx, query, eventID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list event check-ins: %w", err)
	}
	return collectCheckins(rows)
}

// summaryQuery aggregates one row per event for user $1
const summaryQuery = `
	SELECT c.event_id, e.title,
		COUNT(*) AS total_checkins,
		MAX(c.streak_count) AS longest_streak,
		MAX(c.check_date) AS last_check_date,
		(ARRAY_AGG(c.streak_count ORDER BY c.check_date DESC))[1] AS last_streak
	FROM checkins c
	JOIN events e ON e.id = c.event_id
	WHERE c.user_id = $1`

func scanSummary(row scanner, userID int64, today time.Time) (*checkin.StreakSummary, error) {
	s := checkin.StreakSummary{UserID: userID}
	var last time.Time
	var lastStreak int
	if err := row.Scan(&s.EventID, &s.EventTitle, &s.TotalCheckins, &s.LongestStreak, &last, &lastStreak); err != nil {
		return nil, err
	}
	s.LastCheckDate = &last
	s.CurrentStreak = checkin.CurrentStreak(last, lastStreak, today)
	return &s, nil
}

// StreakSummary describes the user's streak in one event. A user who never
// checked in gets a zero summary.
func (r *CheckinRepository) StreakSummary(ctx context.Context, userID, eventID int64, today time.Time) (*checkin.StreakSummary, error) {
	query := summaryQuery + ` AND c.event_id = $2 GROUP BY c.event_id, e.title`

	s, err := scanSummary(r.db.QueryRow(ctx, query, userID, eventID), userID, today)
	if errors.Is(err, pgx.ErrNoRows) {
		return &checkin.StreakSummary{UserID: userID, EventID: eventID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load streak summary: %w", err)
	}
	return s, nil
}

// Summaries lists a user's streak in every event they checked in to
func (r *CheckinRepository) Summaries(ctx context.Context, userID int64, today time.Time) ([]*checkin.StreakSummary, error) {
	query := summaryQuery + ` GROUP BY c.event_id, e.title ORDER BY MAX(c.check_date) DESC, c.event_id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list streak summaries: %w", err)
	}
	defer rows.Close()

	list := []*checkin.StreakSummary{}
	for rows.Next() {
		s, err := scanSummary(rows, userID, today)
		if err != nil {
			return nil, fmt.Errorf("failed to scan streak summary: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
