// internal/repository/postgres/streak_freeze_repo.go
package postgres

import (
	"context"
	"fmt"

	"rollcall-service/internal/domain/streakfreeze"
)

type StreakFreezeRepository struct {
	db Conn
}

func NewStreakFreezeRepository(db Conn) *StreakFreezeRepository {
	return &StreakFreezeRepository{db: db}
}

// Grant gives a user one freeze for an event
func (r *StreakFreezeRepository) Grant(ctx context.Context, f *streakfreeze.StreakFreeze) error {
	query := `
		INSERT INTO streak_freezes (user_id, event_id, expiry_date)
		VALUES ($1, $2, $3)
		RETURNING id, is_used, created_at
	`
	err := r.db.QueryRow(ctx, query, f.UserID, f.EventID, f.ExpiryDate).Scan(&f.ID, &f.IsUsed, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to grant streak freeze: %w", err)
	}
	return nil
}

// ListAvailable returns unused, unexpired freezes oldest first
func (r *StreakFreezeRepository) ListAvailable(ctx context.Context, userID, eventID int64) ([]*streakfreeze.StreakFreeze, error) {
	query := `
		SELECT id, user_id, event_id, is_used, used_date, expiry_date, created_at
		FROM streak_freezes
		WHERE user_id = $1 AND event_id = $2 AND NOT is_used
		  AND (expiry_date IS NULL OR expiry_date > NOW())
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, userID, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list streak freezes: %w", err)
	}
	defer rows.Close()

	list := []*streakfreeze.StreakFreeze{}
	for rows.Next() {
		var f streakfreeze.StreakFreeze
		if err := rows.Scan(&f.ID, &f.UserID, &f.EventID, &f.IsUsed, &f.UsedDate, &f.ExpiryDate, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan streak freeze: %w", err)
		}
		list = append(list, &f)
	}
	return list, rows.Err()
}
