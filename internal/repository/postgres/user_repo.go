// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"rollcall-service/internal/domain/leaderboard"
	"rollcall-service/internal/domain/user"
	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/lib/pq"
)

// current_streak is read live: the best streak whose last check-in is today or yesterday (UTC)
const userColumns = `id, username, email, password_hash, full_name, role, is_active,
	profile_image, bio, total_checkins,
	COALESCE((
		SELECT MAX(c.streak_count) FROM checkins c
		WHERE c.user_id = users.id AND c.check_date >= (NOW() AT TIME ZONE 'UTC')::date - 1
	), 0) AS current_streak,
	longest_streak, achievements, last_login, created_at, updated_at`

type UserRepository struct {
	db Conn
}

func NewUserRepository(db Conn) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row scanner) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.IsActive,
		&u.ProfileImage, &u.Bio, &u.TotalCheckins, &u.CurrentStreak, &u.LongestStreak,
		(*[]string)(&u.Achievements), &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user and fills in its generated fields
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query, u.Username, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if u.Achievements == nil {
		u.Achievements = pq.StringArray{}
	}
	return nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find user")
	}
	return u, nil
}

// FindByUsernameOrEmail matches either column case-insensitively
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		LIMIT 1`

	u, err := scanUser(r.db.QueryRow(ctx, query, identifier))
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find user")
	}
	return u, nil
}

// FindByEmail retrieves a user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, xerrors.Wrap(notFound(err), "failed to find user")
	}
	return u, nil
}

// Exists reports whether the username or email is already taken
func (r *UserRepository) Exists(ctx context.Context, username, email string) (bool, bool, error) {
	query := `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1)),
			EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($2))
	`

	var usernameTaken, emailTaken bool
	if err := r.db.QueryRow(ctx, query, username, email).Scan(&usernameTaken, &emailTaken); err != nil {
		return false, false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return usernameTaken, emailTaken, nil
}

// List returns users ordered by id
func (r *UserRepository) List(ctx context.Context, skip, limit int) ([]*user.User, error) {
	skip, limit = page(skip, limit, 100)
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update writes the editable profile columns
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET email = $2, full_name = $3, profile_image = $4, bio = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query, u.ID, u.Email, u.FullName, u.ProfileImage, u.Bio, u.IsActive).Scan(&u.UpdatedAt)
	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateEntry
	}
	if err != nil {
		return xerrors.Wrap(notFound(err), "failed to update user")
	}
	return nil
}

// UpdatePassword replaces the password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// UpdateLastLogin stamps the login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// SetRole changes a user's role
func (r *UserRepository) SetRole(ctx context.Context, id int64, role string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// Delete removes a user and, through cascades, everything they own
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// AdminExists reports whether any admin account exists
func (r *UserRepository) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE role = $1)`, user.RoleAdmin).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check admin existence: %w", err)
	}
	return exists, nil
}

// Leaderboard ranks active users by metric with a user id tie-break. The
// current streak is computed live from check-ins dated today or yesterday.
func (r *UserRepository) Leaderboard(ctx context.Context, metric leaderboard.Metric, limit int, today time.Time) ([]leaderboard.Entry, error) {
	limit = leaderboard.ClampLimit(limit)
	query := fmt.Sprintf(`
		SELECT id, username, full_name, profile_image, current_streak, longest_streak, total_checkins
		FROM (
			SELECT u.id, u.username, u.full_name, u.profile_image,
				COALESCE((
					SELECT MAX(c.streak_count) FROM checkins c
					WHERE c.user_id = u.id AND c.check_date >= $1::date - 1
				), 0) AS current_streak,
				u.longest_streak, u.total_checkins
			FROM users u
			WHERE u.is_active
		) ranked
		ORDER BY %s DESC, id ASC
		LIMIT $2
	`, pq.QuoteIdentifier(string(metric)))

	rows, err := r.db.Query(ctx, query, today, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
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
