package postgres

import (
	"context"
	"testing"
	"time"

	"rollcall-service/internal/domain/leaderboard"
	"rollcall-service/internal/domain/user"
	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var userCols = []string{
	"id", "username", "email", "password_hash", "full_name", "role", "is_active",
	"profile_image", "bio", "total_checkins", "current_streak", "longest_streak", "achievements",
	"last_login", "created_at", "updated_at",
}

func TestUserRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@example.com", "hash", "Alice", user.RoleUser, true).
		WillReturnRows(mock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	u := &user.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", FullName: "Alice", Role: user.RoleUser, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), u))

	assert.Equal(t, int64(7), u.ID)
	assert.NotNil(t, u.Achievements)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), &user.User{Username: "alice", Email: "a@example.com"})
	assert.ErrorIs(t, err, xerrors.ErrDuplicateEntry)
}

func TestUserRepository_FindByID(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	now := time.Now()

	mock.ExpectQuery("FROM users WHERE id = ").
		WithArgs(int64(3)).
		WillReturnRows(mock.NewRows(userCols).AddRow(
			int64(3), "bob", "bob@example.com", "hash", "", user.RoleUser, true,
			"", "", 12, 4, 9, []string{"first_checkin", "streak_7"},
			&now, now, now,
		))

	u, err := repo.FindByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)
	assert.Equal(t, 4, u.CurrentStreak)
	assert.Equal(t, []string{"first_checkin", "streak_7"}, []string(u.Achievements))
	assert.Equal(t, "bob", u.DisplayName())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIDNotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("FROM users WHERE id = ").
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 99)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestUserRepository_UpdatePasswordMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs(int64(5), "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 5, "new-hash"), xerrors.ErrNotFound)
}

func TestUserRepository_Leaderboard(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`ORDER BY "longest_streak" DESC, id ASC`).
		WithArgs(today, 2).
		WillReturnRows(mock.NewRows([]string{"id", "username", "full_name", "profile_image", "current_streak", "longest_streak", "total_checkins"}).
			AddRow(int64(2), "carol", "Carol C", "", 3, 20, 40).
			AddRow(int64(5), "dave", "", "", 0, 20, 25))

	entries, err := repo.Leaderboard(context.Background(), leaderboard.MetricLongestStreak, 2, today)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Carol C", entries[0].Name)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "dave", entries[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
