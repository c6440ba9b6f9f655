package checkin

import (
	"context"
	"testing"
	"time"

	"rollcall-service/internal/domain/checkin"
	"rollcall-service/internal/domain/streakfreeze"
	wstypes "rollcall-service/internal/domain/websocket"
	xerrors "rollcall-service/internal/pkg/errors"
	"rollcall-service/internal/repository/postgres"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type memRepo struct {
	list     []*checkin.Checkin
	freezes  int
	recorded []postgres.RecordParams
}

func (m *memRepo) Record(_ context.Context, p postgres.RecordParams) error {
	c := p.Checkin
	for _, x := range m.list {
		if x.UserID == c.UserID && x.EventID == c.EventID && x.CheckDate.Equal(c.CheckDate) {
			return xerrors.ErrAlreadyCheckedIn
		}
	}
	if p.FreezeStreak > 0 && m.freezes > 0 {
		m.freezes--
		c.StreakCount = p.FreezeStreak
		c.UsedFreeze = true
	}
	c.ID = int64(len(m.list) + 1)
	cp := *c
	m.list = append(m.list, &cp)
	m.recorded = append(m.recorded, p)
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	for i, c := range m.list {
		if c.ID == id {
			m.list = append(m.list[:i], m.list[i+1:]...)
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (m *memRepo) FindByID(_ context.Context, id int64) (*checkin.Checkin, error) {
	for _, c := range m.list {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *memRepo) latest(match func(*checkin.Checkin) bool) (*checkin.Checkin, error) {
	var best *checkin.Checkin
	for _, c := range m.list {
		if match(c) && (best == nil || c.CheckDate.After(best.CheckDate)) {
			best = c
		}
	}
	if best == nil {
		return nil, xerrors.ErrNotFound
	}
	return best, nil
}

func (m *memRepo) Latest(_ context.Context, userID, eventID int64) (*checkin.Checkin, error) {
	return m.latest(func(c *checkin.Checkin) bool { return c.UserID == userID && c.EventID == eventID })
}

func (m *memRepo) LatestForUser(_ context.Context, userID int64) (*checkin.Checkin, error) {
	return m.latest(func(c *checkin.Checkin) bool { return c.UserID == userID })
}

func (m *memRepo) ListByUser(context.Context, int64, checkin.ListQuery) ([]*checkin.Checkin, error) {
	return m.list, nil
}

func (m *memRepo) ListByEvent(context.Context, int64, int, int) ([]*checkin.Checkin, error) {
	return m.list, nil
}

func (m *memRepo) StreakSummary(_ context.Context, userID, eventID int64, _ time.Time) (*checkin.StreakSummary, error) {
	return &checkin.StreakSummary{UserID: userID, EventID: eventID}, nil
}

func (m *memRepo) Summaries(context.Context, int64, time.Time) ([]*checkin.StreakSummary, error) {
	return []*checkin.StreakSummary{}, nil
}

type fakeParticipants struct{ ids []int64 }

func (f *fakeParticipants) IsParticipant(_ context.Context, _ int64, userID int64) (bool, error) {
	for _, id := range f.ids {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeParticipants) ParticipantIDs(context.Context, int64) ([]int64, error) {
	return f.ids, nil
}

type fakeFreezes struct{ repo *memRepo }

func (f *fakeFreezes) ListAvailable(context.Context, int64, int64) ([]*streakfreeze.StreakFreeze, error) {
	out := []*streakfreeze.StreakFreeze{}
	for i := 0; i < f.repo.freezes; i++ {
		out = append(out, &streakfreeze.StreakFreeze{ID: int64(i + 1)})
	}
	return out, nil
}

type fakeBoards struct{ events []int64 }

func (f *fakeBoards) Invalidate(_ context.Context, eventID int64) { f.events = append(f.events, eventID) }

type fakePublisher struct {
	ids  []int64
	data []wstypes.CheckinEventData
}

func (f *fakePublisher) PublishCheckin(ids []int64, data wstypes.CheckinEventData) {
	f.ids = ids
	f.data = append(f.data, data)
}

type fakeMetrics struct{ plain, frozen int }

func (f *fakeMetrics) RecordCheckin(usedFreeze bool) {
	if usedFreeze {
		f.frozen++
		return
	}
	f.plain++
}

type fixture struct {
	svc     *CheckinService
	repo    *memRepo
	boards  *fakeBoards
	pub     *fakePublisher
	metrics *fakeMetrics
	today   time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:    &memRepo{},
		boards:  &fakeBoards{},
		pub:     &fakePublisher{},
		metrics: &fakeMetrics{},
		today:   day0.Add(9 * time.Hour),
	}
	f.svc = NewCheckinService(Dependencies{
		Checkins:     f.repo,
		Participants: &fakeParticipants{ids: []int64{1, 2}},
		Freezes:      &fakeFreezes{repo: f.repo},
		Boards:       f.boards,
		Publisher:    f.pub,
		Metrics:      f.metrics,
	})
	f.svc.now = func() time.Time { return f.today }
	return f
}

func (f *fixture) checkIn(t *testing.T, dayOffset int) (*checkin.Checkin, error) {
	t.Helper()
	f.today = day0.AddDate(0, 0, dayOffset).Add(15 * time.Hour)
	return f.svc.Create(context.Background(), 1, "ada", &checkin.CreateRequest{EventID: 10, Note: "<b>ran</b> 5k"})
}

func TestNextStreak(t *testing.T) {
	prev := &checkin.Checkin{CheckDate: day0, StreakCount: 4}

	tests := []struct {
		name  string
		prev  *checkin.Checkin
		today time.Time
		want  Plan
		err   error
	}{
		{"first", nil, day0, Plan{Streak: 1}, nil},
		{"same day", prev, day0.Add(23 * time.Hour), Plan{}, xerrors.ErrAlreadyCheckedIn},
		{"next day", prev, day0.AddDate(0, 0, 1), Plan{Streak: 5}, nil},
		{"one missed day", prev, day0.AddDate(0, 0, 2), Plan{Streak: 1, FreezeStreak: 5}, nil},
		{"long gap", prev, day0.AddDate(0, 0, 9), Plan{Streak: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextStreak(tt.prev, tt.today)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAchievements(t *testing.T) {
	assert.Equal(t, []string{"first_checkin"}, Achievements(1, true))
	assert.Empty(t, Achievements(2, false))
	assert.Equal(t, []string{"streak_7"}, Achievements(7, false))
	assert.Equal(t, []string{"streak_365"}, Achievements(365, false))
}

func TestCreateBuildsStreak(t *testing.T) {
	f := newFixture()

	c, err := f.checkIn(t, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, c.StreakCount)
	assert.Equal(t, "ran 5k", c.Note)
	assert.Equal(t, day0, c.CheckDate)
	assert.Equal(t, []string{"first_checkin"}, f.repo.recorded[0].Achievements)

	c, err = f.checkIn(t, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.StreakCount)
	assert.Empty(t, f.repo.recorded[1].Achievements)

	assert.Equal(t, []int64{10, 10}, f.boards.events)
	assert.Equal(t, 2, f.metrics.plain)
	require.Len(t, f.pub.data, 2)
	assert.Equal(t, []int64{1, 2}, f.pub.ids)
	assert.Equal(t, "ada", f.pub.data[1].Username)
}

func TestCreateTwiceSameDay(t *testing.T) {
	f := newFixture()
	_, err := f.checkIn(t, 0)
	require.NoError(t, err)

	_, err = f.checkIn(t, 0)
	assert.ErrorIs(t, err, xerrors.ErrAlreadyCheckedIn)
	assert.Len(t, f.repo.list, 1)
}

func TestCreateUsesFreezeForOneMissedDay(t *testing.T) {
	f := newFixture()
	f.repo.freezes = 1

	_, err := f.checkIn(t, 0)
	require.NoError(t, err)
	_, err = f.checkIn(t, 1)
	require.NoError(t, err)

	c, err := f.checkIn(t, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, c.StreakCount)
	assert.True(t, c.UsedFreeze)
	assert.Equal(t, 0, f.repo.freezes)
	assert.Equal(t, 1, f.metrics.frozen)

	// no freeze left
	c, err = f.checkIn(t, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, c.StreakCount)
	assert.False(t, c.UsedFreeze)
	assert.Zero(t, f.repo.recorded[3].FreezeStreak)
}

func TestCreateResetsAfterLongGap(t *testing.T) {
	f := newFixture()
	f.repo.freezes = 3

	_, err := f.checkIn(t, 0)
	require.NoError(t, err)
	c, err := f.checkIn(t, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, c.StreakCount)
	assert.Equal(t, 3, f.repo.freezes)
}

func TestCreateRequiresParticipant(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), 3, "eve", &checkin.CreateRequest{EventID: 10})
	assert.ErrorIs(t, err, xerrors.ErrNotParticipant)
	assert.Equal(t, 403, xerrors.HTTPStatus(err))
}

func TestSeventhDayEarnsMilestone(t *testing.T) {
	f := newFixture()
	for i := 0; i < 7; i++ {
		_, err := f.checkIn(t, i)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"streak_7"}, f.repo.recorded[6].Achievements)
}

func TestGetAndDeletePermissions(t *testing.T) {
	f := newFixture()
	c, err := f.checkIn(t, 0)
	require.NoError(t, err)
	ctx := context.Background()

	got, err := f.svc.Get(ctx, 2, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = f.svc.Get(ctx, 3, c.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, 2, false, c.ID), xerrors.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, 99, true, c.ID))
	assert.Empty(t, f.repo.list)

	assert.ErrorIs(t, f.svc.Delete(ctx, 1, false, c.ID), xerrors.ErrNotFound)
}

func TestListByEventRequiresParticipant(t *testing.T) {
	f := newFixture()

	_, err := f.svc.ListByEvent(context.Background(), 3, 10, 0, 0)
	assert.ErrorIs(t, err, xerrors.ErrNotParticipant)

	list, err := f.svc.ListByEvent(context.Background(), 2, 10, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
