package event

import (
	"context"
	"testing"
	"time"

	"rollcall-service/internal/domain/event"
	"rollcall-service/internal/domain/leaderboard"
	wstypes "rollcall-service/internal/domain/websocket"
	xerrors "rollcall-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	events  map[int64]*event.Event
	invites map[int64][]int64
	nextID  int64
}

func newMemRepo() *memRepo {
	return &memRepo{events: map[int64]*event.Event{}, invites: map[int64][]int64{}}
}

func (m *memRepo) Create(_ context.Context, e *event.Event) error {
	m.nextID++
	e.ID = m.nextID
	e.Participants = []int64{e.CreatorID}
	e.ParticipantCount = 1
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id int64) (*event.Event, error) {
	e, ok := m.events[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *e
	cp.Participants = append([]int64(nil), e.Participants...)
	cp.InvitedUsers = append([]int64(nil), m.invites[id]...)
	return &cp, nil
}

func (m *memRepo) ListPublic(context.Context, event.ListQuery) ([]*event.Event, error) { return nil, nil }
func (m *memRepo) ListByCreator(context.Context, int64) ([]*event.Event, error)       { return nil, nil }
func (m *memRepo) ListParticipating(context.Context, int64) ([]*event.Event, error)   { return nil, nil }
func (m *memRepo) ListPopular(context.Context, int) ([]*event.Event, error)           { return nil, nil }

func (m *memRepo) Update(_ context.Context, e *event.Event) error {
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	delete(m.events, id)
	return nil
}

func (m *memRepo) AddParticipant(_ context.Context, eventID, userID int64) error {
	e := m.events[eventID]
	e.Participants = append(e.Participants, userID)
	return nil
}

func (m *memRepo) RemoveParticipant(_ context.Context, eventID, userID int64) error {
	e := m.events[eventID]
	e.Participants = others(e.Participants, userID)
	return nil
}

func (m *memRepo) AddInvites(_ context.Context, eventID, _ int64, userIDs []int64) (int64, error) {
	m.invites[eventID] = append(m.invites[eventID], userIDs...)
	return int64(len(userIDs)), nil
}

func (m *memRepo) Stats(_ context.Context, eventID int64, _ time.Time) (*event.Stats, error) {
	return &event.Stats{EventID: eventID, ParticipantCount: len(m.events[eventID].Participants)}, nil
}

type fakeBoards struct {
	calls       int
	invalidated []int64
}

func (f *fakeBoards) Invalidate(_ context.Context, eventID int64) {
	f.invalidated = append(f.invalidated, eventID)
}

func (f *fakeBoards) ForEvent(context.Context, int64, int) ([]leaderboard.Entry, error) {
	f.calls++
	return []leaderboard.Entry{}, nil
}

type published struct {
	userIDs []int64
	typ     wstypes.EventType
}

type fakePublisher struct{ sent []published }

func (f *fakePublisher) PublishEvent(userIDs []int64, eventType wstypes.EventType, _ interface{}) {
	f.sent = append(f.sent, published{userIDs: userIDs, typ: eventType})
}

func newService() (*EventService, *memRepo, *fakeBoards, *fakePublisher) {
	repo := newMemRepo()
	boards := &fakeBoards{}
	pub := &fakePublisher{}
	return NewEventService(repo, boards, pub, nil), repo, boards, pub
}

func boolPtr(b bool) *bool { return &b }

func TestCreateSanitises(t *testing.T) {
	svc, _, _, _ := newService()

	e, err := svc.Create(context.Background(), 1, &event.CreateRequest{
		Title:       "<b>Morning</b> Run",
		Description: `<img src=x onerror="alert(1)">5k before work`,
		Category:    " Fitness ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Morning Run", e.Title)
	assert.Equal(t, "5k before work", e.Description)
	assert.Equal(t, "fitness", e.Category)
	assert.True(t, e.IsPublic)
	assert.Equal(t, []int64{1}, e.Participants)

	_, err = svc.Create(context.Background(), 1, &event.CreateRequest{Title: "<i></i>ab"})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestPrivateEventVisibility(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()

	e, err := svc.Create(ctx, 1, &event.CreateRequest{Title: "Secret club", IsPublic: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, e.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = svc.Join(ctx, 2, e.ID)
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	n, err := svc.Invite(ctx, 1, e.ID, &event.InviteRequest{UserIDs: []int64{2, 2, 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.Get(ctx, 2, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	joined, err := svc.Join(ctx, 2, e.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, joined.Participants)
}

func TestJoinTwice(t *testing.T) {
	svc, _, _, pub := newService()
	ctx := context.Background()
	e, err := svc.Create(ctx, 1, &event.CreateRequest{Title: "Daily standup"})
	require.NoError(t, err)

	_, err = svc.Join(ctx, 2, e.ID)
	require.NoError(t, err)
	_, err = svc.Join(ctx, 2, e.ID)
	assert.ErrorIs(t, err, xerrors.ErrAlreadyParticipant)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, wstypes.EventTypeParticipantJoined, pub.sent[0].typ)
	assert.ElementsMatch(t, []int64{1, 2}, pub.sent[0].userIDs)
}

func TestLeave(t *testing.T) {
	svc, repo, _, _ := newService()
	ctx := context.Background()
	e, err := svc.Create(ctx, 1, &event.CreateRequest{Title: "Reading"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Leave(ctx, 1, e.ID), xerrors.ErrCreatorCannotLeave)

	err = svc.Leave(ctx, 3, e.ID)
	assert.ErrorIs(t, err, xerrors.ErrBadRequest)
	assert.Equal(t, 400, xerrors.HTTPStatus(err))

	_, err = svc.Join(ctx, 3, e.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Leave(ctx, 3, e.ID))
	assert.Equal(t, []int64{1}, repo.events[e.ID].Participants)
}

func TestMembershipChangesDropCachedBoard(t *testing.T) {
	svc, _, boards, _ := newService()
	ctx := context.Background()
	e, err := svc.Create(ctx, 1, &event.CreateRequest{Title: "Swim"})
	require.NoError(t, err)

	_, err = svc.Join(ctx, 2, e.ID)
	require.NoError(t, err)
	_, err = svc.Join(ctx, 2, e.ID)
	require.Error(t, err)
	assert.Equal(t, []int64{e.ID}, boards.invalidated)

	require.NoError(t, svc.Leave(ctx, 2, e.ID))
	assert.Equal(t, []int64{e.ID, e.ID}, boards.invalidated)

	require.NoError(t, svc.Delete(ctx, 1, e.ID))
	assert.Len(t, boards.invalidated, 3)
}

func TestUpdateAndDeleteCreatorOnly(t *testing.T) {
	svc, repo, _, pub := newService()
	ctx := context.Background()
	e, err := svc.Create(ctx, 1, &event.CreateRequest{Title: "Yoga"})
	require.NoError(t, err)
	_, err = svc.Join(ctx, 2, e.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, 2, e.ID, &event.UpdateRequest{Title: strPtr("Hijacked")})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, 2, e.ID), xerrors.ErrForbidden)

	updated, err := svc.Update(ctx, 1, e.ID, &event.UpdateRequest{Title: strPtr("Evening yoga")})
	require.NoError(t, err)
	assert.Equal(t, "Evening yoga", updated.Title)
	assert.Equal(t, wstypes.EventTypeEventUpdated, pub.sent[len(pub.sent)-1].typ)

	require.NoError(t, svc.Delete(ctx, 1, e.ID))
	assert.Empty(t, repo.events)
	assert.Equal(t, []int64{2}, pub.sent[len(pub.sent)-1].userIDs)
}

func TestInviteNeedsMembership(t *testing.T) {
	svc, _, _, _ := newService()
	ctx := context.Background()
	e, err := svc.Create(ctx, 1, &event.CreateRequest{Title: "Chess"})
	require.NoError(t, err)

	_, err = svc.Invite(ctx, 5, e.ID, &event.InviteRequest{UserIDs: []int64{6}})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
}

func TestLeaderboardAndStatsRespectVisibility(t *testing.T) {
	svc, _, boards, _ := newService()
	ctx := context.Background()
	e, err := svc.Create(ctx, 1, &event.CreateRequest{Title: "Private", IsPublic: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.Leaderboard(ctx, 9, e.ID, 10)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
	_, err = svc.Stats(ctx, 9, e.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
	assert.Zero(t, boards.calls)

	_, err = svc.Leaderboard(ctx, 1, e.ID, 10)
	require.NoError(t, err)
	st, err := svc.Stats(ctx, 1, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ParticipantCount)
}

func strPtr(s string) *string { return &s }
