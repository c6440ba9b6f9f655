package store

import (
	"errors"
	"testing"

	"rollcall-service/internal/client/storage"
	"rollcall-service/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = &user.Profile{ID: 1, Email: "ada@example.com", Name: "Ada", Role: user.RoleUser}

func TestHydrateDoesNotAuthenticate(t *testing.T) {
	tokens := storage.NewMemory()
	require.NoError(t, tokens.Set(storage.TokenKey, "old"))

	s := New(tokens, nil)

	st := s.State()
	assert.Equal(t, "old", st.Token)
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
}

func TestSetCredentials(t *testing.T) {
	tokens := storage.NewMemory()
	s := New(tokens, nil)
	s.SetError("previous failure")

	require.NoError(t, s.SetCredentials(Credentials{Token: "T", User: ada}))

	st := s.State()
	assert.Equal(t, "T", st.Token)
	assert.Equal(t, ada, st.User)
	assert.True(t, st.IsAuthenticated)
	assert.Empty(t, st.Error)

	v, ok := tokens.Get(storage.TokenKey)
	assert.True(t, ok)
	assert.Equal(t, "T", v)
}

func TestLogout(t *testing.T) {
	tokens := storage.NewMemory()
	s := New(tokens, nil)
	require.NoError(t, s.SetCredentials(Credentials{Token: "T", User: ada}))

	require.NoError(t, s.Logout())

	st := s.State()
	assert.Empty(t, st.Token)
	assert.Nil(t, st.User)
	assert.False(t, st.IsAuthenticated)
	_, ok := tokens.Get(storage.TokenKey)
	assert.False(t, ok)
}

func TestSetUserKeepsSession(t *testing.T) {
	s := New(storage.NewMemory(), nil)
	require.NoError(t, s.SetCredentials(Credentials{Token: "T", User: ada}))

	grace := &user.Profile{ID: 1, Name: "Grace"}
	s.SetUser(grace)

	st := s.State()
	assert.Equal(t, "T", st.Token)
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, grace, st.User)
}

func TestSnapshotsAreCopies(t *testing.T) {
	p := &user.Profile{ID: 1, Achievements: []string{"first_checkin"}}
	s := New(storage.NewMemory(), nil)
	require.NoError(t, s.SetCredentials(Credentials{Token: "T", User: p}))

	p.Achievements[0] = "mutated"
	st := s.State()
	st.User.Name = "changed"

	again := s.State()
	assert.Equal(t, "first_checkin", again.User.Achievements[0])
	assert.Empty(t, again.User.Name)
}

func TestLoadingAndSubscribers(t *testing.T) {
	s := New(storage.NewMemory(), nil)
	var seen []bool
	s.Subscribe(func(st State) { seen = append(seen, st.Loading) })

	s.SetLoading(true)
	s.SetLoading(false)

	assert.Equal(t, []bool{true, false}, seen)
}

type failingStore struct{ *storage.Memory }

func (f *failingStore) Set(string, string) error { return errors.New("disk full") }

func TestStorageFailureStillUpdatesState(t *testing.T) {
	s := New(&failingStore{Memory: storage.NewMemory()}, nil)

	err := s.SetCredentials(Credentials{Token: "T", User: ada})

	assert.EqualError(t, err, "disk full")
	assert.True(t, s.State().IsAuthenticated)
}
