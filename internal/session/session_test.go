package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl), mr
}

func TestStore_CreateGet(t *testing.T) {
	s, _ := newStore(t, time.Hour)

	sess := &Session{
		UserID:    1,
		Mail:      "jean@cerisonet.fr",
		FirstName: "Jean",
		LastName:  "Dupont",
		LastLogin: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}

	token, err := s.Create(context.Background(), sess)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := s.Get(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestStore_Get_notFound(t *testing.T) {
	s, _ := newStore(t, time.Hour)

	got, err := s.Get(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Get_expired(t *testing.T) {
	s, mr := newStore(t, time.Minute)

	token, err := s.Create(context.Background(), &Session{UserID: 1})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = s.Get(context.Background(), token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Get_slidingWindow(t *testing.T) {
	s, mr := newStore(t, time.Minute)

	token, err := s.Create(context.Background(), &Session{UserID: 1})
	require.NoError(t, err)

	// every read pushes the expiry out, so a session read more often
	// than the ttl never expires
	for i := 0; i < 3; i++ {
		mr.FastForward(45 * time.Second)

		_, err = s.Get(context.Background(), token)
		require.NoError(t, err)
	}

	mr.FastForward(2 * time.Minute)

	_, err = s.Get(context.Background(), token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	s, _ := newStore(t, time.Hour)

	token, err := s.Create(context.Background(), &Session{UserID: 1})
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), token))

	_, err = s.Get(context.Background(), token)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting twice is a no-op
	assert.NoError(t, s.Delete(context.Background(), token))
}
