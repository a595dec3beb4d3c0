package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryStore is an in-memory Store for tests
type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", errors.New("key not found")
	}
	return v, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func TestManagerCreateAndGet(t *testing.T) {
	mgr := NewManager(newMemoryStore())
	ctx := context.Background()

	sess, err := mgr.Create(ctx, CreateParams{
		UserID:    "user-1",
		Email:     "alice@example.com",
		Name:      "Alice",
		IPAddress: "10.0.0.1",
		UserAgent: "test-agent",
		MaxAge:    3600,
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.NotEqual(t, sess.ID, sess.Token)

	got, err := mgr.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, "10.0.0.1", got.IPAddress)
	assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, 5*time.Second)
}

func TestManagerGetUnknownToken(t *testing.T) {
	mgr := NewManager(newMemoryStore())

	_, err := mgr.Get(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerGetExpiredSession(t *testing.T) {
	store := newMemoryStore()
	mgr := NewManager(store)
	ctx := context.Background()

	sess, err := mgr.Create(ctx, CreateParams{
		UserID: "user-2",
		Email:  "bob@example.com",
		MaxAge: -10, // already expired
	})
	require.NoError(t, err)

	_, err = mgr.Get(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	// expired sessions are evicted on read
	exists, _ := store.Exists(ctx, "session:"+sess.Token)
	assert.False(t, exists)
}

func TestManagerDelete(t *testing.T) {
	mgr := NewManager(newMemoryStore())
	ctx := context.Background()

	sess, err := mgr.Create(ctx, CreateParams{UserID: "user-3", Email: "c@example.com", MaxAge: 60})
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, sess.Token))

	ok, err := mgr.Validate(ctx, sess.Token)
	assert.False(t, ok)
	assert.Error(t, err)
}
