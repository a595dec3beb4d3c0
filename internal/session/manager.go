// Package session provides session management for all MeetAI services.
// Sessions are stored in Redis with TTL-based expiration; the auth service
// additionally keeps the canonical session row in Postgres.
// This is a shared infrastructure package used by the gateway and auth services.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session has expired
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidSession is returned when session data is invalid
	ErrInvalidSession = errors.New("invalid session")
)

// CreateParams carries the request context captured at sign-in time
type CreateParams struct {
	UserID    string
	Email     string
	Name      string
	IPAddress string
	UserAgent string
	MaxAge    int // seconds
}

// Manager defines the interface for session management operations
type Manager interface {
	Create(ctx context.Context, params CreateParams) (*Session, error)
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	Validate(ctx context.Context, token string) (bool, error)
}

// manager implements Manager interface
type manager struct {
	store Store
}

// NewManager creates a new session manager
func NewManager(store Store) Manager {
	return &manager{
		store: store,
	}
}

// Create creates a new session and returns it
func (m *manager) Create(ctx context.Context, params CreateParams) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		Token:     uuid.New().String(),
		UserID:    params.UserID,
		Email:     params.Email,
		Name:      params.Name,
		IPAddress: params.IPAddress,
		UserAgent: params.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(params.MaxAge) * time.Second),
	}

	sessionData, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	key := fmt.Sprintf("session:%s", session.Token)
	ttl := time.Duration(params.MaxAge) * time.Second

	if err := m.store.Set(ctx, key, string(sessionData), ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	return session, nil
}

// Get retrieves a session by token
func (m *manager) Get(ctx context.Context, token string) (*Session, error) {
	key := fmt.Sprintf("session:%s", token)

	sessionData, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	var session Session
	if err := json.Unmarshal([]byte(sessionData), &session); err != nil {
		return nil, ErrInvalidSession
	}

	// Redis TTL should have evicted it already, but re-check the deadline
	if time.Now().After(session.ExpiresAt) {
		m.store.Delete(ctx, key)
		return nil, ErrSessionExpired
	}

	return &session, nil
}

// Delete removes a session
func (m *manager) Delete(ctx context.Context, token string) error {
	key := fmt.Sprintf("session:%s", token)
	return m.store.Delete(ctx, key)
}

// Validate checks if a session exists and is valid
func (m *manager) Validate(ctx context.Context, token string) (bool, error) {
	session, err := m.Get(ctx, token)
	if err != nil {
		return false, err
	}

	return session != nil, nil
}
