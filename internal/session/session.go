// Package session contains a redis-backed server-side session store.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound returned when there is no session for the given token.
var ErrNotFound = fmt.Errorf("session not found")

const keyPrefix = "session:"

// Session is the account summary bound to a cookie-carried token.
type Session struct {
	UserID    int64     `json:"id"`
	Mail      string    `json:"mail"`
	FirstName string    `json:"prenom"`
	LastName  string    `json:"nom"`
	LastLogin time.Time `json:"lastLogin"`
}

// Store keeps sessions in redis with a sliding retention window.
type Store struct {
	c   *redis.Client
	ttl time.Duration
}

// New creates new instance of Store.
func New(c *redis.Client, ttl time.Duration) *Store {
	return &Store{
		c:   c,
		ttl: ttl,
	}
}

// Create stores the session and returns a fresh token.
func (s *Store) Create(ctx context.Context, sess *Session) (string, error) {
	b, err := json.Marshal(sess)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	token := uuid.NewString()

	if err := s.c.Set(ctx, keyPrefix+token, b, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return token, nil
}

// Get returns the session bound to token and refreshes its retention window.
func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	b, err := s.c.GetEx(ctx, keyPrefix+token, s.ttl).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

// Delete destroys the session, deleting an absent session is a no-op.
func (s *Store) Delete(ctx context.Context, token string) error {
	if err := s.c.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
