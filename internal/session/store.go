// Package session keeps each browser's workflow state in Redis.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ayush/text-analysis/web/internal/workflow"
)

const (
	DefaultTTL = 24 * time.Hour
	CookieName = "ta_session"
)

// Store wraps Redis for session state.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// TTL is how long an idle session lives.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create stores a fresh state under a new session ID.
func (s *Store) Create(ctx context.Context) (*workflow.State, error) {
	st := workflow.New(uuid.New().String())
	if err := s.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Load returns the state for a session, or nil if not found / expired.
// A hit restarts the TTL.
func (s *Store) Load(ctx context.Context, sessionID string) (*workflow.State, error) {
	raw, err := s.rdb.GetEx(ctx, key(sessionID), s.ttl).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var st workflow.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	st.ID = sessionID
	return &st, nil
}

// Save writes the state and restarts its TTL.
func (s *Store) Save(ctx context.Context, st *workflow.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, key(st.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, key(sessionID)).Err()
}

func key(sessionID string) string {
	return "session:" + sessionID
}
