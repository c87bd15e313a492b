// Package session is a typed key/value store scoped by session ID, backed by
// redis with a sliding TTL. Values are JSON-encoded; callers own the schema
// of what they put in.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

var ErrNoValue = apperr.New(apperr.CodeNotFound, "no value for session key")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func key(sessionID, field string) string {
	return "session:" + sessionID + ":" + field
}

// Set stores v under the session-scoped field and resets its TTL.
func Set[T any](ctx context.Context, s *Store, sessionID, field string, v T) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "encode session value", err)
	}
	if err := s.rdb.Set(ctx, key(sessionID, field), payload, s.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "write session value", err)
	}
	return nil
}

// Get loads the session-scoped field into a T. A missing or expired field
// returns ErrNoValue.
func Get[T any](ctx context.Context, s *Store, sessionID, field string) (T, error) {
	var out T
	payload, err := s.rdb.Get(ctx, key(sessionID, field)).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, ErrNoValue
	}
	if err != nil {
		return out, apperr.Wrap(apperr.CodeInternal, "read session value", err)
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, apperr.Wrap(apperr.CodeInternal, "decode session value", err)
	}
	return out, nil
}

// Clear removes one field from the session.
func (s *Store) Clear(ctx context.Context, sessionID, field string) error {
	if err := s.rdb.Del(ctx, key(sessionID, field)).Err(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "clear session value", err)
	}
	return nil
}

// ClearAll removes every field stored for the session.
func (s *Store) ClearAll(ctx context.Context, sessionID string) error {
	iter := s.rdb.Scan(ctx, 0, key(sessionID, "*"), 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "scan session keys", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return apperr.Wrap(apperr.CodeInternal, "clear session", err)
	}
	return nil
}
