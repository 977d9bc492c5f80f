package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/microbes-potential/conatoc-net/internal/domain"
)

const redisKeyPrefix = "session:"

// RedisStore keeps session records in Redis with a TTL matching the
// session expiry, so stale records clean themselves up.
type RedisStore struct {
	client redis.UniversalClient
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore constructs a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

type redisRecord struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Save persists the session until its expiry.
func (s *RedisStore) Save(ctx context.Context, sess domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}
	payload, err := json.Marshal(redisRecord{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Role:      string(sess.Role),
		ExpiresAt: sess.ExpiresAt,
		CreatedAt: sess.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sess.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Get loads a session record; the second return is false when the
// record is gone (logged out or expired).
func (s *RedisStore) Get(ctx context.Context, id string) (domain.Session, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return domain.Session{}, false, nil
		}
		return domain.Session{}, false, fmt.Errorf("load session: %w", err)
	}
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session: %w", err)
	}
	role, err := domain.ParseRole(rec.Role)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("decode session role: %w", err)
	}
	return domain.Session{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Role:      role,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, true, nil
}

// Delete removes the record. Deleting a missing record is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
