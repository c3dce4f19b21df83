package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/care-access/internal/domain"
)

// ErrSessionNotFound is returned when no live record exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists session records keyed by session id.
type SessionStore interface {
	Get(ctx context.Context, token string) (*domain.Session, error)
	Put(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, token string) error
}

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps sessions in Redis with a TTL matching their expiry.
type RedisSessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisSessionStore wraps an already connected client.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	if s == nil || s.client == nil {
		return nil, errors.New("session store not configured")
	}
	raw, err := s.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return domain.UnmarshalSession(token, raw)
}

func (s *RedisSessionStore) Put(ctx context.Context, sess *domain.Session) error {
	if s == nil || s.client == nil {
		return errors.New("session store not configured")
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.Token)
	}
	raw, err := domain.MarshalSession(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sess.Token, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if s == nil || s.client == nil {
		return errors.New("session store not configured")
	}
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
