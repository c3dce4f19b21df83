package emergency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/care-access/internal/domain"
)

const tokenKeyPrefix = "emergency:token:"

// RedisTokenStore keeps token records until their natural expiry, revoked ones included.
type RedisTokenStore struct {
	client redis.UniversalClient
}

func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Put(ctx context.Context, digest string, token *domain.EmergencyToken, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("emergency token %s: non-positive ttl %s", digest, ttl)
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode emergency token: %w", err)
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+digest, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put emergency token: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Get(ctx context.Context, digest string) (*domain.EmergencyToken, error) {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+digest).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("get emergency token: %w", err)
	}
	var token domain.EmergencyToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode emergency token: %w", err)
	}
	return &token, nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, digest string) error {
	if err := s.client.Del(ctx, tokenKeyPrefix+digest).Err(); err != nil {
		return fmt.Errorf("delete emergency token: %w", err)
	}
	return nil
}
