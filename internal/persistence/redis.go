package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/care-access/internal/config"
)

const startupPingTimeout = 3 * time.Second

// Redis holds the client shared by the session store and the redis token store.
type Redis struct {
	Client redis.UniversalClient
}

// NewRedis builds a client over one address, or a cluster when several are
// configured, and checks it once. On a failed check the client is still
// returned: go-redis reconnects by itself and the caller decides whether the
// service may start without it.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*Redis, error) {
	addrs := cfg.Addrs()
	r := &Redis{Client: redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		return r, fmt.Errorf("redis %s: %w", strings.Join(addrs, ","), err)
	}
	logger.Info("connected to redis", zap.Strings("addrs", addrs))
	return r, nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
