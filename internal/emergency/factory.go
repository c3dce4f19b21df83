package emergency

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/care-access/internal/config"
)

// NewTokenStore picks the configured backend.
func NewTokenStore(cfg config.EmergencyConfig, db *sql.DB, client redis.UniversalClient) (TokenStore, error) {
	switch cfg.Store {
	case config.StorePostgres:
		if db == nil {
			return nil, errors.New("postgres token store requires POSTGRES_DSN")
		}
		return NewPostgresTokenStore(db), nil
	case config.StoreRedis:
		if client == nil {
			return nil, errors.New("redis token store requires a redis client")
		}
		return NewRedisTokenStore(client), nil
	default:
		return nil, fmt.Errorf("unknown emergency token store %q", cfg.Store)
	}
}

// OptionsFrom converts configured minutes to service options.
func OptionsFrom(cfg config.EmergencyConfig) Options {
	return Options{
		DefaultTTL: cfg.DefaultTTL(),
		MinTTL:     cfg.MinTTL(),
		MaxTTL:     cfg.MaxTTL(),
		Retention:  cfg.Retention(),
	}
}
