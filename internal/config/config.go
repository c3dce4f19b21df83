package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Emergency    EmergencyConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. Addr may list several
// comma-separated cluster nodes.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session parameters shared by every credential domain.
type AuthConfig struct {
	SessionSecret     string
	SessionTTLMinutes int
	CookieSecure      bool
}

// EmergencyConfig bounds emergency-access tokens.
type EmergencyConfig struct {
	Store             string
	DefaultTTLMinutes int
	MinTTLMinutes     int
	MaxTTLMinutes     int

	// PurgeIntervalMinutes paces removal of expired rows from the durable store; 0 disables it.
	PurgeIntervalMinutes int
	// RetentionMinutes keeps expired records around so they still validate as expired.
	RetentionMinutes     int
}

// NotificationConfig holds the audit sink endpoint.
type NotificationConfig struct {
	WebhookURL            string
	WebhookTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "care-access"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			SessionSecret:     getEnv("AUTH_SESSION_SECRET", defaultSessionSecret),
			SessionTTLMinutes: getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 480),
			CookieSecure:      getEnvAsBool("AUTH_COOKIE_SECURE", false),
		},
		Emergency: EmergencyConfig{
			Store:             strings.ToLower(getEnv("EMERGENCY_TOKEN_STORE", StorePostgres)),
			DefaultTTLMinutes: getEnvAsInt("EMERGENCY_DEFAULT_TTL_MINUTES", 24*60),
			MinTTLMinutes:     getEnvAsInt("EMERGENCY_MIN_TTL_MINUTES", 5),
			MaxTTLMinutes:     getEnvAsInt("EMERGENCY_MAX_TTL_MINUTES", 30*24*60),

			PurgeIntervalMinutes: getEnvAsInt("EMERGENCY_PURGE_INTERVAL_MINUTES", 60),
			RetentionMinutes:     getEnvAsInt("EMERGENCY_RETENTION_MINUTES", 7*24*60),
		},
		Notification: NotificationConfig{
			WebhookURL:            getEnv("NOTIFY_WEBHOOK_URL", ""),
			WebhookTimeoutSeconds: getEnvAsInt("NOTIFY_WEBHOOK_TIMEOUT_SECONDS", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultSessionSecret = "dev-secret"

// Emergency token store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Emergency.Store {
	case StorePostgres, StoreRedis:
	default:
		return fmt.Errorf("invalid EMERGENCY_TOKEN_STORE %q", c.Emergency.Store)
	}
	if c.Emergency.MinTTLMinutes <= 0 || c.Emergency.MaxTTLMinutes < c.Emergency.MinTTLMinutes {
		return fmt.Errorf("invalid emergency ttl bounds [%d, %d]", c.Emergency.MinTTLMinutes, c.Emergency.MaxTTLMinutes)
	}
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("AUTH_SESSION_SECRET must not be empty")
	}
	if c.Auth.SessionSecret == defaultSessionSecret && !c.App.LocalEnv() {
		return fmt.Errorf("AUTH_SESSION_SECRET must be set outside development and test (APP_ENV=%q)", c.App.Env)
	}
	if c.Emergency.RetentionMinutes < 0 {
		return fmt.Errorf("invalid EMERGENCY_RETENTION_MINUTES %d", c.Emergency.RetentionMinutes)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// LocalEnv reports whether the service runs in development or test, the only
// environments allowed to fall back to the built-in session secret.
func (a AppConfig) LocalEnv() bool {
	switch strings.ToLower(a.Env) {
	case "development", "test":
		return true
	}
	return false
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Addrs splits Addr into node addresses.
func (r RedisConfig) Addrs() []string {
	var addrs []string
	for _, a := range strings.Split(r.Addr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// SessionTTL returns how long new sessions stay valid.
func (a AuthConfig) SessionTTL() time.Duration {
	if a.SessionTTLMinutes <= 0 {
		return 8 * time.Hour
	}
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// DefaultTTL is used when an issue request does not name a ttl.
func (e EmergencyConfig) DefaultTTL() time.Duration {
	return time.Duration(e.DefaultTTLMinutes) * time.Minute
}

// MinTTL is the shortest ttl an emergency token may be issued with.
func (e EmergencyConfig) MinTTL() time.Duration {
	return time.Duration(e.MinTTLMinutes) * time.Minute
}

// MaxTTL is the longest ttl an emergency token may be issued with.
func (e EmergencyConfig) MaxTTL() time.Duration {
	return time.Duration(e.MaxTTLMinutes) * time.Minute
}

func (e EmergencyConfig) PurgeInterval() time.Duration {
	if e.PurgeIntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(e.PurgeIntervalMinutes) * time.Minute
}

// Retention is how long expired or revoked records are kept before purging.
func (e EmergencyConfig) Retention() time.Duration {
	if e.RetentionMinutes <= 0 {
		return 0
	}
	return time.Duration(e.RetentionMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
