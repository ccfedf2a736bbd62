package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Cart     CartConfig
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
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	AccessTokenSecret      string
	RefreshTokenSecret     string
	AccessTokenTTLHours    int
	RefreshTokenTTLHours   int
	BcryptCost             int
	MaxLoginAttempts       int
	LockoutDurationHours   int
	RateLimitMaxRequests   int
	RateLimitWindowMinutes int
}

// CartConfig defines cart engine parameters.
type CartConfig struct {
	TaxRate                float64
	UserCartTTLDays        int
	GuestCartTTLDays       int
	AbandonedRetentionDays int
	DefaultCurrency        string
	CleanupIntervalMinutes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	taxRate, err := strconv.ParseFloat(getEnv("CART_TAX_RATE", "0.10"), 64)
	if err != nil || taxRate < 0 {
		return nil, fmt.Errorf("invalid CART_TAX_RATE: %v", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "delivergaz-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
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
			AccessTokenSecret:      getEnv("AUTH_ACCESS_TOKEN_SECRET", "dev-access-secret"),
			RefreshTokenSecret:     getEnv("AUTH_REFRESH_TOKEN_SECRET", "dev-refresh-secret"),
			AccessTokenTTLHours:    getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_HOURS", 7*24),
			RefreshTokenTTLHours:   getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 30*24),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			MaxLoginAttempts:       getEnvAsInt("AUTH_MAX_LOGIN_ATTEMPTS", 5),
			LockoutDurationHours:   getEnvAsInt("AUTH_LOCKOUT_DURATION_HOURS", 2),
			RateLimitMaxRequests:   getEnvAsInt("AUTH_RATE_LIMIT_MAX_REQUESTS", 100),
			RateLimitWindowMinutes: getEnvAsInt("AUTH_RATE_LIMIT_WINDOW_MINUTES", 15),
		},
		Cart: CartConfig{
			TaxRate:                taxRate,
			UserCartTTLDays:        getEnvAsInt("CART_USER_TTL_DAYS", 30),
			GuestCartTTLDays:       getEnvAsInt("CART_GUEST_TTL_DAYS", 7),
			AbandonedRetentionDays: getEnvAsInt("CART_ABANDONED_RETENTION_DAYS", 7),
			DefaultCurrency:        getEnv("CART_DEFAULT_CURRENCY", "USD"),
			CleanupIntervalMinutes: getEnvAsInt("CART_CLEANUP_INTERVAL_MINUTES", 60),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the access token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLHours) * time.Hour
}

// RefreshTokenTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// LockoutDuration returns how long a locked account rejects logins.
func (a AuthConfig) LockoutDuration() time.Duration {
	return time.Duration(a.LockoutDurationHours) * time.Hour
}

// RateLimitWindow returns the per-user rate limit window.
func (a AuthConfig) RateLimitWindow() time.Duration {
	return time.Duration(a.RateLimitWindowMinutes) * time.Minute
}

// UserCartTTL returns the expiry horizon for user-owned carts.
func (c CartConfig) UserCartTTL() time.Duration {
	return time.Duration(c.UserCartTTLDays) * 24 * time.Hour
}

// GuestCartTTL returns the expiry horizon for guest carts.
func (c CartConfig) GuestCartTTL() time.Duration {
	return time.Duration(c.GuestCartTTLDays) * 24 * time.Hour
}

// AbandonedRetention returns how long abandoned carts survive before reaping.
func (c CartConfig) AbandonedRetention() time.Duration {
	return time.Duration(c.AbandonedRetentionDays) * 24 * time.Hour
}

// CleanupInterval returns the cart reaper period.
func (c CartConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
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
