package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Storage drivers understood by the server.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	AppPort         string        `env:"APP_PORT" envDefault:"8080"`
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	StorageDriver   string        `env:"STORAGE_DRIVER" envDefault:"postgres"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	JWT       JWTConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig

	// TokenSweepInterval is how often expired refresh tokens are hard-deleted.
	TokenSweepInterval time.Duration `env:"TOKEN_SWEEP_INTERVAL" envDefault:"168h"`
}

// JWTConfig holds the signing secrets and lifetimes of issued tokens.
type JWTConfig struct {
	AccessSecret  string        `env:"JWT_ACCESS_SECRET,required,notEmpty"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET,required,notEmpty"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_EXPIRES" envDefault:"15m"`
	RefreshTTL    time.Duration `env:"REFRESH_TOKEN_EXPIRES" envDefault:"336h"`
}

// DatabaseConfig holds database specific configuration.
type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"POSTGRES_USER"`
	Password        string        `env:"POSTGRES_PASSWORD"`
	DBName          string        `env:"POSTGRES_DB"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"30"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnectRetries  int           `env:"DB_CONNECT_RETRIES" envDefault:"10"`
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig points at the shared counter store. An empty Addr keeps
// rate limiting in-process.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// RateLimitConfig bounds login attempts per client IP.
type RateLimitConfig struct {
	LoginMaxRequests int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginWindow      time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Redis.Addr == "" {
		logrus.Warn("REDIS_ADDR not set, login rate limiting will be kept in process memory")
	}
	if !cfg.IsProduction() {
		logrus.Warnf("APP_ENV is %q, refresh token cookies will not be marked Secure", cfg.Environment)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.AccessSecret == c.JWT.RefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.TokenSweepInterval <= 0 {
		return errors.New("TOKEN_SWEEP_INTERVAL must be positive")
	}

	switch c.StorageDriver {
	case StorageMemory:
		logrus.Warn("STORAGE_DRIVER=memory, users and refresh tokens are lost on restart")
	case StoragePostgres:
		// Use POSTGRES_* names as defined in docker-compose.yml
		if c.Database.User == "" {
			return errors.New("POSTGRES_USER environment variable not set")
		}
		if c.Database.Password == "" {
			return errors.New("POSTGRES_PASSWORD environment variable not set")
		}
		if c.Database.DBName == "" {
			return errors.New("POSTGRES_DB environment variable not set")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	return nil
}
