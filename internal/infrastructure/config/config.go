package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	// Stream source
	SourcePath      string `env:"SOURCE_PATH"      envDefault:""`
	AmountPrecision int    `env:"AMOUNT_PRECISION" envDefault:"4"`

	// Engine
	WithdrawalDisputes bool `env:"WITHDRAWAL_DISPUTES" envDefault:"true"`
	EvictOnLock        bool `env:"EVICT_ON_LOCK"       envDefault:"true"`
	JournalCapacity    int  `env:"JOURNAL_CAPACITY"    envDefault:"0"`
	VerifyOnBoot       bool `env:"VERIFY_ON_BOOT"      envDefault:"false"`

	// Database (optional - leave empty to disable the event archive)
	DatabaseURL      string        `env:"DATABASE_URL"       envDefault:""`
	DatabaseMaxConns int           `env:"DATABASE_MAX_CONNS" envDefault:"25"`
	DatabaseMinConns int           `env:"DATABASE_MIN_CONNS" envDefault:"5"`
	DatabaseTimeout  time.Duration `env:"DATABASE_TIMEOUT"   envDefault:"30s"`
	MigrateOnStart   bool          `env:"MIGRATE_ON_START"   envDefault:"true"`

	// Redis (optional - leave empty to disable the snapshot mirror)
	RedisURL    string        `env:"REDIS_URL"    envDefault:""`
	SnapshotTTL time.Duration `env:"SNAPSHOT_TTL" envDefault:"24h"`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Rate limiting (0 disables)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ArchiveEnabled reports whether the PostgreSQL event archive is wired.
func (c *Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

// MirrorEnabled reports whether the Redis snapshot mirror is wired.
func (c *Config) MirrorEnabled() bool {
	return c.RedisURL != ""
}
