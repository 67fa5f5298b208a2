package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"autoscore"`
	Password string `env:"PASSWORD" envDefault:"autoscore"`
	Name     string `env:"NAME"     envDefault:"autoscore"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether migrations are applied during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the shared progress cache.
// Redis is optional: when Addr is empty the engine keeps progress snapshots
// in process memory only.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:""`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`

	// ProgressTTL bounds how long a finished job's snapshot lingers before
	// consumers fall back to durable task counts.
	ProgressTTL time.Duration `env:"PROGRESS_TTL" envDefault:"1h"`
}
