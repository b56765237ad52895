package pgstore

import "time"

// Config holds the Postgres connection settings loaded from the environment.
type Config struct {
	ConnectionString  string        `env:"PROFILE_PG_CONN_URL,required"`
	MaxOpenConns      int32         `env:"PROFILE_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"PROFILE_PG_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"PROFILE_PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PROFILE_PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PROFILE_PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"PROFILE_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PROFILE_PG_RETRY_INTERVAL" envDefault:"5s"`

	MigrationsTable string `env:"PROFILE_PG_MIGRATIONS_TABLE" envDefault:"flagkit_schema_migrations"`
	AutoMigrate     bool   `env:"PROFILE_PG_AUTO_MIGRATE" envDefault:"true"`
}
