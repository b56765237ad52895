package mongostore

import "time"

// Config represents the configuration for the profile database.
type Config struct {
	ConnectionURL   string        `env:"PROFILE_MONGODB_URL,required"`
	Database        string        `env:"PROFILE_MONGODB_DATABASE" envDefault:"flagkit"`
	Collection      string        `env:"PROFILE_MONGODB_COLLECTION" envDefault:"user_profiles"`
	ConnectTimeout  time.Duration `env:"PROFILE_MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
	MaxPoolSize     uint64        `env:"PROFILE_MONGODB_MAX_POOL_SIZE" envDefault:"100"`
	MinPoolSize     uint64        `env:"PROFILE_MONGODB_MIN_POOL_SIZE" envDefault:"1"`
	MaxConnIdleTime time.Duration `env:"PROFILE_MONGODB_MAX_CONN_IDLE_TIME" envDefault:"300s"`
	RetryWrites     bool          `env:"PROFILE_MONGODB_RETRY_WRITES" envDefault:"true"`
	RetryReads      bool          `env:"PROFILE_MONGODB_RETRY_READS" envDefault:"true"`
	RetryAttempts   int           `env:"PROFILE_MONGODB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval   time.Duration `env:"PROFILE_MONGODB_RETRY_INTERVAL" envDefault:"5s"`
}
