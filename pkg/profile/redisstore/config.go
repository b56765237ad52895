package redisstore

import "time"

// Config holds the Redis connection settings loaded from the environment.
type Config struct {
	ConnectionURL  string        `env:"PROFILE_REDIS_URL,required" envDefault:"redis://localhost:6379/0"` // ConnectionURL in the form "redis://:password@localhost:6379/0".
	RetryAttempts  int           `env:"PROFILE_REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"PROFILE_REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"PROFILE_REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	KeyPrefix      string        `env:"PROFILE_REDIS_KEY_PREFIX" envDefault:"flagkit:profile:"`
	TTL            time.Duration `env:"PROFILE_REDIS_TTL" envDefault:"0s"` // TTL restarts on every save. Zero keeps profiles forever.
}
