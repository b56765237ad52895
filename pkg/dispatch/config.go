package dispatch

import "time"

// HTTPConfig tunes the HTTP dispatcher.
type HTTPConfig struct {
	Timeout          time.Duration `env:"EVENTS_HTTP_TIMEOUT" envDefault:"10s"`
	MaxRetries       int           `env:"EVENTS_MAX_RETRIES" envDefault:"3"`
	BackoffInitial   time.Duration `env:"EVENTS_BACKOFF_INITIAL" envDefault:"200ms"`
	BackoffMax       time.Duration `env:"EVENTS_BACKOFF_MAX" envDefault:"10s"`
	FailureThreshold int           `env:"EVENTS_BREAKER_FAILURES" envDefault:"5"`
	RecoveryTimeout  time.Duration `env:"EVENTS_BREAKER_RECOVERY" envDefault:"30s"`
}

// BatchConfig tunes the batching dispatcher.
type BatchConfig struct {
	BufferSize    int           `env:"EVENTS_BUFFER_SIZE" envDefault:"1000"`
	BatchSize     int           `env:"EVENTS_BATCH_SIZE" envDefault:"10"`
	FlushInterval time.Duration `env:"EVENTS_FLUSH_INTERVAL" envDefault:"30s"`
	FlushTimeout  time.Duration `env:"EVENTS_FLUSH_TIMEOUT" envDefault:"10s"`
}

// S3Config configures the archive bucket.
type S3Config struct {
	Bucket         string `env:"EVENTS_S3_BUCKET"`
	Region         string `env:"EVENTS_S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"EVENTS_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"EVENTS_S3_SECRET_KEY"`
	Endpoint       string `env:"EVENTS_S3_ENDPOINT"`
	Prefix         string `env:"EVENTS_S3_PREFIX" envDefault:"events"`
	ForcePathStyle bool   `env:"EVENTS_S3_FORCE_PATH_STYLE" envDefault:"false"`
}

// OpenSearchConfig configures the visitor snapshot index.
type OpenSearchConfig struct {
	Addresses    []string `env:"OPENSEARCH_ADDRESSES"`
	Username     string   `env:"OPENSEARCH_USERNAME"`
	Password     string   `env:"OPENSEARCH_PASSWORD"`
	Index        string   `env:"OPENSEARCH_INDEX" envDefault:"flagkit-events"`
	MaxRetries   int      `env:"OPENSEARCH_MAX_RETRIES" envDefault:"3"`
	DisableRetry bool     `env:"OPENSEARCH_DISABLE_RETRY" envDefault:"false"`
}
