package bandit

import "time"

// Config holds the prediction service settings.
type Config struct {
	// Endpoint may contain a {ruleId} placeholder.
	Endpoint       string        `env:"BANDIT_ENDPOINT" envDefault:"https://prediction.cmab.optimizely.com/predict/{ruleId}"`
	Timeout        time.Duration `env:"BANDIT_TIMEOUT" envDefault:"10s"`
	MaxRetries     int           `env:"BANDIT_MAX_RETRIES" envDefault:"1"`
	BackoffInitial time.Duration `env:"BANDIT_BACKOFF_INITIAL" envDefault:"100ms"`
	BackoffMax     time.Duration `env:"BANDIT_BACKOFF_MAX" envDefault:"10s"`
	CacheSize      int           `env:"BANDIT_CACHE_SIZE" envDefault:"10000"`
	CacheTTL       time.Duration `env:"BANDIT_CACHE_TTL" envDefault:"30m"`
}

// Options converts the configuration into client options.
func (c Config) Options() []Option {
	return []Option{
		WithTimeout(c.Timeout),
		WithMaxRetries(c.MaxRetries),
		WithBackoff(c.BackoffInitial, c.BackoffMax),
	}
}
