package client

import (
	"time"

	"github.com/dmitrymomot/flagkit/pkg/event"
)

// Config holds the client level settings. Backend connections are
// configured by their own packages.
type Config struct {
	Datafile      string        `env:"FLAGKIT_DATAFILE" envDefault:"datafile.json"`
	ClientName    string        `env:"FLAGKIT_CLIENT_NAME" envDefault:"flagkit"`
	ClientVersion string        `env:"FLAGKIT_CLIENT_VERSION" envDefault:"1.0.0"`
	EventEndpoint string        `env:"FLAGKIT_EVENT_ENDPOINT" envDefault:"https://logx.optimizely.com/v1/events"`
	BanditEnabled bool          `env:"FLAGKIT_BANDIT_ENABLED" envDefault:"false"`
	BanditTimeout time.Duration `env:"FLAGKIT_BANDIT_TIMEOUT" envDefault:"2s"`

	// ProfileStore is one of memory, redis, postgres, mongo or none.
	ProfileStore     string        `env:"FLAGKIT_PROFILE_STORE" envDefault:"memory"`
	ProfileCacheSize int           `env:"FLAGKIT_PROFILE_CACHE_SIZE" envDefault:"10000"`
	ProfileCacheTTL  time.Duration `env:"FLAGKIT_PROFILE_CACHE_TTL" envDefault:"0s"`

	// EventSinks lists where events go: log, http, s3, opensearch.
	EventSinks []string `env:"FLAGKIT_EVENT_SINKS" envDefault:"log" envSeparator:","`
	// BatchEvents buffers events in memory before they reach the sinks.
	BatchEvents bool `env:"FLAGKIT_BATCH_EVENTS" envDefault:"true"`
}

// Options converts the configuration into client options.
func (c Config) Options() []Option {
	return []Option{
		WithEventOptions(
			event.WithClientInfo(c.ClientName, c.ClientVersion),
			event.WithEndpoint(c.EventEndpoint),
		),
	}
}
