package config_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/config"
)

type defaultsConfig struct {
	Endpoint string        `env:"FLAGKIT_TEST_DEFAULT_ENDPOINT" envDefault:"http://localhost:8080"`
	Timeout  time.Duration `env:"FLAGKIT_TEST_DEFAULT_TIMEOUT" envDefault:"10s"`
	Retries  int           `env:"FLAGKIT_TEST_DEFAULT_RETRIES" envDefault:"1"`
}

type overrideConfig struct {
	Endpoint string `env:"FLAGKIT_TEST_OVERRIDE_ENDPOINT" envDefault:"http://localhost:8080"`
	Enabled  bool   `env:"FLAGKIT_TEST_OVERRIDE_ENABLED" envDefault:"false"`
}

type requiredConfig struct {
	Value string `env:"FLAGKIT_TEST_REQUIRED_VALUE,required"`
}

type cachedConfig struct {
	Value string `env:"FLAGKIT_TEST_CACHED_VALUE" envDefault:"first"`
}

type prefixedConfig struct {
	URL string `env:"URL" envDefault:"redis://localhost:6379/0"`
	TTL int    `env:"TTL" envDefault:"60"`
}

type fileConfig struct {
	Value string   `env:"FLAGKIT_TEST_FILE_VALUE"`
	List  []string `env:"FLAGKIT_TEST_FILE_LIST" envSeparator:","`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg defaultsConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "http://localhost:8080", cfg.Endpoint)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.Equal(t, 1, cfg.Retries)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("FLAGKIT_TEST_OVERRIDE_ENDPOINT", "https://bandit.example.com")
		t.Setenv("FLAGKIT_TEST_OVERRIDE_ENABLED", "true")

		var cfg overrideConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "https://bandit.example.com", cfg.Endpoint)
		assert.True(t, cfg.Enabled)
	})

	t.Run("missing required value", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *defaultsConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("cached per type until reset", func(t *testing.T) {
		var first cachedConfig
		require.NoError(t, config.Load(&first))
		assert.Equal(t, "first", first.Value)

		t.Setenv("FLAGKIT_TEST_CACHED_VALUE", "second")
		var second cachedConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "first", second.Value)

		config.Reset()
		var third cachedConfig
		require.NoError(t, config.Load(&third))
		assert.Equal(t, "second", third.Value)
	})

	t.Run("concurrent loads agree", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]defaultsConfig, 20)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = config.Load(&results[i])
			}(i)
		}
		wg.Wait()
		for _, r := range results {
			assert.Equal(t, "http://localhost:8080", r.Endpoint)
		}
	})
}

func TestMustLoad(t *testing.T) {
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("SESSIONS_URL", "redis://sessions:6379/1")
	t.Setenv("PROFILES_TTL", "3600")

	var sessions, profiles prefixedConfig
	require.NoError(t, config.LoadWithPrefix("SESSIONS_", &sessions))
	require.NoError(t, config.LoadWithPrefix("PROFILES_", &profiles))

	assert.Equal(t, "redis://sessions:6379/1", sessions.URL)
	assert.Equal(t, 60, sessions.TTL)
	assert.Equal(t, "redis://localhost:6379/0", profiles.URL)
	assert.Equal(t, 3600, profiles.TTL)

	assert.ErrorIs(t, config.LoadWithPrefix[prefixedConfig]("X_", nil), config.ErrNilPointer)
}

func TestLoadEnv(t *testing.T) {
	t.Cleanup(func() {
		_ = os.Unsetenv("FLAGKIT_TEST_FILE_VALUE")
		_ = os.Unsetenv("FLAGKIT_TEST_FILE_LIST")
	})

	require.NoError(t, config.LoadEnv("testdata/test.env"))

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "from_file", cfg.Value)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.List)

	err := config.LoadEnv("testdata/missing.env")
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}
