// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv, which reads optional .env files, with
// github.com/caarlos0/env/v11, which maps variables onto struct fields via
// `env` and `envDefault` tags. Every package that needs settings declares
// its own Config struct; the command wires them together:
//
//	var cfg bandit.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Load caches one parsed copy per type for the lifetime of the process.
// LoadWithPrefix bypasses the cache and lets the same struct be loaded
// under different variable prefixes, for instance two profile stores.
// Reset clears the cache, which tests use between cases.
package config
