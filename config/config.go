/*
Package config loads runtime configuration from the environment.

PURPOSE:
  One struct, processed by envconfig, optionally primed from a local
  .env file. Flags are deliberately absent; everything is env-driven so
  the same binary runs in dev and in a container unchanged.

KEYS:
  PORT             HTTP port (default 8080)
  DB_PATH          SQLite path, ":memory:", or "memory" for the map store
  JWT_SECRET       HS256 signing secret
  JWT_EXPIRY       Token lifetime (default 24h)
  SEED_DEMO_DATA   Load the demo dataset at startup (default true)
  SWEEP_INTERVAL   Card expiry sweep cadence (default 1h)
  LOG_LEVEL        logrus level name (default "info")
  LOG_FILE         When set, logs rotate into this file via lumberjack
*/
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port int `envconfig:"PORT" default:"8080"`

	DB struct {
		Path string `envconfig:"DB_PATH" default:"memory"`
	}

	JWT struct {
		Secret string        `envconfig:"JWT_SECRET" default:"campus_meal_card_secret_key"`
		Expiry time.Duration `envconfig:"JWT_EXPIRY" default:"24h"`
	}

	SeedDemoData  bool          `envconfig:"SEED_DEMO_DATA" default:"true"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`

	Log struct {
		Level string `envconfig:"LOG_LEVEL" default:"info"`
		File  string `envconfig:"LOG_FILE"`
	}
}

// InMemory reports whether the map-backed store should be used instead of
// SQLite.
func (c *Config) InMemory() bool {
	return c.DB.Path == "memory"
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; explicit env vars win either way.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing config: %w", err)
	}
	return &cfg, nil
}
