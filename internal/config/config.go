package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings, all sourced from environment variables.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"ADDR" envDefault:":8080"`

	// DatabaseDSN is the Postgres connection string.
	DatabaseDSN string `env:"DB_DSN,required,notEmpty"`

	// RedisAddr enables the cross-instance broadcast bridge when set.
	// Leave empty to run a single instance without Redis.
	RedisAddr string `env:"REDIS_ADDR"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
