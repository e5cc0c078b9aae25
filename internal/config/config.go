// Package config loads the server's environment-driven startup
// configuration: a viper instance bound explicitly per field (no implicit
// flag parsing here — Load reads env vars only; the one server flag,
// --whitelist-file, is handled by cmd/graphd)
// with defaults set before AutomaticEnv so a present-but-empty env var
// still falls back correctly.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the fully-resolved startup configuration.
type Config struct {
	APIKey string
	Host   string
	Port   int
	DBPath string
}

// Load resolves Config from the process environment. API_KEY is required;
// every other field falls back to a sensible default.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("HOST", "127.0.0.1")
	v.SetDefault("PORT", 3000)
	v.SetDefault("DB_PATH", "elo.redb")
	v.AutomaticEnv()

	for _, key := range []string{"API_KEY", "HOST", "PORT", "DB_PATH"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: binding %s: %w", key, err)
		}
	}

	apiKey := v.GetString("API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("config: API_KEY is required")
	}

	return &Config{
		APIKey: apiKey,
		Host:   v.GetString("HOST"),
		Port:   v.GetInt("PORT"),
		DBPath: v.GetString("DB_PATH"),
	}, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
