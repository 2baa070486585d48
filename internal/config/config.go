// Package config loads CLI configuration from the environment.
package config

import (
	"errors"
	"os"
	"time"
)

// Config holds everything the CLI needs to talk to the API. Credentials come
// from the environment only; they are never written to disk.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	BaseURL   string
	CachePath string
	Timeout   time.Duration
}

// Load reads the configuration from environment variables. Credential fields
// may be empty here; Validate checks them before a network flow starts.
func Load() *Config {
	return &Config{
		ClientID:     os.Getenv("COMDIRECT_CLIENT_ID"),
		ClientSecret: os.Getenv("COMDIRECT_CLIENT_SECRET"),
		Username:     os.Getenv("COMDIRECT_USERNAME"),
		Password:     os.Getenv("COMDIRECT_PASSWORD"),
		BaseURL:      os.Getenv("COMDIRECT_API_URL"),
		CachePath:    getEnv("COMDIRECT_CACHE", "comdirect.db"),
		Timeout:      getEnvDuration("COMDIRECT_TIMEOUT", 30*time.Second),
	}
}

// Validate checks that all credential fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("COMDIRECT_CLIENT_ID and COMDIRECT_CLIENT_SECRET are required")
	}
	if c.Username == "" || c.Password == "" {
		return errors.New("COMDIRECT_USERNAME and COMDIRECT_PASSWORD are required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
