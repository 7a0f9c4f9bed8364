// Package config provides configuration management for simplesd.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

// Config holds the simplesd server configuration.
type Config struct {
	Addr    string `json:"addr"`
	DataDir string `json:"data_dir"`

	LogLevel string `json:"log_level"`

	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         ":8080",
		DataDir:      "topics",
		LogLevel:     "info",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // record streams can run indefinitely with wait_for_more
	}
}

// Load loads configuration from a JSON file. A missing file is not an
// error; it yields DefaultConfig unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EnvOrDefault returns the environment variable value if set, otherwise
// fallback. simplesd's variables are SIMPLES_-prefixed; flags parsed
// against this as their default take precedence over the environment.
func EnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvDurationOrDefault parses the environment variable as a duration
// (e.g. "30s"), falling back to fallback if unset or unparsable.
func EnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// EnvIntOrDefault returns the environment variable as an int if set,
// otherwise fallback.
func EnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
