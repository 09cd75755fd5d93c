// Package config loads runtime settings: defaults, then an optional yaml
// file, then MEMEBOX_* environment variables.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting.
type Config struct {
	DataDir             string `yaml:"data_dir" env:"MEMEBOX_DATA_DIR"`
	CommandPrefix       string `yaml:"command_prefix" env:"MEMEBOX_COMMAND_PREFIX"`
	SessionTTLSeconds   int    `yaml:"session_ttl_seconds" env:"MEMEBOX_SESSION_TTL_SECONDS"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds" env:"MEMEBOX_FETCH_TIMEOUT_SECONDS"`
	ListCap             int    `yaml:"list_cap" env:"MEMEBOX_LIST_CAP"`
	Port                int    `yaml:"port" env:"MEMEBOX_PORT"`
	TLSCertPath         string `yaml:"tls_cert" env:"MEMEBOX_TLS_CERT"`
	TLSKeyPath          string `yaml:"tls_key" env:"MEMEBOX_TLS_KEY"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:             ".memebox",
		CommandPrefix:       "/meme",
		SessionTTLSeconds:   60,
		FetchTimeoutSeconds: 10,
		ListCap:             10,
		Port:                8080,
	}
}

// Load builds the effective config. A missing file is fine; a present but
// unreadable or malformed one is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
