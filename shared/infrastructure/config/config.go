package config

import (
	"fmt"
	"sync"
)

var (
	loadOnce sync.Once
	loaded   *Config
	loadErr  error
)

// Load reads the process configuration once: dotenv layers, environment,
// per-environment defaults, validation. Every later call returns the same
// result, including a failure.
func Load() (*Config, error) {
	loadOnce.Do(func() {
		loaded, loadErr = build()
	})
	return loaded, loadErr
}

func build() (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("env files: %w", err)
	}

	cfg, err := parse()
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
