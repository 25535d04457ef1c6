package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/okian/orsheep/internal/domain/ranking"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "ORSHEEP_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ORSHEEP_CONFIG is set
//  3. env (prefix ORSHEEP_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ORSHEEP_QUEUE_SIZE -> queue_size; list values are comma separated.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if key == "config" {
			return "", nil
		}
		if key == "cors_origins" {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WindowHours <= 0:
		return fmt.Errorf("%w: window_hours must be positive", ErrInvalidConfig)
	case c.WidgetLimit <= 0:
		return fmt.Errorf("%w: widget_limit must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < c.WidgetLimit:
		return fmt.Errorf("%w: max_leaderboard_limit must be at least widget_limit", ErrInvalidConfig)
	case c.MaxScore <= 0:
		return fmt.Errorf("%w: max_score must be positive", ErrInvalidConfig)
	}
	if _, err := ranking.ParsePolicy(c.DefaultPolicy); err != nil {
		return fmt.Errorf("%w: default_policy: %w", ErrInvalidConfig, err)
	}
	return nil
}
