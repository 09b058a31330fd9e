// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

// Package config loads server configuration. Precedence, lowest to
// highest: built-in defaults, YAML config file, command-line flags,
// the DATABASE_URL environment variable.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/driftwood-mud/driftwood/internal/logging"
)

// Config holds the daemon configuration.
type Config struct {
	// Listen is the game-facing HTTP listener address.
	Listen string `koanf:"listen"`

	// MetricsAddr is the observability listener address. Empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// DatabaseURL is the PostgreSQL connection string. Empty selects the
	// in-memory world, which loses everything on restart.
	DatabaseURL string `koanf:"database_url"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `koanf:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:      ":8080",
		MetricsAddr: "127.0.0.1:9100",
		LogFormat:   "json",
		LogLevel:    "info",
	}
}

// RegisterFlags declares the config-backed flags on a flag set. Flag
// names use dashes; Load maps them back to config keys.
func RegisterFlags(f *pflag.FlagSet) {
	def := Default()
	f.String("listen", def.Listen, "game HTTP listen address")
	f.String("metrics-addr", def.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	f.String("database-url", "", "PostgreSQL connection string (empty = in-memory world)")
	f.String("log-format", def.LogFormat, "log format (json or text)")
	f.String("log-level", def.LogLevel, "minimum log level (debug, info, warn, error)")
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen address is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Load builds the configuration from path and flags. An empty path is
// allowed and skips the file layer; a named path must exist. flags may
// be nil. DATABASE_URL in the environment wins over both.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use dashes; config keys use underscores. Unchanged
		// flags defer to file values already in k.
		p := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(p, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
