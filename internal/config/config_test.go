// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-mud/driftwood/pkg/errutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t, "listen: \":9999\"\nlog_format: text\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Listen)
	assert.Equal(t, "text", cfg.LogFormat)
	// Unset keys keep their defaults.
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	path := writeConfig(t, "listen: \":9999\"\nmetrics_addr: \"127.0.0.1:7000\"\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--listen", ":4444"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)

	// The changed flag wins; the untouched flag defers to the file.
	assert.Equal(t, ":4444", cfg.Listen)
	assert.Equal(t, "127.0.0.1:7000", cfg.MetricsAddr)
}

func TestLoad_EnvOverridesDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	path := writeConfig(t, "database_url: postgres://file/db\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL)
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	path := writeConfig(t, "log_format: xml\n")

	_, err := Load(path, nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Listen = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LogLevel = "shout"
	assert.Error(t, cfg.Validate())
}
