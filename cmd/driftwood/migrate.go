// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/driftwood-mud/driftwood/internal/store"
)

// migrateConfig holds configuration for the migrate subcommand.
type migrateConfig struct {
	down  bool
	steps int
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cfg := &migrateConfig{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Run pending database migrations against the PostgreSQL database.
With --down, rolls back one migration instead. With --steps N, applies
exactly N migrations (negative N rolls back).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.down, "down", false, "roll back one migration")
	cmd.Flags().IntVar(&cfg.steps, "steps", 0, "apply exactly this many migrations (negative rolls back)")

	return cmd
}

func runMigrate(cmd *cobra.Command, cfg *migrateConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.down && cfg.steps != 0 {
		return oops.Code("CONFIG_INVALID").Errorf("--down and --steps are mutually exclusive")
	}

	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()

	switch {
	case cfg.down:
		cmd.Println("Rolling back one migration...")
		err = m.Steps(-1)
	case cfg.steps != 0:
		cmd.Printf("Applying %d migration step(s)...\n", cfg.steps)
		err = m.Steps(cfg.steps)
	default:
		cmd.Println("Running migrations...")
		err = m.Up()
	}
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		return oops.Code("MIGRATION_FAILED").Errorf("schema version %d is dirty; fix manually and force", version)
	}

	cmd.Printf("Migrations completed successfully (schema version %d)\n", version)
	return nil
}
