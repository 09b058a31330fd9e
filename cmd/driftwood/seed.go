// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package main

import (
	"context"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/driftwood-mud/driftwood/internal/auth"
	"github.com/driftwood-mud/driftwood/internal/seed"
	"github.com/driftwood-mud/driftwood/internal/store"
	"github.com/driftwood-mud/driftwood/internal/world/postgres"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed subcommand.
type seedConfig struct {
	file    string
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Bootstrap an empty world",
		Long: `Creates the initial world: the system object, a first room, a wizard
player and the login daemon. Reads a YAML seed file with --file, or uses
built-in defaults. This command is idempotent: a non-empty world is left
untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.file, "file", "", "seed YAML file (default: built-in bootstrap)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, cfg *seedConfig) error {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	doc := seed.Default()
	if cfg.file != "" {
		data, err := os.ReadFile(cfg.file)
		if err != nil {
			return oops.Code("SEED_FAILED").With("path", cfg.file).Wrap(err)
		}
		doc, err = seed.Parse(data)
		if err != nil {
			return err
		}
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.NewPool(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	migrateErr := m.Up()
	_ = m.Close()
	if migrateErr != nil {
		return migrateErr
	}

	applied, err := doc.Apply(ctx, postgres.NewStore(pool), auth.NewArgon2idHasher())
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "apply seed").Wrap(err)
	}
	if !applied {
		cmd.Println("World already seeded, skipping")
		return nil
	}

	cmd.Printf("Created world: room %q, wizard %q\n", doc.Room.Name, doc.Wizard.Name)
	cmd.Println("World seeding complete!")
	return nil
}
