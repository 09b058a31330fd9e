// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/driftwood-mud/driftwood/internal/seed"
)

// genSchemaConfig holds configuration for the gen-schema subcommand.
type genSchemaConfig struct {
	out string
}

// NewGenSchemaCmd creates the gen-schema subcommand.
func NewGenSchemaCmd() *cobra.Command {
	cfg := &genSchemaConfig{}

	cmd := &cobra.Command{
		Use:   "gen-schema",
		Short: "Generate the seed file JSON Schema",
		Long: `Generate the JSON Schema for seed YAML files and write it to disk.
Editors pick it up for validation and completion of seed.yaml.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenSchema(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.out, "out", filepath.Join("schemas", "seed.schema.json"), "output path")

	return cmd
}

func runGenSchema(cmd *cobra.Command, cfg *genSchemaConfig) error {
	schema, err := seed.GenerateSchema()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(cfg.out); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return oops.Code("SCHEMA_GEN_FAILED").With("path", dir).Wrap(err)
		}
	}

	if err := os.WriteFile(cfg.out, schema, 0o600); err != nil {
		return oops.Code("SCHEMA_GEN_FAILED").With("path", cfg.out).Wrap(err)
	}

	cmd.Printf("Generated %s\n", cfg.out)
	return nil
}
