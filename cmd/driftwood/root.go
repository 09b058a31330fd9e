// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Driftwood CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driftwood",
		Short: "Driftwood - a MOO server",
		Long: `Driftwood is a MOO server: a persistent, programmable world whose
verbs are written in MOO code, reached over HTTP, WebSocket, SSE and
WebRTC.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewGenSchemaCmd())

	return cmd
}
