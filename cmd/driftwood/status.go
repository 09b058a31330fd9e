// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftwood Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftwood-mud/driftwood/internal/config"
)

// ServerStatus holds the probed state of a running server.
type ServerStatus struct {
	Addr    string `json:"addr"`
	Running bool   `json:"running"`
	Live    bool   `json:"live"`
	Ready   bool   `json:"ready"`
	Error   string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status subcommand.
type statusConfig struct {
	metricsAddr string
	jsonOutput  bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running Driftwood server",
		Long:  `Probe the observability listener's health endpoints and report the result.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", config.Default().MetricsAddr, "observability listener address to probe")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	status := queryServerStatus(cfg.metricsAddr)

	var output string
	var err error
	if cfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return err
		}
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// queryServerStatus probes /healthz and /readyz on the observability listener.
func queryServerStatus(addr string) ServerStatus {
	status := ServerStatus{Addr: addr}

	client := &http.Client{Timeout: 2 * time.Second}

	live, err := probe(client, "http://"+addr+"/healthz")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	status.Running = true
	status.Live = live

	ready, err := probe(client, "http://"+addr+"/readyz")
	if err != nil {
		// Liveness answered, readiness did not; report as not ready.
		return status
	}
	status.Ready = ready

	return status
}

func probe(client *http.Client, url string) (bool, error) {
	resp, err := client.Get(url)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK, nil
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status ServerStatus) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ADDR\tSTATUS\tLIVE\tREADY")
	_, _ = fmt.Fprintln(w, "----\t------\t----\t-----")

	if status.Running {
		_, _ = fmt.Fprintf(w, "%s\trunning\t%s\t%s\n",
			status.Addr, yesNo(status.Live), yesNo(status.Ready))
	} else {
		reason := "not running"
		if status.Error != "" {
			reason = status.Error
		}
		_, _ = fmt.Fprintf(w, "%s\tstopped\t-\t%s\n", status.Addr, reason)
	}

	_ = w.Flush()
	return sb.String()
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status ServerStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
