package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/policydesk/policy-search/pkg/cli"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health and readiness",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := newClient()

	var healthResp map[string]any
	if err := client.getJSON(cmd.Context(), "/healthz", &healthResp); err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}

	var readyResp map[string]any
	if err := client.getJSON(cmd.Context(), "/readyz", &readyResp); err != nil {
		// Not fatal: the server may still be waiting for its database.
		readyResp = map[string]any{"status": "not_ready", "error": err.Error()}
	}

	p := cli.NewPrinter(cmd.OutOrStdout(), outputFmt)
	if p.Structured() {
		return p.Print(map[string]any{
			"health":    healthResp,
			"readiness": readyResp,
		})
	}

	status, _ := healthResp["status"].(string)
	uptime, _ := healthResp["uptime"].(string)
	ready, _ := readyResp["status"].(string)

	return p.Table([]string{"Check", "Status"}, [][]string{
		{"Liveness", status},
		{"Uptime", uptime},
		{"Readiness", ready},
	})
}
