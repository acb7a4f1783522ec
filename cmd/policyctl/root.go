package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/policydesk/policy-search/pkg/cli"
)

var (
	serverURL string
	outputFmt string
	actor     string
)

var rootCmd = &cobra.Command{
	Use:   "policyctl",
	Short: "CLI for the policy search server",
	Long: `policyctl queries a running policy-server over HTTP.

The server URL defaults to POLICY_SEARCH_SERVER_URL, or http://localhost:8080.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cli.ValidateFormat(outputFmt)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "Policy search server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", cli.FormatTable, "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&actor, "as", "", "User recorded in the server's audit trail (X-Remote-User)")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(healthCmd)
}

// defaultServerURL returns POLICY_SEARCH_SERVER_URL or the local default.
func defaultServerURL() string {
	if u := os.Getenv("POLICY_SEARCH_SERVER_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}
