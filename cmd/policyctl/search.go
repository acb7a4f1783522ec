package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/policydesk/policy-search/pkg/cli"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search policies by number or customer name",
	Example: `  policyctl search smith
  policyctl search POL-1 -o yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	resp, err := newClient().search(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	p := cli.NewPrinter(cmd.OutOrStdout(), outputFmt)
	if p.Structured() {
		return p.Print(resp)
	}

	rows := make([][]string, 0, len(resp.Policies))
	for _, item := range resp.Policies {
		coverage := "-"
		if item.CoverageAmount != nil {
			coverage = fmt.Sprintf("%.2f", *item.CoverageAmount)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			item.PolicyNumber,
			cli.Truncate(item.CustomerName, 40),
			fmt.Sprintf("%.2f", item.Premium),
			item.IssueDate,
			coverage,
		})
	}
	if err := p.Table([]string{"ID", "Policy Number", "Customer", "Premium", "Issued", "Coverage"}, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d policies\n", resp.Size)
	return nil
}
