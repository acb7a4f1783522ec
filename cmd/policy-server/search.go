package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/policydesk/policy-search/pkg/cli"
	"github.com/policydesk/policy-search/pkg/db"
	"github.com/policydesk/policy-search/pkg/policy"
)

var searchOutput string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one policy search against the database",
	Example: `  policy-server search smith
  policy-server search "POL-1" -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", cli.FormatTable, "Output format: table, json, yaml")
}

// searchResult is the structured output of the search command.
type searchResult struct {
	Query    string          `json:"query"`
	Policies []policy.Policy `json:"policies"`
	Size     int             `json:"size"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := cli.ValidateFormat(searchOutput); err != nil {
		return err
	}

	gormDB, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	query := policy.NormalizeQuery(strings.Join(args, " "))
	service := policy.NewService(policy.NewStore(gormDB), cfg.Search, logger)
	records, err := service.Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	return printPolicies(cli.NewPrinter(cmd.OutOrStdout(), searchOutput), query, records)
}

func printPolicies(p *cli.Printer, query string, records []policy.Policy) error {
	if p.Structured() {
		return p.Print(searchResult{Query: query, Policies: records, Size: len(records)})
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.ID),
			r.PolicyNumber,
			cli.Truncate(r.CustomerName, 40),
			fmt.Sprintf("%.2f", r.Premium),
			r.IssueDate.Format(time.DateOnly),
		})
	}
	return p.Table([]string{"ID", "Policy Number", "Customer", "Premium", "Issued"}, rows)
}
