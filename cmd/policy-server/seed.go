package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/policydesk/policy-search/pkg/db"
	"github.com/policydesk/policy-search/pkg/policy"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load policies from a YAML fixture",
	Long: `Load policies from a YAML fixture into the store.

Without a file the built-in sample policies are loaded. Policies whose number
already exists are skipped, so seeding twice is harmless.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, args []string) error {
	var (
		records []policy.Policy
		err     error
	)
	if len(args) == 1 {
		records, err = policy.LoadSeedFile(args[0])
	} else {
		records, err = policy.SamplePolicies()
	}
	if err != nil {
		return err
	}

	gormDB, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	inserted, err := policy.NewSeeder(gormDB).Seed(cmd.Context(), records)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d policies (%d already present)\n",
		inserted, len(records), len(records)-inserted)
	return nil
}
