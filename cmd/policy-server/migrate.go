package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/policydesk/policy-search/pkg/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply pending schema migrations.

PostgreSQL and MySQL run the versioned SQL migrations embedded in the binary.
SQLite is created from the models directly. Concurrent runs are serialized
unless migrate.lock is false.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	gormDB, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	migrator, err := newMigrator(gormDB)
	if err != nil {
		return err
	}
	if err := migrator.Up(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
	return nil
}
