package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/policydesk/policy-search/pkg/audit"
	"github.com/policydesk/policy-search/pkg/config"
	"github.com/policydesk/policy-search/pkg/db"
	"github.com/policydesk/policy-search/pkg/logging"
	"github.com/policydesk/policy-search/pkg/policy"
)

var (
	v      = config.NewViper()
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "policy-server",
	Short: "Insurance policy search service",
	Long: `policy-server answers free-text policy searches over HTTP.

Without a subcommand it serves the search API. Configuration comes from flags,
POLICY_SEARCH_* environment variables and an optional YAML file (--config).
The database DSN has no default and must always be supplied.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

func init() {
	config.AddFlags(rootCmd.PersistentFlags())
	config.AddServerFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(searchCmd)
}

// loadConfig resolves the configuration once flags are parsed.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	configFile, _ := cmd.Flags().GetString("config")

	loaded, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = loaded
	logger = logging.New(cfg.Log)
	slog.SetDefault(logger)
	return nil
}

// openDatabase connects using the loaded configuration.
func openDatabase() (*gorm.DB, error) {
	return db.Open(cfg.Database, logger)
}

// newMigrator builds a Migrator for every model the service persists.
func newMigrator(gormDB *gorm.DB) (*db.Migrator, error) {
	var locker db.MigrationLocker = db.NoopLocker{}
	if cfg.Migrate.Lock {
		var err error
		locker, err = db.NewMigrationLocker(gormDB)
		if err != nil {
			return nil, err
		}
	}
	return db.NewMigrator(cfg.Database, gormDB, locker, logger, &policy.Policy{}, &audit.Event{}), nil
}

// resetConfig discards configuration loaded by a previous command run.
func resetConfig() {
	v = config.NewViper()
	cfg = nil
	logger = nil
}
