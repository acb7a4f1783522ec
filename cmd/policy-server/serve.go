package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/policydesk/policy-search/pkg/audit"
	"github.com/policydesk/policy-search/pkg/db"
	"github.com/policydesk/policy-search/pkg/policy"
	"github.com/policydesk/policy-search/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the policy search API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.Info("starting policy search server",
		"listen", cfg.Server.Listen,
		"databaseType", cfg.Database.Type,
		"audit", cfg.Audit.Enabled)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	gormDB, err := openDatabase()
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close(gormDB)

	if cfg.Migrate.OnStart {
		migrator, err := newMigrator(gormDB)
		if err != nil {
			glog.Fatalf("Failed to create migration lock: %v", err)
		}
		if err := migrator.Up(ctx); err != nil {
			glog.Fatalf("Failed to apply migrations: %v", err)
		}
	}

	service := policy.NewService(policy.NewStore(gormDB), cfg.Search, logger)

	opts := []server.Option{server.WithAllowedOrigins(cfg.Server.AllowedOrigins)}
	if cfg.Audit.Enabled {
		opts = append(opts, server.WithAudit(audit.NewStore(gormDB), cfg.Audit))
	}

	srv := server.NewServer(gormDB, service, logger, opts...)
	return srv.Run(ctx, cfg.Server)
}
