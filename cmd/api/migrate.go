package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reqapi/internal/database"
	"reqapi/internal/database/migration"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the requirements schema if it is missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Open(cfg.Database)
			if err != nil {
				log.Error("db_connect_failed", zap.Error(err))
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			dialect, err := migration.ForDriver(cfg.Database.Driver)
			if err != nil {
				return err
			}
			return migration.EnsureMigrated(cmd.Context(), db, dialect, log)
		},
	}
}
