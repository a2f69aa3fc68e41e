package main

import (
	"github.com/spf13/cobra"
	"github.com/trendjack/core/internal/database"
	"go.uber.org/zap"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := opts.logger(cfg)
			defer logger.Sync()

			if err := database.EnsureSchema(cfg); err != nil {
				logger.Error("migration failed", zap.Error(err))
				return err
			}
			logger.Info("schema is up to date", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
