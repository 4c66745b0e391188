package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the PostgreSQL tables and indexes",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		logger := newLogger()

		a, err := newApplication(ctx, logger)
		if err != nil {
			logger.Fatal("starting", zap.Error(err))
		}
		defer a.Close()

		if a.postgres == nil {
			logger.Fatal("migrate needs the postgres driver", zap.String("hint", "set database.driver to postgres"))
		}

		if err := a.postgres.Migrate(ctx); err != nil {
			logger.Fatal("applying schema", zap.Error(err))
		}

		logger.Info("schema applied")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
