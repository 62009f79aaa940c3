package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/exitcode"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply local store schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateLocal(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	// openStore applies every pending migration.
	_, closeStore, err := openStore(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.DBConnError)
	}
	closeStore()

	log.Info().Msg("all migrations applied successfully")
	return nil
}
