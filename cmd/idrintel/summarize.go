package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/exitcode"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/logging"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Rebuild the summary tables of the local store",
	RunE:  runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateLocal(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	st, closeStore, err := openStore(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer closeStore()

	start := time.Now()
	if err := st.RefreshSummaries(ctx); err != nil {
		log.Error().Err(err).Msg("summary rebuild failed")
		closeStore()
		os.Exit(exitcode.SummaryError)
	}
	log.Info().Dur("duration", time.Since(start)).Msg("summary tables rebuilt")
	return nil
}
