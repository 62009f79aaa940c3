package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/dashboard"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/exitcode"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/export"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/logging"
)

var (
	riskMinScore int
	riskOut      string
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "List providers whose fraud-risk score meets a threshold",
	RunE:  runRisk,
}

func init() {
	f := riskCmd.Flags()
	f.IntVar(&riskMinScore, "min-score", -1, "Minimum risk score, 0-100 (default: flag_threshold from config, 30)")
	f.StringVar(&riskOut, "out", "", "Write the flagged providers to this CSV file instead of stdout")
	rootCmd.AddCommand(riskCmd)
}

func runRisk(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateRead(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	backend, closeBackend, err := openBackend(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("backend connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer closeBackend()

	svc := dashboard.New(backend, log, dashboard.Options{
		PageSize:      cfg.PageSize,
		Rules:         cfg.Risk,
		FlagThreshold: &cfg.FlagThreshold,
	})
	res, err := svc.RiskFlags(ctx, riskMinScore)
	if err != nil {
		log.Error().Err(err).Msg("invalid request")
		closeBackend()
		os.Exit(exitcode.UsageError)
	}
	if res.Message != "" {
		log.Error().Str("message", res.Message).Msg("risk scoring failed")
		closeBackend()
		os.Exit(exitcode.DBConnError)
	}

	if riskOut != "" {
		f, err := os.Create(riskOut)
		if err != nil {
			return err
		}
		if err := export.WriteCSV(f, res.Rows); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info().Int("providers", len(res.Rows)).Str("out", riskOut).Msg("risk flags written")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tDISPUTES\tWIN RATE\tSCORE\tLEVEL\tINDICATORS")
	for _, p := range res.Rows {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%d\t%s\t%s\n", p.ProviderName, p.TotalDisputes, p.WinRate, p.RiskScore, p.RiskLevel, p.Indicators)
	}
	return tw.Flush()
}
