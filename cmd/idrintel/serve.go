package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/config"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/dashboard"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/exitcode"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/logging"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/metrics"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&cfg.Addr, "addr", config.Env(config.EnvAddr, config.DefaultAddr), "Listen address (or set IDR_ADDR)")
	f.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "How long summary reads are memoized")
	f.IntVar(&cfg.FlagThreshold, "flag-threshold", cfg.FlagThreshold, "Default minimum risk score of /api/risk")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ValidateServe(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	backend, closeBackend, err := openBackend(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("backend connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer closeBackend()

	m := metrics.New()
	svc := dashboard.New(backend, log, dashboard.Options{
		PageSize:      cfg.PageSize,
		CacheTTL:      cfg.CacheTTL,
		Rules:         cfg.Risk,
		FlagThreshold: &cfg.FlagThreshold,
		Metrics:       m,
	})
	srv := server.New(svc, log, m)

	// SIGHUP drops memoized reads, e.g. after a load into the same store.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-hup:
				svc.Invalidate()
				log.Info().Msg("cache invalidated")
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := server.Run(ctx, cfg.Addr, srv.Handler(), log); err != nil {
		log.Error().Err(err).Msg("server failed")
		closeBackend()
		os.Exit(exitcode.ServeError)
	}
	return nil
}
