package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/postgrest"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/store"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

// openStore connects to the local store, starting the embedded server when
// only --local-dir is set, and applies pending migrations. The returned
// func releases everything.
func openStore(ctx context.Context, log zerolog.Logger) (*store.Store, func(), error) {
	dsn := cfg.DSN
	var local *store.Local
	if dsn == "" {
		var err error
		local, err = store.StartLocal(cfg.LocalDir, localPort, log)
		if err != nil {
			return nil, nil, err
		}
		dsn = local.DSN()
	}
	stopLocal := func() {
		if local != nil {
			if err := local.Stop(); err != nil {
				log.Warn().Err(err).Msg("stop local store")
			}
		}
	}

	pool, err := store.NewPool(ctx, dsn)
	if err != nil {
		stopLocal()
		return nil, nil, err
	}
	if err := store.ApplyMigrations(ctx, pool, log); err != nil {
		pool.Close()
		stopLocal()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return store.New(pool, log), func() {
		pool.Close()
		stopLocal()
	}, nil
}

// openBackend returns the remote PostgREST client when SUPABASE_URL is set
// and the local store otherwise.
func openBackend(ctx context.Context, log zerolog.Logger) (table.Querier, func(), error) {
	if cfg.Remote() {
		c, err := postgrest.New(cfg.SupabaseURL, cfg.SupabaseKey, log, postgrest.WithTimeout(cfg.HTTPTimeout))
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	st, closeStore, err := openStore(ctx, log)
	if err != nil {
		return nil, nil, err
	}
	return st, closeStore, nil
}
