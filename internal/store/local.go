package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/rs/zerolog"
)

// Local defaults.
const (
	DefaultLocalPort = 15433
	localDatabase    = "idr"
	localUser        = "postgres"
	localPassword    = "postgres"
)

// Local is an embedded Postgres whose data directory lives in a folder on
// disk, so loaded quarters survive restarts.
type Local struct {
	pg  *embeddedpostgres.EmbeddedPostgres
	dsn string
	log zerolog.Logger
}

// StartLocal starts (initializing on first use) the embedded server rooted
// at dir. Binaries are cached under dir/bin, data under dir/data.
func StartLocal(dir string, port uint32, log zerolog.Logger) (*Local, error) {
	if port == 0 {
		port = DefaultLocalPort
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve local dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create local dir: %w", err)
	}

	l := log.With().Str("component", "embedded-postgres").Logger()
	pg := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Database(localDatabase).
			Username(localUser).
			Password(localPassword).
			Version(embeddedpostgres.V16).
			DataPath(filepath.Join(abs, "data")).
			RuntimePath(filepath.Join(abs, "runtime")).
			BinariesPath(filepath.Join(abs, "bin")).
			Logger(l).
			StartTimeout(60 * time.Second),
	)

	start := time.Now()
	if err := pg.Start(); err != nil {
		return nil, fmt.Errorf("start embedded postgres: %w", err)
	}
	l.Info().Str("dir", abs).Uint32("port", port).Dur("duration", time.Since(start)).Msg("local store started")

	return &Local{
		pg:  pg,
		dsn: fmt.Sprintf("postgresql://%s:%s@localhost:%d/%s?sslmode=disable", localUser, localPassword, port, localDatabase),
		log: l,
	}, nil
}

// DSN returns the connection string of the running server.
func (l *Local) DSN() string {
	return l.dsn
}

// Stop shuts the server down. The data directory is kept.
func (l *Local) Stop() error {
	if err := l.pg.Stop(); err != nil {
		return fmt.Errorf("stop embedded postgres: %w", err)
	}
	l.log.Info().Msg("local store stopped")
	return nil
}
