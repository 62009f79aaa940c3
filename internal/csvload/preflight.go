package csvload

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/normalize"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/parquetread"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/store"
)

// Format is the on-disk encoding of a quarterly file.
type Format int

const (
	FormatCSV Format = iota
	FormatParquet
)

// PreflightResult holds everything resolved before rows are read.
type PreflightResult struct {
	FilePath   string
	FileSHA256 string
	FileSize   int64
	Format     Format
	// Quarter is the reporting quarter from the file name. Empty when the
	// name carries none; rows must then have a quarter column.
	Quarter string
	// Layout is the resolved CSV header (CSV only).
	Layout      Layout
	NumRows     int64
	File        store.File
	LoadBatchID uuid.UUID
	// AlreadyLoaded is true when the same content was loaded before and
	// force is off.
	AlreadyLoaded bool
}

// Preflight hashes the file, checks that its columns can be loaded and
// registers it in idr_files.
func Preflight(ctx context.Context, st Store, log zerolog.Logger, path string, force bool) (*PreflightResult, error) {
	start := time.Now()

	sha, size, err := normalize.FileHash(path)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}

	pf := &PreflightResult{
		FilePath:    path,
		FileSHA256:  sha,
		FileSize:    size,
		LoadBatchID: uuid.New(),
	}
	pf.Quarter, _ = normalize.QuarterFromFilename(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		pf.Format = FormatParquet
		r, err := parquetread.Open(path)
		if err != nil {
			return nil, fmt.Errorf("preflight open: %w", err)
		}
		pf.NumRows = r.NumRows()
		r.Close()
	default:
		pf.Format = FormatCSV
		layout, err := readLayout(path)
		if err != nil {
			return nil, err
		}
		if !layout.Has("provider_name") {
			return nil, fmt.Errorf("preflight validate: no provider name column")
		}
		if pf.Quarter == "" && !layout.Has("quarter") {
			return nil, fmt.Errorf("preflight validate: no quarter column and no quarter in file name")
		}
		if len(layout.Unknown) > 0 {
			log.Debug().Strs("columns", layout.Unknown).Msg("ignoring unrecognized columns")
		}
		pf.Layout = layout
	}

	file, alreadyLoaded, err := st.RegisterFile(ctx, filepath.Base(path), sha, size, pf.Quarter, force)
	if err != nil {
		return nil, fmt.Errorf("preflight register file: %w", err)
	}
	pf.File = file
	pf.AlreadyLoaded = alreadyLoaded

	log.Info().
		Str("sha256", sha).
		Int64("bytes", size).
		Str("quarter", pf.Quarter).
		Int64("file_id", file.FileID).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")
	return pf, nil
}

func readLayout(path string) (Layout, error) {
	f, r, err := openCSV(path)
	if err != nil {
		return Layout{}, fmt.Errorf("preflight open: %w", err)
	}
	defer f.Close()
	header, err := r.Read()
	if err != nil {
		return Layout{}, fmt.Errorf("preflight read header: %w", err)
	}
	return NewLayout(header), nil
}
