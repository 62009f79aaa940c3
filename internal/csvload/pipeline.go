package csvload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/metrics"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/store"
)

// ErrNoFiles is returned when the load directory holds no quarterly files.
var ErrNoFiles = errors.New("no .csv or .parquet files found")

// PipelineError wraps an error with the phase and file where it occurred.
type PipelineError struct {
	Phase string
	File  string
	Err   error
}

func (e *PipelineError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s %s: %s", e.Phase, filepath.Base(e.File), e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Store is the subset of the local store the pipeline writes through.
type Store interface {
	RegisterFile(ctx context.Context, name, sha string, size int64, quarter string, force bool) (store.File, bool, error)
	UpdateFileStatus(ctx context.Context, fileID int64, status string, batchID *uuid.UUID, rows *int64) error
	CopyDisputes(ctx context.Context, ch <-chan *model.Dispute, batchID uuid.UUID, fileID int64) (int64, error)
	DeleteBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
	RefreshSummaries(ctx context.Context) error
}

var _ Store = (*store.Store)(nil)

// Options controls a directory load.
type Options struct {
	Dir         string
	Force       bool
	SkipSummary bool
	Metrics     *metrics.Metrics
	// MaxRejectPct fails a file whose rejected share of rows exceeds it.
	// Zero disables the check.
	MaxRejectPct float64
}

// Discover lists the quarterly files in dir, sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".parquet":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	sort.Strings(paths)
	return paths, nil
}

// Run loads every quarterly file in opts.Dir, then rebuilds the summary
// tables. A failing file does not stop the others; all failures are
// returned joined.
func Run(ctx context.Context, st Store, log zerolog.Logger, opts Options) ([]*model.LoadSummary, error) {
	paths, err := Discover(opts.Dir)
	if err != nil {
		return nil, &PipelineError{Phase: "discover", Err: err}
	}
	log.Info().Int("files", len(paths)).Str("dir", opts.Dir).Msg("starting load")

	var (
		summaries []*model.LoadSummary
		errs      []error
		loaded    int
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sum, err := LoadFile(ctx, st, log.With().Str("file", filepath.Base(path)).Logger(), path, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		summaries = append(summaries, sum)
		if !sum.Skipped {
			loaded++
		}
	}

	if loaded > 0 && !opts.SkipSummary {
		start := time.Now()
		if err := st.RefreshSummaries(ctx); err != nil {
			errs = append(errs, &PipelineError{Phase: "summarize", Err: err})
		} else {
			log.Info().Dur("duration", time.Since(start)).Msg("summary tables rebuilt")
		}
	}
	return summaries, errors.Join(errs...)
}

// LoadFile runs preflight, stage and finalize for one file.
func LoadFile(ctx context.Context, st Store, log zerolog.Logger, path string, opts Options) (*model.LoadSummary, error) {
	totalStart := time.Now()

	pf, err := Preflight(ctx, st, log, path, opts.Force)
	if err != nil {
		return nil, &PipelineError{Phase: "preflight", File: path, Err: err}
	}

	summary := &model.LoadSummary{
		FilePath:    pf.FilePath,
		FileSHA256:  pf.FileSHA256,
		FileID:      pf.File.FileID,
		LoadBatchID: pf.LoadBatchID.String(),
		Quarter:     pf.Quarter,
	}
	if pf.AlreadyLoaded {
		log.Info().
			Int64("file_id", pf.File.FileID).
			Str("sha256", pf.FileSHA256).
			Msg("file already loaded, skipping (use --force to reload)")
		summary.Skipped = true
		summary.DurationTotal = time.Since(totalStart)
		return summary, nil
	}

	if err := st.UpdateFileStatus(ctx, pf.File.FileID, store.StatusStaging, &pf.LoadBatchID, nil); err != nil {
		return nil, &PipelineError{Phase: "stage", File: path, Err: err}
	}

	res, err := Stage(ctx, st, log, pf)
	if err != nil {
		fail(ctx, st, log, pf)
		return nil, &PipelineError{Phase: "stage", File: path, Err: err}
	}
	if err := checkRejects(res, opts.MaxRejectPct); err != nil {
		fail(ctx, st, log, pf)
		return nil, &PipelineError{Phase: "stage", File: path, Err: err}
	}
	opts.Metrics.RowsLoaded(res.RowsStaged)

	if err := Finalize(ctx, st, log, pf, res.RowsStaged); err != nil {
		fail(ctx, st, log, pf)
		return nil, &PipelineError{Phase: "finalize", File: path, Err: err}
	}

	summary.RowsRead = res.RowsRead
	summary.RowsStaged = res.RowsStaged
	summary.RowsRejected = res.RowsRejected
	summary.DurationStage = res.Duration
	summary.DurationTotal = time.Since(totalStart)

	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_staged", summary.RowsStaged).
		Int64("rows_rejected", summary.RowsRejected).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("file loaded")
	return summary, nil
}

func checkRejects(res *StageResult, maxPct float64) error {
	if maxPct <= 0 || res.RowsRead == 0 {
		return nil
	}
	pct := float64(res.RowsRejected) / float64(res.RowsRead) * 100
	if pct > maxPct {
		return fmt.Errorf("%.1f%% of rows rejected (limit %.1f%%)", pct, maxPct)
	}
	return nil
}

// fail removes the partial batch and marks the file failed. It runs on a
// context detached from cancellation so an interrupted load still cleans up.
func fail(ctx context.Context, st Store, log zerolog.Logger, pf *PreflightResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	n, err := st.DeleteBatch(ctx, pf.LoadBatchID)
	if err != nil {
		log.Warn().Err(err).Msg("batch cleanup failed")
	} else if n > 0 {
		log.Info().Int64("rows_deleted", n).Msg("partial batch removed")
	}
	if err := st.UpdateFileStatus(ctx, pf.File.FileID, store.StatusFailed, nil, nil); err != nil {
		log.Warn().Err(err).Msg("mark failed")
	}
}
