package csvload

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/store"
)

// Finalize marks the file loaded with its row count.
func Finalize(ctx context.Context, st Store, log zerolog.Logger, pf *PreflightResult, rows int64) error {
	if err := st.UpdateFileStatus(ctx, pf.File.FileID, store.StatusLoaded, &pf.LoadBatchID, &rows); err != nil {
		return fmt.Errorf("mark loaded: %w", err)
	}
	log.Debug().Int64("file_id", pf.File.FileID).Msg("file marked loaded")
	return nil
}
