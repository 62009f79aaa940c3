package export

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// WriteParquet writes disputes as a single Parquet file with the
// idr_disputes column names.
func WriteParquet(w io.Writer, rows []model.Dispute) error {
	pw := parquet.NewGenericWriter[model.Dispute](w, parquet.Compression(&parquet.Snappy))
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("export: write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("export: close parquet writer: %w", err)
	}
	return nil
}
