package parquetread

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// Reader wraps a parquet GenericReader for streaming dispute records.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[model.Dispute]
}

// Open opens a Parquet file and returns a streaming Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	if err := ValidateSchema(pf.Schema()); err != nil {
		f.Close()
		return nil, err
	}

	return &Reader{file: f, reader: parquet.NewGenericReader[model.Dispute](pf)}, nil
}

// NumRows returns the total number of rows in the file.
func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records into rows.
// Returns the number of rows read and io.EOF when done.
func (r *Reader) Read(rows []model.Dispute) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// Close releases all resources.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// ReadAll loads every row of the file at path.
func ReadAll(path string) ([]model.Dispute, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out := make([]model.Dispute, 0, r.NumRows())
	buf := make([]model.Dispute, 1024)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
