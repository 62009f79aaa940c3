package csvload

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/normalize"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/parquetread"
)

const readBatchSize = 1024

// maxLoggedRejects caps per-row reject warnings for one file.
const maxLoggedRejects = 20

// StageResult holds metrics from the staging phase.
type StageResult struct {
	RowsRead     int64
	RowsStaged   int64
	RowsRejected int64
	Duration     time.Duration
}

// openCSV opens path with a buffered reader that skips a UTF-8 byte order
// mark and tolerates stray quotes and ragged rows.
func openCSV(path string) (*os.File, *csv.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReaderSize(f, 256*1024)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}
	r := csv.NewReader(br)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	return f, r, nil
}

// Stage streams rows from the file, normalizes them, and COPY-loads them
// into idr_disputes via a channel-backed CopyFromSource.
func Stage(ctx context.Context, st Store, log zerolog.Logger, pf *PreflightResult) (*StageResult, error) {
	start := time.Now()

	ch := make(chan *model.Dispute, readBatchSize)
	errCh := make(chan error, 1)

	var rowsRead, rowsRejected int64
	reject := func(row int64, err error) {
		rowsRejected++
		if rowsRejected <= maxLoggedRejects {
			log.Warn().Err(err).Int64("row", row).Msg("row rejected")
		}
	}
	send := func(d *model.Dispute) error {
		select {
		case ch <- d:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Producer goroutine: read file → normalize → push to channel
	go func() {
		defer close(ch)
		var err error
		if pf.Format == FormatParquet {
			err = produceParquet(pf, &rowsRead, reject, send)
		} else {
			err = produceCSV(pf, &rowsRead, reject, send)
		}
		errCh <- err
	}()

	// Consumer: COPY from channel
	rowsStaged, err := st.CopyDisputes(ctx, ch, pf.LoadBatchID, pf.File.FileID)
	if err != nil {
		// Unblock the producer if COPY stopped reading early.
		go func() {
			for range ch {
			}
		}()
	}

	prodErr := <-errCh
	if prodErr != nil {
		return nil, fmt.Errorf("stage producer: %w", prodErr)
	}
	if err != nil {
		return nil, fmt.Errorf("stage copy: %w", err)
	}

	dur := time.Since(start)
	log.Info().
		Int64("rows_read", rowsRead).
		Int64("rows_staged", rowsStaged).
		Int64("rows_rejected", rowsRejected).
		Str("duration", dur.String()).
		Float64("rows_per_sec", float64(rowsStaged)/dur.Seconds()).
		Msg("staging complete")

	return &StageResult{
		RowsRead:     rowsRead,
		RowsStaged:   rowsStaged,
		RowsRejected: rowsRejected,
		Duration:     dur,
	}, nil
}

func produceCSV(pf *PreflightResult, rowsRead *int64, reject func(int64, error), send func(*model.Dispute) error) error {
	f, r, err := openCSV(pf.FilePath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	if _, err := r.Read(); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		*rowsRead++
		if err != nil {
			reject(*rowsRead, err)
			continue
		}
		d, err := normalize.ToDispute(pf.Layout.Fields(record), pf.Quarter)
		if err != nil {
			reject(*rowsRead, err)
			continue
		}
		if err := send(&d); err != nil {
			return err
		}
	}
}

func produceParquet(pf *PreflightResult, rowsRead *int64, reject func(int64, error), send func(*model.Dispute) error) error {
	reader, err := parquetread.Open(pf.FilePath)
	if err != nil {
		return fmt.Errorf("open parquet: %w", err)
	}
	defer reader.Close()

	buf := make([]model.Dispute, readBatchSize)
	for {
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			*rowsRead++
			d := buf[i]
			if err := normalizeRow(&d, pf.Quarter); err != nil {
				reject(*rowsRead, err)
				continue
			}
			if err := send(&d); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read parquet at row %d: %w", *rowsRead, readErr)
		}
	}
}

// normalizeRow applies the CSV path's cleanup to an already-typed row.
func normalizeRow(d *model.Dispute, fallbackQuarter string) error {
	d.ProviderName = normalize.Name(d.ProviderName)
	d.PayerName = normalize.Name(d.PayerName)
	d.Specialty = normalize.Name(d.Specialty)
	d.State = normalize.State(d.State)
	d.ServiceCode = normalize.Code(d.ServiceCode)
	if d.ProviderName == "" {
		return normalize.ErrNoProvider
	}
	q, ok := normalize.Quarter(d.Quarter)
	if !ok {
		q, ok = normalize.Quarter(fallbackQuarter)
	}
	if !ok {
		return normalize.ErrNoQuarter
	}
	d.Quarter = q
	return nil
}
