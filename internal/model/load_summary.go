package model

import "time"

// LoadSummary captures metrics from loading a single quarterly file.
type LoadSummary struct {
	FilePath      string
	FileSHA256    string
	FileID        int64
	LoadBatchID   string
	Quarter       string
	RowsRead      int64
	RowsStaged    int64
	RowsRejected  int64
	Skipped       bool
	DurationStage time.Duration
	DurationTotal time.Duration
}
