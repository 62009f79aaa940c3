package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	embedsql "github.com/NicholasBallas/idr-intelligence-platform/internal/sql"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

// File statuses in idr_files.
const (
	StatusPending = "pending"
	StatusStaging = "staging"
	StatusLoaded  = "loaded"
	StatusFailed  = "failed"
)

var _ table.Querier = (*Store)(nil)

// Store is the local Postgres backend. It serves the same tables as the
// hosted endpoint and owns the load bookkeeping.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New wraps an open pool.
func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{pool: pool, log: log.With().Str("component", "store").Logger()}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Select runs q against tbl and returns the rows as a JSON array, built
// server-side with json_agg so every table decodes like a PostgREST response.
func (s *Store) Select(ctx context.Context, tbl string, q table.Query) (json.RawMessage, error) {
	stmt, args, err := BuildSelect(tbl, q)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := s.pool.QueryRow(ctx, stmt, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("select %s: %w", tbl, err)
	}
	return json.RawMessage(raw), nil
}

// BuildSelect renders q as a single SQL statement with positional arguments.
// Identifiers are validated and quoted; values are always parameters.
func BuildSelect(tbl string, q table.Query) (string, []any, error) {
	if err := table.ValidateIdent(tbl); err != nil {
		return "", nil, err
	}
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	var (
		b     strings.Builder
		args  []any
		where []string
	)
	for _, f := range q.Filters {
		args = append(args, f.Value)
		where = append(where, fmt.Sprintf("%s::text = $%d", pgx.Identifier{f.Column}.Sanitize(), len(args)))
	}
	if q.ILike != nil {
		args = append(args, "%"+escapeLike(q.ILike.Value)+"%")
		where = append(where, fmt.Sprintf("%s::text ILIKE $%d", pgx.Identifier{q.ILike.Column}.Sanitize(), len(args)))
	}

	b.WriteString("SELECT coalesce(json_agg(t), '[]'::json) FROM (SELECT * FROM ")
	b.WriteString(pgx.Identifier{tbl}.Sanitize())
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	var order []string
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		order = append(order, pgx.Identifier{q.OrderBy}.Sanitize()+" "+dir)
	}
	for _, c := range q.Ties {
		order = append(order, pgx.Identifier{c}.Sanitize())
	}
	// Pages must not overlap: tie-break on physical position.
	if q.HasRange {
		order = append(order, "ctid")
	}
	if len(order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(order, ", "))
	}
	if q.HasRange {
		b.WriteString(" OFFSET " + strconv.Itoa(q.From) + " LIMIT " + strconv.Itoa(q.Limit()))
	}
	b.WriteString(") t")
	return b.String(), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// File is one row of the idr_files registry.
type File struct {
	FileID     int64  `json:"file_id"`
	SourceName string `json:"source_name"`
	SHA256     string `json:"sha256"`
	SizeBytes  int64  `json:"size_bytes"`
	Quarter    string `json:"quarter"`
	Status     string `json:"status"`
	RowsLoaded int64  `json:"rows_loaded"`
}

func scanFile(row pgx.Row) (File, error) {
	var f File
	err := row.Scan(&f.FileID, &f.SourceName, &f.SHA256, &f.SizeBytes, &f.Quarter, &f.Status, &f.RowsLoaded)
	return f, err
}

// RegisterFile records a file by content hash. When the hash is already
// loaded and force is off, it returns the existing row and alreadyLoaded.
// Otherwise the row is reset to pending and any rows from an earlier load
// of the same file are removed.
func (s *Store) RegisterFile(ctx context.Context, name, sha string, size int64, quarter string, force bool) (File, bool, error) {
	f, err := scanFile(s.pool.QueryRow(ctx, embedsql.RegisterFile, name, sha, size, quarter))
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return File{}, false, fmt.Errorf("register file: %w", err)
	}

	f, err = scanFile(s.pool.QueryRow(ctx, embedsql.LookupFile, sha))
	if err != nil {
		return File{}, false, fmt.Errorf("lookup existing file: %w", err)
	}
	if f.Status == StatusLoaded && !force {
		return f, true, nil
	}

	tag, err := s.pool.Exec(ctx, embedsql.DeleteFileRows, f.FileID)
	if err != nil {
		return File{}, false, fmt.Errorf("delete previous rows: %w", err)
	}
	if tag.RowsAffected() > 0 {
		s.log.Info().Int64("file_id", f.FileID).Int64("rows_deleted", tag.RowsAffected()).Msg("removed rows from previous load")
	}
	if err := s.UpdateFileStatus(ctx, f.FileID, StatusPending, nil, nil); err != nil {
		return File{}, false, err
	}
	f.Status = StatusPending
	return f, false, nil
}

// UpdateFileStatus moves a file through its lifecycle. batchID and rows are
// left unchanged when nil.
func (s *Store) UpdateFileStatus(ctx context.Context, fileID int64, status string, batchID *uuid.UUID, rows *int64) error {
	var batch any
	if batchID != nil {
		batch = *batchID
	}
	var n any
	if rows != nil {
		n = *rows
	}
	if _, err := s.pool.Exec(ctx, embedsql.UpdateFileStatus, fileID, status, batch, n); err != nil {
		return fmt.Errorf("update file %d status %s: %w", fileID, status, err)
	}
	return nil
}

// Files lists the registry.
func (s *Store) Files(ctx context.Context) ([]File, error) {
	rows, err := s.pool.Query(ctx, embedsql.ListFiles)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CopyDisputes streams rows from ch into idr_disputes with COPY.
func (s *Store) CopyDisputes(ctx context.Context, ch <-chan *model.Dispute, batchID uuid.UUID, fileID int64) (int64, error) {
	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{model.TableDisputes},
		CopyColumns(),
		NewChannelSource(ch, batchID, fileID),
	)
	if err != nil {
		return n, fmt.Errorf("copy disputes: %w", err)
	}
	return n, nil
}

// DeleteBatch removes every row of one load batch.
func (s *Store) DeleteBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, embedsql.DeleteBatch, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete batch %s: %w", batchID, err)
	}
	return tag.RowsAffected(), nil
}

// RefreshSummaries rebuilds every summary_* and state_* table from
// idr_disputes in one transaction, so readers never see a partial rebuild.
func (s *Store) RefreshSummaries(ctx context.Context) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, embedsql.RefreshSummaries)
		return err
	})
	if err != nil {
		return fmt.Errorf("refresh summaries: %w", err)
	}
	s.log.Info().Dur("duration", time.Since(start)).Msg("summary tables refreshed")
	return nil
}
