package dashboard

import (
	"context"
	"encoding/json"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/metrics"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

// instrumented counts every page requested from the backend.
type instrumented struct {
	next table.Querier
	m    *metrics.Metrics
}

// Instrument wraps q so each Select is counted per table. A nil m returns q
// unchanged.
func Instrument(q table.Querier, m *metrics.Metrics) table.Querier {
	if m == nil {
		return q
	}
	return &instrumented{next: q, m: m}
}

func (i *instrumented) Select(ctx context.Context, tbl string, q table.Query) (json.RawMessage, error) {
	raw, err := i.next.Select(ctx, tbl, q)
	if err == nil {
		i.m.PageFetched(tbl)
	}
	return raw, err
}

// MaxRows forwards the row cap of the wrapped backend.
func (i *instrumented) MaxRows() int {
	if c, ok := i.next.(table.RowCapper); ok {
		return c.MaxRows()
	}
	return 0
}
