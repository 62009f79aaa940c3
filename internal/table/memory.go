package table

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-process Querier over JSON-shaped rows, used in tests in
// place of a remote or local backend.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]map[string]any
	calls  int
}

// NewMemory creates an empty Memory.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]map[string]any)}
}

// Put replaces the rows of table with rows, converted through JSON so the
// stored shape matches what a remote backend would return.
func (m *Memory) Put(table string, rows any) error {
	b, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("memory put %s: %w", table, err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("memory put %s: %w", table, err)
	}
	m.mu.Lock()
	m.tables[table] = decoded
	m.mu.Unlock()
	return nil
}

// Calls returns the number of Select calls served.
func (m *Memory) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Select implements Querier.
func (m *Memory) Select(ctx context.Context, tbl string, q Query) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateIdent(tbl); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls++
	src, ok := m.tables[tbl]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memory: relation %q does not exist", tbl)
	}

	out := make([]map[string]any, 0, len(src))
	for _, row := range src {
		if matches(row, q) {
			out = append(out, row)
		}
	}

	if q.OrderBy != "" || len(q.Ties) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			if q.OrderBy != "" {
				c := compare(out[i][q.OrderBy], out[j][q.OrderBy])
				if q.Desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			for _, col := range q.Ties {
				if c := compare(out[i][col], out[j][col]); c != 0 {
					return c < 0
				}
			}
			return false
		})
	}

	if q.HasRange {
		if q.From >= len(out) {
			out = out[:0]
		} else {
			end := q.To + 1
			if end > len(out) {
				end = len(out)
			}
			out = out[q.From:end]
		}
	}
	return json.Marshal(out)
}

func matches(row map[string]any, q Query) bool {
	for _, f := range q.Filters {
		if fmt.Sprint(row[f.Column]) != f.Value {
			return false
		}
	}
	if q.ILike != nil {
		v, _ := row[q.ILike.Column].(string)
		if !strings.Contains(strings.ToLower(v), strings.ToLower(q.ILike.Value)) {
			return false
		}
	}
	return true
}

func compare(a, b any) int {
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	}
	return 0
}
