package table

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidIdentifier is returned for table or column names that are not
// plain lower-case SQL identifiers.
var ErrInvalidIdentifier = errors.New("table: invalid identifier")

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Filter is a single equality predicate.
type Filter struct {
	Column string
	Value  string
}

// Query describes a read against one table: equality filters, an optional
// case-insensitive substring match, ordering and an inclusive row range.
// The zero value selects every row in storage order.
type Query struct {
	Filters  []Filter
	ILike    *Filter
	OrderBy  string
	Desc     bool
	Ties     []string // ascending tie-breaks after OrderBy; keep pages disjoint
	HasRange bool
	From     int
	To       int
}

// Eq adds an equality filter.
func (q Query) Eq(column, value string) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

// Contains adds a case-insensitive substring filter on column.
func (q Query) Contains(column, term string) Query {
	q.ILike = &Filter{Column: column, Value: term}
	return q
}

// Order sets the sort column.
func (q Query) Order(column string, desc bool) Query {
	q.OrderBy = column
	q.Desc = desc
	return q
}

// Then sets the ascending tie-break columns, usually the table key.
func (q Query) Then(columns ...string) Query {
	q.Ties = append([]string(nil), columns...)
	return q
}

// Range restricts the result to rows [from, to], both inclusive.
func (q Query) Range(from, to int) Query {
	q.HasRange = true
	q.From = from
	q.To = to
	return q
}

// Limit returns the number of rows the range allows, or -1 when unbounded.
func (q Query) Limit() int {
	if !q.HasRange {
		return -1
	}
	return q.To - q.From + 1
}

// Validate checks every identifier and the range bounds.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		if err := ValidateIdent(f.Column); err != nil {
			return err
		}
	}
	if q.ILike != nil {
		if err := ValidateIdent(q.ILike.Column); err != nil {
			return err
		}
	}
	if q.OrderBy != "" {
		if err := ValidateIdent(q.OrderBy); err != nil {
			return err
		}
	}
	for _, c := range q.Ties {
		if err := ValidateIdent(c); err != nil {
			return err
		}
	}
	if q.HasRange && (q.From < 0 || q.To < q.From) {
		return fmt.Errorf("table: invalid range %d-%d", q.From, q.To)
	}
	return nil
}

// ValidateIdent rejects anything that is not a plain identifier.
func ValidateIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// Querier reads rows from a named table and returns them as a JSON array.
type Querier interface {
	Select(ctx context.Context, table string, q Query) (json.RawMessage, error)
}

// RowCapper is implemented by backends that return at most MaxRows rows per
// request whatever range is asked for. Zero means no cap.
type RowCapper interface {
	MaxRows() int
}

// List runs q against table and decodes the rows into T.
func List[T any](ctx context.Context, qr Querier, table string, q Query) ([]T, error) {
	raw, err := qr.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	var rows []T
	if len(raw) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", table, err)
	}
	return rows, nil
}
