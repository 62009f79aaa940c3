package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

// DefaultPageSize matches the row cap of a hosted PostgREST endpoint.
const DefaultPageSize = 1000

// ErrNoFilter is returned when a dispute filter names no dimension.
var ErrNoFilter = errors.New("fetch: exactly one of provider, state or specialty is required")

// Filter selects disputes by one dimension.
type Filter struct {
	Provider  string
	State     string
	Specialty string
}

// Query converts the filter into an equality query on idr_disputes.
func (f Filter) Query() (table.Query, error) {
	var q table.Query
	n := 0
	if f.Provider != "" {
		q = q.Eq("provider_name", f.Provider)
		n++
	}
	if f.State != "" {
		q = q.Eq("state", f.State)
		n++
	}
	if f.Specialty != "" {
		q = q.Eq("specialty", f.Specialty)
		n++
	}
	if n != 1 {
		return table.Query{}, ErrNoFilter
	}
	return q, nil
}

// Key returns a stable cache key for the filter.
func (f Filter) Key() string {
	return fmt.Sprintf("p=%s|s=%s|sp=%s", f.Provider, f.State, f.Specialty)
}

// PageFunc is called after every page with the page number (1-based) and the
// running row count.
type PageFunc func(page, rows int)

// Options tune All.
type Options struct {
	PageSize int
	OnPage   PageFunc
}

// All requests fixed-size windows [offset, offset+size-1] from tbl until a
// page comes back shorter than the window or empty, and returns the
// concatenated rows. The window never exceeds the row cap of a
// table.RowCapper backend, so a capped page is not taken for the last one.
// There is no retry: the first error ends the fetch.
func All[T any](ctx context.Context, qr table.Querier, tbl string, q table.Query, opts Options) ([]T, error) {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if c, ok := qr.(table.RowCapper); ok {
		if limit := c.MaxRows(); limit > 0 && size > limit {
			size = limit
		}
	}

	var all []T
	for page, offset := 1, 0; ; page, offset = page+1, offset+size {
		rows, err := table.List[T](ctx, qr, tbl, q.Range(offset, offset+size-1))
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", tbl, page, err)
		}
		all = append(all, rows...)
		if opts.OnPage != nil {
			opts.OnPage(page, len(all))
		}
		if len(rows) < size {
			break
		}
	}
	return all, nil
}

// Disputes fetches every dispute matching f.
func Disputes(ctx context.Context, qr table.Querier, f Filter, opts Options) ([]model.Dispute, error) {
	q, err := f.Query()
	if err != nil {
		return nil, err
	}
	return All[model.Dispute](ctx, qr, model.TableDisputes, q.Then(model.TableKeys[model.TableDisputes]...), opts)
}
