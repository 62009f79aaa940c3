package dashboard

import (
	"context"
	"slices"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/normalize"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

// View is every dashboard tab recomputed over the disputes inside a filter.
type View struct {
	Filter      aggregate.View           `json:"filter"`
	Overview    model.Overview           `json:"overview"`
	Providers   []model.ProviderSummary  `json:"providers"`
	States      []model.StateSummary     `json:"states"`
	Specialties []model.SpecialtySummary `json:"specialties"`
	Payers      []model.PayerSummary     `json:"payers"`
	Quarterly   []model.QuarterSummary   `json:"quarterly"`
}

// cleanView normalizes every selected value and drops blanks and repeats.
func cleanView(v aggregate.View) (aggregate.View, error) {
	var bad string
	quarter := func(s string) string {
		q, ok := normalize.Quarter(s)
		if !ok && bad == "" {
			bad = s
		}
		return q
	}
	out := aggregate.View{
		Quarters:    cleanSet(v.Quarters, quarter),
		States:      cleanSet(v.States, normalize.State),
		Specialties: cleanSet(v.Specialties, normalize.Name),
		Payers:      cleanSet(v.Payers, normalize.Name),
	}
	if bad != "" {
		return out, invalid("unrecognized quarter %q", bad)
	}
	if out.Empty() {
		return out, invalid("select at least one quarter, state, specialty or payer")
	}
	return out, nil
}

func cleanSet(vals []string, norm func(string) string) []string {
	var out []string
	for _, v := range vals {
		if normalize.Name(v) == "" {
			continue
		}
		if n := norm(v); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// viewQuery narrows the backend read with every dimension that has a single
// value; the rest are applied in memory.
func viewQuery(v aggregate.View) table.Query {
	q := table.Query{}.Then(model.TableKeys[model.TableDisputes]...)
	for _, d := range []struct {
		col  string
		vals []string
	}{
		{"quarter", v.Quarters},
		{"state", v.States},
		{"specialty", v.Specialties},
		{"payer_name", v.Payers},
	} {
		if len(d.vals) == 1 {
			q = q.Eq(d.col, d.vals[0])
		}
	}
	return q
}

// FilteredView recomputes the overview and the dimension summaries over
// the disputes whose quarter, state, specialty and payer fall inside v.
func (s *Service) FilteredView(ctx context.Context, v aggregate.View) (Result[View], error) {
	v, err := cleanView(v)
	if err != nil {
		return Result[View]{}, err
	}
	rows, err := load[model.Dispute](ctx, s, model.TableDisputes, viewQuery(v))
	if err != nil {
		return failedRead[View](s, "filtered disputes", err), nil
	}
	rows = v.Apply(rows)
	if len(rows) == 0 {
		return failed[View]("No disputes match the selected filters."), nil
	}
	return ok([]View{{
		Filter:      v,
		Overview:    aggregate.Overview(rows, s.now()),
		Providers:   aggregate.Providers(rows),
		States:      aggregate.States(rows),
		Specialties: aggregate.Specialties(rows),
		Payers:      aggregate.Payers(rows),
		Quarterly:   aggregate.Quarterly(rows),
	}}), nil
}
