package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/fetch"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/metrics"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

func disputes() []model.Dispute {
	win, loss := model.OutcomeProviderWin, model.OutcomePayerWin
	var rows []model.Dispute
	add := func(n int, d model.Dispute) {
		for i := 0; i < n; i++ {
			rows = append(rows, d)
		}
	}
	add(3, model.Dispute{ProviderName: "Acme Emergency", State: "TX", Specialty: "Emergency Medicine", PayerName: "UHC", Quarter: "2023-Q1", Outcome: win, DisputeType: model.DisputeTypeBatched})
	add(2, model.Dispute{ProviderName: "Acme Emergency", State: "FL", Specialty: "Emergency Medicine", PayerName: "Aetna", Quarter: "2023-Q2", Outcome: loss, DisputeType: "Single"})
	add(4, model.Dispute{ProviderName: "Beta Radiology", State: "TX", Specialty: "Radiology", PayerName: "Cigna", Quarter: "2023-Q2", Outcome: win, DisputeType: "Single"})
	add(1, model.Dispute{ProviderName: "Gamma Anesthesia", State: "NY", Specialty: "Anesthesiology", PayerName: "UHC", Quarter: "2023-Q1", Outcome: loss, DisputeType: "Single"})
	return rows
}

func seed(t *testing.T) *table.Memory {
	t.Helper()
	rows := disputes()
	m := table.NewMemory()
	put := func(tbl string, v any) {
		if err := m.Put(tbl, v); err != nil {
			t.Fatal(err)
		}
	}
	put(model.TableDisputes, rows)
	put(model.TableOverview, []model.Overview{aggregate.Overview(rows, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))})
	put(model.TableProviders, aggregate.Providers(rows))
	put(model.TableStates, aggregate.States(rows))
	put(model.TableSpecialties, aggregate.Specialties(rows))
	put(model.TablePayers, aggregate.Payers(rows))
	put(model.TableQuarterly, aggregate.Quarterly(rows))
	put(model.TableStateProviders, []model.StateProvider{
		{State: "TX", ProviderName: "Acme Emergency", TotalDisputes: 3, WinRate: 100},
		{State: "TX", ProviderName: "Beta Radiology", TotalDisputes: 4, WinRate: 100},
		{State: "FL", ProviderName: "Acme Emergency", TotalDisputes: 2},
	})
	put(model.TableStateSpecialties, []model.StateSpecialty{{State: "TX", Specialty: "Radiology", TotalDisputes: 4}})
	put(model.TableStatePayers, []model.StatePayer{{State: "TX", PayerName: "Cigna", TotalDisputes: 4, LossRate: 100}})
	put(model.TableStateQuarterly, []model.StateQuarter{
		{State: "TX", Quarter: "2023-Q2", TotalDisputes: 4},
		{State: "TX", Quarter: "2023-Q1", TotalDisputes: 3},
	})
	return m
}

func newService(q table.Querier) *Service {
	return New(q, zerolog.Nop(), Options{PageSize: 2})
}

func TestSummariesAreOrdered(t *testing.T) {
	s := newService(seed(t))
	ctx := context.Background()

	providers := s.Providers(ctx)
	if providers.Message != "" || len(providers.Rows) != 3 {
		t.Fatalf("providers: %+v", providers)
	}
	if providers.Rows[0].ProviderName != "Acme Emergency" || providers.Rows[0].TotalDisputes != 5 {
		t.Errorf("busiest provider first, got %+v", providers.Rows[0])
	}

	q := s.Quarterly(ctx).Rows
	if len(q) != 2 || q[0].Quarter != "2023-Q1" || q[1].Quarter != "2023-Q2" {
		t.Errorf("quarterly not chronological: %+v", q)
	}

	ov, ok := s.Overview(ctx).First()
	if !ok || ov.TotalDisputes != 10 {
		t.Errorf("overview: %+v", ov)
	}
}

func TestReadsAreMemoized(t *testing.T) {
	m := seed(t)
	s := newService(m)
	ctx := context.Background()

	s.States(ctx)
	calls := m.Calls()
	s.States(ctx)
	if m.Calls() != calls {
		t.Errorf("second read hit the backend: %d -> %d calls", calls, m.Calls())
	}
	s.Invalidate()
	s.States(ctx)
	if m.Calls() == calls {
		t.Error("invalidate should force a reload")
	}
}

func TestFailureBecomesMessage(t *testing.T) {
	m := table.NewMemory()
	s := newService(m)
	ctx := context.Background()

	r := s.Payers(ctx)
	if len(r.Rows) != 0 || !strings.Contains(r.Message, "payer summaries") {
		t.Fatalf("expected empty result with message, got %+v", r)
	}
	if r.Rows == nil {
		t.Error("rows should be an empty slice, not nil")
	}

	// Errors are not memoized.
	m.Put(model.TablePayers, []model.PayerSummary{{PayerName: "UHC", TotalDisputes: 1}})
	if r := s.Payers(ctx); r.Message != "" || len(r.Rows) != 1 {
		t.Errorf("after recovery: %+v", r)
	}
}

func TestStateReads(t *testing.T) {
	s := newService(seed(t))
	ctx := context.Background()

	sp, err := s.StateProviders(ctx, " texas ")
	if err != nil {
		t.Fatal(err)
	}
	if len(sp.Rows) != 2 || sp.Rows[0].ProviderName != "Beta Radiology" {
		t.Errorf("state providers: %+v", sp.Rows)
	}
	sq, _ := s.StateQuarterly(ctx, "tx")
	if len(sq.Rows) != 2 || sq.Rows[0].Quarter != "2023-Q1" {
		t.Errorf("state quarterly: %+v", sq.Rows)
	}
	if _, err := s.StatePayers(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank state: %v", err)
	}
}

func TestSearchProviders(t *testing.T) {
	s := newService(seed(t))
	ctx := context.Background()

	r, err := s.SearchProviders(ctx, "RADIO")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Rows) != 1 || r.Rows[0].ProviderName != "Beta Radiology" {
		t.Errorf("search: %+v", r.Rows)
	}
	if _, err := s.SearchProviders(ctx, " "); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank term: %v", err)
	}
}

func TestDisputesPaginated(t *testing.T) {
	m := seed(t)
	s := newService(m)
	ctx := context.Background()

	before := m.Calls()
	r, err := s.Disputes(ctx, fetch.Filter{State: "TX"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Rows) != 7 {
		t.Errorf("expected 7 TX disputes, got %d", len(r.Rows))
	}
	// 7 rows at page size 2: four pages.
	if got := m.Calls() - before; got != 4 {
		t.Errorf("expected 4 page requests, got %d", got)
	}

	if _, err := s.Disputes(ctx, fetch.Filter{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("no filter: %v", err)
	}
	if _, err := s.Disputes(ctx, fetch.Filter{State: "TX", Provider: "Acme"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("two filters: %v", err)
	}
}

func TestInvestigate(t *testing.T) {
	s := newService(seed(t))
	ctx := context.Background()

	r, err := s.Investigate(ctx, "Acme Emergency")
	if err != nil {
		t.Fatal(err)
	}
	inv, ok := r.First()
	if !ok {
		t.Fatalf("no investigation: %+v", r)
	}
	if inv.TotalDisputes != 5 || inv.QuartersActive != 2 || inv.FirstQuarter != "2023-Q1" {
		t.Errorf("investigation: %+v", inv)
	}
	if len(inv.Geography) != 2 || len(inv.TopPayers) != 2 {
		t.Errorf("geography/payers: %+v %+v", inv.Geography, inv.TopPayers)
	}

	r, err = s.Investigate(ctx, "Nobody")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Rows) != 0 || !strings.Contains(r.Message, "Nobody") {
		t.Errorf("unknown provider: %+v", r)
	}

	if _, err := s.Investigate(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank provider: %v", err)
	}
}

func TestRiskFlags(t *testing.T) {
	m := seed(t)
	m.Put(model.TableProviders, []model.ProviderSummary{
		{ProviderName: "Mega Clinic", TotalDisputes: 12000, BatchRate: 95, StatesCount: 3, WinRate: 80},
		{ProviderName: "Busy Group", TotalDisputes: 2000, BatchRate: 50, StatesCount: 12, WinRate: 80},
		{ProviderName: "Quiet Practice", TotalDisputes: 20, BatchRate: 10, StatesCount: 1, WinRate: 50},
	})
	s := newService(m)
	ctx := context.Background()

	r, err := s.RiskFlags(ctx, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Rows) != 2 {
		t.Fatalf("expected 2 flagged providers, got %+v", r.Rows)
	}
	if r.Rows[0].ProviderName != "Mega Clinic" || r.Rows[0].RiskScore != 50 || r.Rows[0].RiskLevel != risk.LevelMedium {
		t.Errorf("top flag: %+v", r.Rows[0])
	}
	if r.Rows[1].RiskScore != 30 {
		t.Errorf("second flag: %+v", r.Rows[1])
	}

	r, _ = s.RiskFlags(ctx, 0)
	if len(r.Rows) != 3 {
		t.Errorf("min score 0 lists everyone, got %d", len(r.Rows))
	}

	zero := 0
	all := New(m, zerolog.Nop(), Options{FlagThreshold: &zero})
	if r, _ := all.RiskFlags(ctx, -1); len(r.Rows) != 3 {
		t.Errorf("configured threshold 0 lists everyone, got %d", len(r.Rows))
	}
	if _, err := s.RiskFlags(ctx, 101); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("min score 101: %v", err)
	}
}

func TestCompare(t *testing.T) {
	s := newService(seed(t))
	ctx := context.Background()

	r, err := s.Compare(ctx, []string{"beta radiology", "Acme Emergency", "Nobody"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Rows) != 2 || r.Rows[0].ProviderName != "Beta Radiology" || r.Rows[1].TotalDisputes != 5 {
		t.Errorf("compare rows: %+v", r.Rows)
	}
	if !strings.Contains(r.Message, "Nobody") {
		t.Errorf("missing provider not reported: %q", r.Message)
	}

	cases := [][]string{
		{"Acme Emergency"},
		{"Acme Emergency", "acme emergency"},
		{"a", "b", "c", "d", "e", "f"},
	}
	for _, c := range cases {
		if _, err := s.Compare(ctx, c); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Compare(%v): expected invalid input, got %v", c, err)
		}
	}
}

func TestSnapshot(t *testing.T) {
	s := newService(seed(t))
	snap, ok := s.Snapshot(context.Background()).First()
	if !ok {
		t.Fatal("snapshot failed")
	}
	if snap.Overview == nil || snap.Overview.TotalDisputes != 10 {
		t.Errorf("overview: %+v", snap.Overview)
	}
	if len(snap.Providers) != 3 || len(snap.States) != 3 || len(snap.Specialties) != 3 ||
		len(snap.Payers) != 3 || len(snap.Quarterly) != 2 {
		t.Errorf("snapshot sizes: %+v", snap)
	}

	m := table.NewMemory()
	m.Put(model.TableOverview, []model.Overview{{TotalDisputes: 1}})
	r := newService(m).Snapshot(context.Background())
	if len(r.Rows) != 0 || r.Message == "" {
		t.Errorf("partial backend should fail the snapshot: %+v", r)
	}
}

func TestFilteredView(t *testing.T) {
	m := seed(t)
	s := newService(m)
	s.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	r, err := s.FilteredView(ctx, aggregate.View{States: []string{"texas"}, Quarters: []string{"2023-Q2", "Q1 2023", " "}})
	if err != nil {
		t.Fatal(err)
	}
	v, ok := r.First()
	if !ok {
		t.Fatalf("no view: %+v", r)
	}
	if v.Overview.TotalDisputes != 7 || v.Overview.QuartersCovered != 2 || v.Overview.LastUpdated != "2024-03-09T00:00:00Z" {
		t.Errorf("overview: %+v", v.Overview)
	}
	if len(v.Providers) != 2 || v.Providers[0].ProviderName != "Beta Radiology" || v.Providers[0].TotalDisputes != 4 {
		t.Errorf("providers: %+v", v.Providers)
	}
	if len(v.States) != 1 || v.States[0].State != "TX" {
		t.Errorf("states: %+v", v.States)
	}
	if len(v.Quarterly) != 2 || v.Quarterly[0].Quarter != "2023-Q1" {
		t.Errorf("quarterly: %+v", v.Quarterly)
	}
	if len(v.Filter.States) != 1 || v.Filter.States[0] != "TX" || len(v.Filter.Quarters) != 2 {
		t.Errorf("filter not normalized: %+v", v.Filter)
	}

	r, _ = s.FilteredView(ctx, aggregate.View{Payers: []string{"UHC"}})
	if v, _ := r.First(); v.Overview.TotalDisputes != 4 || len(v.Payers) != 1 {
		t.Errorf("payer view: %+v", v)
	}

	r, _ = s.FilteredView(ctx, aggregate.View{States: []string{"CA"}})
	if len(r.Rows) != 0 || r.Message == "" {
		t.Errorf("empty view should carry a message: %+v", r)
	}

	for _, bad := range []aggregate.View{{}, {States: []string{" "}}, {Quarters: []string{"someday"}}} {
		if _, err := s.FilteredView(ctx, bad); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("FilteredView(%+v): expected invalid input, got %v", bad, err)
		}
	}
}

func TestViewQueryNarrowsSingleValues(t *testing.T) {
	q := viewQuery(aggregate.View{States: []string{"TX"}, Payers: []string{"UHC", "Cigna"}})
	if len(q.Filters) != 1 || q.Filters[0] != (table.Filter{Column: "state", Value: "TX"}) {
		t.Errorf("filters: %+v", q.Filters)
	}
	if len(q.Ties) == 0 {
		t.Error("dispute pages need a stable order")
	}
}

type cappedQuerier struct{ *table.Memory }

func (cappedQuerier) MaxRows() int { return 1000 }

func TestInstrumentKeepsRowCap(t *testing.T) {
	q := Instrument(cappedQuerier{table.NewMemory()}, metrics.New())
	c, ok := q.(table.RowCapper)
	if !ok || c.MaxRows() != 1000 {
		t.Errorf("row cap hidden by instrumentation: %v", ok)
	}
}
