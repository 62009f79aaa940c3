package aggregate

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
)

func money(c int64) *model.Money { m := model.Money(c); return &m }
func f64(v float64) *float64     { return &v }

func fixture() []model.Dispute {
	win, loss := model.OutcomeProviderWin, model.OutcomePayerWin
	return []model.Dispute{
		{ProviderName: "Acme", State: "TX", Specialty: "Emergency Medicine", PayerName: "UHC", Quarter: "2023-Q1", Outcome: win, DisputeType: "Batched", IDRECompensation: money(35000), ProviderOfferPct: f64(400)},
		{ProviderName: "Acme", State: "TX", Specialty: "Emergency Medicine", PayerName: "UHC", Quarter: "2023-Q2", Outcome: win, DisputeType: "Batched", IDRECompensation: money(35000), ProviderOfferPct: f64(600)},
		{ProviderName: "Acme", State: "FL", Specialty: "Radiology", PayerName: "Aetna", Quarter: "2023-Q2", Outcome: loss, DisputeType: "Single", IDRECompensation: money(50000), ProviderOfferPct: f64(800), PayerOfferPct: f64(100)},
		{ProviderName: "Beta Anesthesia", State: "FL", Specialty: "Anesthesiology", PayerName: "Aetna", Quarter: "2023-Q1", Outcome: win, DisputeType: "Single"},
	}
}

func TestOverview(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ov := Overview(fixture(), now)
	if ov.TotalDisputes != 4 || ov.ProviderWinRate != 75 || ov.BatchRate != 50 {
		t.Errorf("overview: %+v", ov)
	}
	if ov.TotalIDREFees != 120000 || ov.QuartersCovered != 2 {
		t.Errorf("fees/quarters: %+v", ov)
	}
	if ov.LastUpdated != "2024-05-01T12:00:00Z" {
		t.Errorf("last updated: %q", ov.LastUpdated)
	}
}

func TestProviders(t *testing.T) {
	got := Providers(fixture())
	if len(got) != 2 {
		t.Fatalf("providers: %+v", got)
	}
	a := got[0]
	if a.ProviderName != "Acme" || a.TotalDisputes != 3 || a.StatesCount != 2 || a.PctOfTotal != 75 {
		t.Errorf("acme: %+v", a)
	}
	if a.TopSpecialty != "Emergency Medicine" {
		t.Errorf("top specialty: %q", a.TopSpecialty)
	}
	if math.Abs(a.WinRate-200.0/3) > 1e-9 || math.Abs(a.BatchRate-200.0/3) > 1e-9 {
		t.Errorf("rates: win %v batch %v", a.WinRate, a.BatchRate)
	}
}

func TestStatesPayersQuarterly(t *testing.T) {
	rows := fixture()

	states := States(rows)
	if len(states) != 2 || states[0].TotalDisputes != 2 {
		t.Fatalf("states: %+v", states)
	}
	// FL and TX tie on volume: alphabetical.
	if states[0].State != "FL" || states[1].State != "TX" || states[1].TopProvider != "Acme" {
		t.Errorf("state order: %+v", states)
	}

	payers := Payers(rows)
	if payers[0].PayerName != "Aetna" || payers[0].LossRate != 50 {
		t.Errorf("payers: %+v", payers)
	}

	q := Quarterly(rows)
	if len(q) != 2 || q[0].Quarter != "2023-Q1" || q[1].Quarter != "2023-Q2" {
		t.Errorf("quarterly order: %+v", q)
	}
	if q[0].WinRate != 100 || q[1].BatchRate != 50 {
		t.Errorf("quarterly rates: %+v", q)
	}

	sp := Specialties(rows)
	if len(sp) != 3 || sp[0].Specialty != "Emergency Medicine" || sp[0].PctOfTotal != 50 {
		t.Errorf("specialties: %+v", sp)
	}
}

func TestView(t *testing.T) {
	rows := fixture()
	if got := (View{}).Apply(rows); len(got) != len(rows) {
		t.Errorf("empty view dropped rows: %d", len(got))
	}
	got := View{States: []string{"FL"}, Quarters: []string{"2023-Q2"}}.Apply(rows)
	if len(got) != 1 || got[0].Specialty != "Radiology" {
		t.Errorf("view: %+v", got)
	}
	if got := (View{Payers: []string{"Nobody"}}).Apply(rows); len(got) != 0 {
		t.Errorf("expected no rows, got %d", len(got))
	}
}

func TestQuantileMatchesLinearInterpolation(t *testing.T) {
	s := []float64{100, 200, 300, 400, 1000}
	cases := map[float64]float64{0: 100, 0.1: 140, 0.25: 200, 0.5: 300, 0.75: 400, 0.9: 760, 1: 1000}
	for q, want := range cases {
		if got := Quantile(s, q); math.Abs(got-want) > 1e-9 {
			t.Errorf("Quantile(%v): got %v, want %v", q, got, want)
		}
	}
	if !math.IsNaN(Quantile(nil, 0.5)) {
		t.Error("empty input should be NaN")
	}
}

func TestFinancial(t *testing.T) {
	f := Financial(fixture())
	if f.ProviderOffers == nil || f.ProviderOffers.Count != 3 || f.ProviderOffers.Mean != 600 || f.ProviderOffers.Median != 600 {
		t.Errorf("provider offers: %+v", f.ProviderOffers)
	}
	if f.PayerOffers == nil || f.PayerOffers.Count != 1 {
		t.Errorf("payer offers: %+v", f.PayerOffers)
	}
	if f.Fees == nil || f.Fees.Total != 120000 || f.Fees.Mean != 40000 || f.Fees.Median != 35000 {
		t.Errorf("fees: %+v", f.Fees)
	}
	if g := Financial([]model.Dispute{{ProviderName: "x"}}); g.ProviderOffers != nil || g.Fees != nil {
		t.Errorf("expected nil stats for rows without values: %+v", g)
	}
}

func TestInvestigate(t *testing.T) {
	rows := fixture()[:3]
	inv, err := Investigate(risk.NewScorer(risk.Rules{}), "Acme", rows, 4)
	if err != nil {
		t.Fatalf("Investigate: %v", err)
	}
	if inv.TotalDisputes != 3 || inv.QuartersActive != 2 || inv.FirstQuarter != "2023-Q1" || inv.LastQuarter != "2023-Q2" {
		t.Errorf("header: %+v", inv)
	}
	if inv.Timeline[0].Name != "2023-Q1" || inv.Timeline[1].Count != 2 {
		t.Errorf("timeline: %+v", inv.Timeline)
	}
	if inv.Geography[0].Name != "TX" || inv.TopPayers[0].Name != "UHC" {
		t.Errorf("geography/payers: %+v %+v", inv.Geography, inv.TopPayers)
	}
	if len(inv.FilingTypes) != 2 || inv.FilingTypes[0].Name != "Batched" {
		t.Errorf("filing types: %+v", inv.FilingTypes)
	}
	// Mean offer 600% of QPA and 100% growth: only pricing fires.
	if inv.Risk.Score != 15 || !inv.Risk.Has(risk.LabelExtremePricing) {
		t.Errorf("risk: %+v", inv.Risk)
	}

	if _, err := Investigate(risk.NewScorer(risk.Rules{}), "Nobody", nil, 4); !errors.Is(err, ErrNoDisputes) {
		t.Errorf("expected ErrNoDisputes, got %v", err)
	}
}

func TestTopCountsLimit(t *testing.T) {
	var rows []model.Dispute
	for _, s := range []string{"TX", "TX", "TX", "FL", "FL", "NJ", ""} {
		rows = append(rows, model.Dispute{State: s})
	}
	got := TopCounts(rows, byState, 2)
	if len(got) != 2 || got[0].Name != "TX" || got[0].Count != 3 || got[1].Name != "FL" {
		t.Errorf("TopCounts: %+v", got)
	}
}
