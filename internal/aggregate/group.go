package aggregate

import (
	"sort"
	"time"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// Count is one bucket of a value count: a state, payer, quarter or dispute
// type with its number of disputes and share of the input.
type Count struct {
	Name  string  `json:"name" csv:"name"`
	Count int64   `json:"count" csv:"count"`
	Pct   float64 `json:"pct" csv:"pct"`
}

type tally struct {
	total, wins, batched int64
	states               map[string]struct{}
	sub                  map[string]int64
}

func (t *tally) add(d *model.Dispute, sub string) {
	t.total++
	if d.ProviderWon() {
		t.wins++
	}
	if d.Batched() {
		t.batched++
	}
	if d.State != "" {
		if t.states == nil {
			t.states = make(map[string]struct{})
		}
		t.states[d.State] = struct{}{}
	}
	if sub != "" {
		if t.sub == nil {
			t.sub = make(map[string]int64)
		}
		t.sub[sub]++
	}
}

func (t *tally) winRate() float64   { return pct(t.wins, t.total) }
func (t *tally) batchRate() float64 { return pct(t.batched, t.total) }

func (t *tally) top() string {
	name, _ := topKey(t.sub)
	return name
}

// group tallies rows by key, skipping rows with an empty key. sub selects
// the secondary dimension whose most frequent value is reported.
func group(rows []model.Dispute, key, sub func(*model.Dispute) string) map[string]*tally {
	out := make(map[string]*tally)
	for i := range rows {
		d := &rows[i]
		k := key(d)
		if k == "" {
			continue
		}
		t, ok := out[k]
		if !ok {
			t = &tally{}
			out[k] = t
		}
		s := ""
		if sub != nil {
			s = sub(d)
		}
		t.add(d, s)
	}
	return out
}

func pct(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func topKey(m map[string]int64) (string, int64) {
	var (
		name string
		n    int64
	)
	for k, v := range m {
		if v > n || (v == n && k < name) {
			name, n = k, v
		}
	}
	return name, n
}

func byProvider(d *model.Dispute) string  { return d.ProviderName }
func byState(d *model.Dispute) string     { return d.State }
func bySpecialty(d *model.Dispute) string { return d.Specialty }
func byPayer(d *model.Dispute) string     { return d.PayerName }
func byQuarter(d *model.Dispute) string   { return d.Quarter }
func byType(d *model.Dispute) string      { return d.DisputeType }

// Overview summarizes rows. now stamps LastUpdated.
func Overview(rows []model.Dispute, now time.Time) model.Overview {
	var (
		wins, batched int64
		fees          model.Money
		quarters      = make(map[string]struct{})
	)
	for i := range rows {
		d := &rows[i]
		if d.ProviderWon() {
			wins++
		}
		if d.Batched() {
			batched++
		}
		if d.IDRECompensation != nil {
			fees += *d.IDRECompensation
		}
		if d.Quarter != "" {
			quarters[d.Quarter] = struct{}{}
		}
	}
	total := int64(len(rows))
	return model.Overview{
		TotalDisputes:   total,
		ProviderWinRate: pct(wins, total),
		BatchRate:       pct(batched, total),
		TotalIDREFees:   fees,
		QuartersCovered: len(quarters),
		LastUpdated:     now.UTC().Format(time.RFC3339),
	}
}

// Providers groups rows by provider, busiest first.
func Providers(rows []model.Dispute) []model.ProviderSummary {
	total := int64(len(rows))
	out := make([]model.ProviderSummary, 0)
	for name, t := range group(rows, byProvider, bySpecialty) {
		out = append(out, model.ProviderSummary{
			ProviderName:  name,
			TotalDisputes: t.total,
			WinRate:       t.winRate(),
			BatchRate:     t.batchRate(),
			StatesCount:   len(t.states),
			TopSpecialty:  t.top(),
			PctOfTotal:    pct(t.total, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return busier(out[i].TotalDisputes, out[j].TotalDisputes, out[i].ProviderName, out[j].ProviderName)
	})
	return out
}

// States groups rows by location of service, busiest first.
func States(rows []model.Dispute) []model.StateSummary {
	total := int64(len(rows))
	out := make([]model.StateSummary, 0)
	for name, t := range group(rows, byState, byProvider) {
		out = append(out, model.StateSummary{
			State:         name,
			TotalDisputes: t.total,
			WinRate:       t.winRate(),
			PctOfTotal:    pct(t.total, total),
			TopProvider:   t.top(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return busier(out[i].TotalDisputes, out[j].TotalDisputes, out[i].State, out[j].State)
	})
	return out
}

// Specialties groups rows by practice specialty, busiest first.
func Specialties(rows []model.Dispute) []model.SpecialtySummary {
	total := int64(len(rows))
	out := make([]model.SpecialtySummary, 0)
	for name, t := range group(rows, bySpecialty, nil) {
		out = append(out, model.SpecialtySummary{
			Specialty:     name,
			TotalDisputes: t.total,
			WinRate:       t.winRate(),
			PctOfTotal:    pct(t.total, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return busier(out[i].TotalDisputes, out[j].TotalDisputes, out[i].Specialty, out[j].Specialty)
	})
	return out
}

// Payers groups rows by health plan. LossRate is the share of the payer's
// disputes decided for the provider.
func Payers(rows []model.Dispute) []model.PayerSummary {
	total := int64(len(rows))
	out := make([]model.PayerSummary, 0)
	for name, t := range group(rows, byPayer, nil) {
		out = append(out, model.PayerSummary{
			PayerName:     name,
			TotalDisputes: t.total,
			LossRate:      t.winRate(),
			PctOfTotal:    pct(t.total, total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return busier(out[i].TotalDisputes, out[j].TotalDisputes, out[i].PayerName, out[j].PayerName)
	})
	return out
}

// Quarterly groups rows by quarter in chronological order.
func Quarterly(rows []model.Dispute) []model.QuarterSummary {
	out := make([]model.QuarterSummary, 0)
	for name, t := range group(rows, byQuarter, nil) {
		out = append(out, model.QuarterSummary{
			Quarter:       name,
			TotalDisputes: t.total,
			WinRate:       t.winRate(),
			BatchRate:     t.batchRate(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quarter < out[j].Quarter })
	return out
}

// TopCounts returns the n most frequent non-empty values of key, with
// percentages of len(rows). n <= 0 returns every value.
func TopCounts(rows []model.Dispute, key func(*model.Dispute) string, n int) []Count {
	counts := make(map[string]int64)
	for i := range rows {
		if k := key(&rows[i]); k != "" {
			counts[k]++
		}
	}
	total := int64(len(rows))
	out := make([]Count, 0, len(counts))
	for k, v := range counts {
		out = append(out, Count{Name: k, Count: v, Pct: pct(v, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		return busier(out[i].Count, out[j].Count, out[i].Name, out[j].Name)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func busier(a, b int64, an, bn string) bool {
	if a != b {
		return a > b
	}
	return an < bn
}
