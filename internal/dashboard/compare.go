package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/normalize"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
)

// Compare accepts this many providers.
const (
	MinCompare = 2
	MaxCompare = 5
)

// Comparison is one provider's column in the side-by-side view.
type Comparison struct {
	ProviderName  string     `json:"provider_name" csv:"provider_name"`
	TotalDisputes int64      `json:"total_disputes" csv:"total_disputes"`
	WinRate       float64    `json:"win_rate" csv:"win_rate"`
	BatchRate     float64    `json:"batch_rate" csv:"batch_rate"`
	StatesCount   int        `json:"states_count" csv:"states_count"`
	TopSpecialty  string     `json:"top_specialty" csv:"top_specialty"`
	PctOfTotal    float64    `json:"pct_of_total" csv:"pct_of_total"`
	RiskScore     int        `json:"risk_score" csv:"risk_score"`
	RiskLevel     risk.Level `json:"risk_level" csv:"risk_level"`
	Indicators    string     `json:"indicators" csv:"indicators"`
}

// Compare lines up the summaries and risk scores of 2 to 5 distinct
// providers, in the order given.
func (s *Service) Compare(ctx context.Context, providers []string) (Result[Comparison], error) {
	names := make([]string, 0, len(providers))
	seen := make(map[string]bool)
	for _, p := range providers {
		p = normalize.Name(p)
		if p == "" || seen[normalize.Key(p)] {
			continue
		}
		seen[normalize.Key(p)] = true
		names = append(names, p)
	}
	if len(names) < MinCompare || len(names) > MaxCompare {
		return Result[Comparison]{}, invalid("compare needs %d to %d distinct providers, got %d", MinCompare, MaxCompare, len(names))
	}

	all := s.Providers(ctx)
	if all.Message != "" {
		return failed[Comparison](all.Message), nil
	}
	index := make(map[string]model.ProviderSummary, len(all.Rows))
	for _, p := range all.Rows {
		index[normalize.Key(p.ProviderName)] = p
	}

	size := s.datasetSize(ctx)
	out := make([]Comparison, 0, len(names))
	var missing []string
	for _, name := range names {
		ps, ok := index[normalize.Key(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		a := s.scorer.Score(risk.ProfileFromSummary(ps), size)
		out = append(out, Comparison{
			ProviderName:  ps.ProviderName,
			TotalDisputes: ps.TotalDisputes,
			WinRate:       ps.WinRate,
			BatchRate:     ps.BatchRate,
			StatesCount:   ps.StatesCount,
			TopSpecialty:  ps.TopSpecialty,
			PctOfTotal:    ps.PctOfTotal,
			RiskScore:     a.Score,
			RiskLevel:     a.Level,
			Indicators:    strings.Join(a.Labels(), " | "),
		})
	}
	r := ok(out)
	if len(missing) > 0 {
		r.Message = fmt.Sprintf("No summary found for %s.", strings.Join(missing, ", "))
	}
	return r, nil
}
