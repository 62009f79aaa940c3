package risk

import (
	"sort"
	"strings"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// DefaultFlagThreshold is the minimum score for a provider to be listed.
const DefaultFlagThreshold = 30

// FlaggedProvider is one row of the risk-flag table.
type FlaggedProvider struct {
	ProviderName  string  `json:"provider_name" csv:"provider_name"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	WinRate       float64 `json:"win_rate" csv:"win_rate"`
	RiskScore     int     `json:"risk_score" csv:"risk_score"`
	RiskLevel     Level   `json:"risk_level" csv:"risk_level"`
	Indicators    string  `json:"indicators" csv:"indicators"`
	FlagCount     int     `json:"flag_count" csv:"flag_count"`
}

// Flagged scores every provider summary and returns those at or above
// minScore, highest score first.
func (s *Scorer) Flagged(summaries []model.ProviderSummary, datasetSize int64, minScore int) []FlaggedProvider {
	out := make([]FlaggedProvider, 0)
	for _, ps := range summaries {
		a := s.Score(ProfileFromSummary(ps), datasetSize)
		if a.Score < minScore {
			continue
		}
		out = append(out, FlaggedProvider{
			ProviderName:  ps.ProviderName,
			TotalDisputes: ps.TotalDisputes,
			WinRate:       ps.WinRate,
			RiskScore:     a.Score,
			RiskLevel:     a.Level,
			Indicators:    strings.Join(a.Labels(), " | "),
			FlagCount:     len(a.Flags),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		if out[i].TotalDisputes != out[j].TotalDisputes {
			return out[i].TotalDisputes > out[j].TotalDisputes
		}
		return out[i].ProviderName < out[j].ProviderName
	})
	return out
}
