package aggregate

import (
	"errors"
	"sort"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
)

// ErrNoDisputes is returned when a provider has no rows to investigate.
var ErrNoDisputes = errors.New("no disputes found for provider")

// Investigation is the deep-dive view of one provider.
type Investigation struct {
	Provider       string          `json:"provider"`
	TotalDisputes  int64           `json:"total_disputes"`
	WinRate        *float64        `json:"win_rate"`
	QuartersActive int             `json:"quarters_active"`
	FirstQuarter   string          `json:"first_quarter"`
	LastQuarter    string          `json:"last_quarter"`
	Risk           risk.Assessment `json:"risk"`
	Timeline       []Count         `json:"timeline"`
	Financials     Financials      `json:"financials"`
	Geography      []Count         `json:"geography"`
	FilingTypes    []Count         `json:"filing_types"`
	TopPayers      []Count         `json:"top_payers"`
}

// Investigation list sizes.
const (
	GeographyLimit = 15
	TopPayersLimit = 10
)

// Investigate builds the deep dive for provider from every one of its rows.
// datasetSize is the number of disputes in the whole dataset.
func Investigate(s *risk.Scorer, provider string, rows []model.Dispute, datasetSize int64) (Investigation, error) {
	if len(rows) == 0 {
		return Investigation{}, ErrNoDisputes
	}

	profile := risk.ProfileFromDisputes(rows)
	profile.Provider = provider

	inv := Investigation{
		Provider:      provider,
		TotalDisputes: int64(len(rows)),
		WinRate:       profile.WinRate,
		Risk:          s.Score(profile, datasetSize),
		Timeline:      TopCounts(rows, byQuarter, 0),
		Financials:    Financial(rows),
		Geography:     TopCounts(rows, byState, GeographyLimit),
		FilingTypes:   TopCounts(rows, byType, 0),
		TopPayers:     TopCounts(rows, byPayer, TopPayersLimit),
	}

	sort.Slice(inv.Timeline, func(i, j int) bool { return inv.Timeline[i].Name < inv.Timeline[j].Name })
	inv.QuartersActive = len(inv.Timeline)
	if n := len(inv.Timeline); n > 0 {
		inv.FirstQuarter = inv.Timeline[0].Name
		inv.LastQuarter = inv.Timeline[n-1].Name
	}
	return inv, nil
}
