package risk

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// Profile is the per-provider input of the scorer. A nil pointer means the
// underlying column was absent and the rule that reads it is skipped.
type Profile struct {
	Provider         string
	TotalDisputes    int64
	BatchRate        *float64
	StatesCount      *int
	WinRate          *float64
	MeanOfferPct     *float64
	TopPayer         string
	TopPayerShare    *float64
	MaxQuarterGrowth *float64
	SpikeQuarter     string
}

// Flag is one triggered rule with a human-readable explanation.
type Flag struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

// Assessment is the scorer output for one provider.
type Assessment struct {
	Provider string `json:"provider"`
	Score    int    `json:"score"`
	Level    Level  `json:"level"`
	Flags    []Flag `json:"flags"`
}

// Labels returns the flag labels in rule order.
func (a Assessment) Labels() []string {
	out := make([]string, len(a.Flags))
	for i, f := range a.Flags {
		out[i] = f.Label
	}
	return out
}

// Has reports whether the assessment carries label.
func (a Assessment) Has(label string) bool {
	for _, f := range a.Flags {
		if f.Label == label {
			return true
		}
	}
	return false
}

// Scorer evaluates the fixed rule list. It has no error conditions.
type Scorer struct {
	rules Rules
	p     *message.Printer
}

// NewScorer creates a Scorer over r taken as-is, so a rule with zero points
// is disabled. The zero Rules selects DefaultRules.
func NewScorer(r Rules) *Scorer {
	if r == (Rules{}) {
		r = DefaultRules()
	}
	return &Scorer{rules: r, p: message.NewPrinter(language.English)}
}

// Rules returns the effective rule set.
func (s *Scorer) Rules() Rules {
	return s.rules
}

// Score evaluates p. datasetSize is the number of records in the dataset the
// profile was drawn from and only feeds the explanations.
func (s *Scorer) Score(p Profile, datasetSize int64) Assessment {
	r := s.rules
	score := 0
	flags := make([]Flag, 0)
	add := func(points int, label, format string, args ...any) {
		if points == 0 {
			return
		}
		score += points
		flags = append(flags, Flag{Label: label, Explanation: s.p.Sprintf(format, args...)})
	}

	share := ""
	if datasetSize > 0 {
		share = s.p.Sprintf(" (%.2f%% of dataset)", float64(p.TotalDisputes)/float64(datasetSize)*100)
	}
	switch {
	case p.TotalDisputes > r.ExtremeVolume:
		add(r.ExtremeVolumePts, LabelExtremeVolume, "%d disputes%s - industrial scale filing", p.TotalDisputes, share)
	case p.TotalDisputes > r.HighVolume:
		add(r.HighVolumePoints, LabelHighVolume, "%d disputes%s - high volume filing", p.TotalDisputes, share)
	}

	if p.BatchRate != nil && *p.BatchRate > r.BatchRate {
		add(r.BatchPoints, LabelBatchAbuser, "%.1f%% of disputes are batched", *p.BatchRate)
	}

	if p.StatesCount != nil && *p.StatesCount > r.States {
		add(r.StatesPoints, LabelMultiState, "Filing in %d different states", *p.StatesCount)
	}

	if p.WinRate != nil && *p.WinRate > r.WinRate {
		add(r.WinRatePoints, LabelAbnormalWinRate, "%.1f%% of determinations favor the provider", *p.WinRate)
	}

	if p.MeanOfferPct != nil && *p.MeanOfferPct > r.MeanOfferPct {
		add(r.PricingPoints, LabelExtremePricing, "Average offer %.0f%% of QPA", *p.MeanOfferPct)
	}

	if p.TopPayerShare != nil && *p.TopPayerShare > r.TopPayerShare {
		add(r.PayerPoints, LabelPayerTargeting, "%.0f%% of disputes against %s", *p.TopPayerShare, p.TopPayer)
	}

	if p.MaxQuarterGrowth != nil && *p.MaxQuarterGrowth > r.QuarterGrowth {
		add(r.GrowthPoints, LabelVolumeSpike, "Disputes increased %.0f%% in one quarter (%s)", *p.MaxQuarterGrowth, p.SpikeQuarter)
	}

	score = clamp(score)
	return Assessment{
		Provider: p.Provider,
		Score:    score,
		Level:    LevelFromScore(score),
		Flags:    flags,
	}
}

func clamp(score int) int {
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// ProfileFromDisputes builds a profile from every dispute row of one provider.
func ProfileFromDisputes(rows []model.Dispute) Profile {
	p := Profile{TotalDisputes: int64(len(rows))}
	if len(rows) == 0 {
		return p
	}
	total := float64(len(rows))

	var (
		typed, batched, decided, wins, offers int
		offerSum                              float64
		states                                = make(map[string]struct{})
		payers                                = make(map[string]int)
		quarters                              = make(map[string]int)
	)
	for i := range rows {
		d := &rows[i]
		if p.Provider == "" {
			p.Provider = d.ProviderName
		}
		if d.DisputeType != "" {
			typed++
			if d.Batched() {
				batched++
			}
		}
		if d.Outcome != "" {
			decided++
			if d.ProviderWon() {
				wins++
			}
		}
		if d.State != "" {
			states[d.State] = struct{}{}
		}
		if d.ProviderOfferPct != nil {
			offers++
			offerSum += *d.ProviderOfferPct
		}
		if d.PayerName != "" {
			payers[d.PayerName]++
		}
		if d.Quarter != "" {
			quarters[d.Quarter]++
		}
	}

	if typed > 0 {
		p.BatchRate = ptr(float64(batched) / total * 100)
	}
	if len(states) > 0 {
		p.StatesCount = ptr(len(states))
	}
	if decided > 0 {
		p.WinRate = ptr(float64(wins) / total * 100)
	}
	if offers > 0 {
		p.MeanOfferPct = ptr(offerSum / float64(offers))
	}
	if name, n := top(payers); n > 0 {
		p.TopPayer = name
		p.TopPayerShare = ptr(float64(n) / total * 100)
	}
	if g, q, ok := maxGrowth(quarters); ok {
		p.MaxQuarterGrowth = ptr(g)
		p.SpikeQuarter = q
	}
	return p
}

// ProfileFromSummary builds a profile from a precomputed provider summary row.
// Pricing, payer and growth rules need row-level data and are skipped.
func ProfileFromSummary(s model.ProviderSummary) Profile {
	return Profile{
		Provider:      s.ProviderName,
		TotalDisputes: s.TotalDisputes,
		BatchRate:     ptr(s.BatchRate),
		StatesCount:   ptr(s.StatesCount),
		WinRate:       ptr(s.WinRate),
	}
}

// QuarterlyGrowth returns the percent change between consecutive quarters
// present in counts, keyed by the later quarter. Quarters sort lexically
// ("2023-Q4" < "2024-Q1").
func QuarterlyGrowth(counts map[string]int) map[string]float64 {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]float64)
	for i := 1; i < len(keys); i++ {
		prev, cur := counts[keys[i-1]], counts[keys[i]]
		if prev > 0 {
			out[keys[i]] = float64(cur-prev) / float64(prev) * 100
		}
	}
	return out
}

func maxGrowth(counts map[string]int) (float64, string, bool) {
	growth := QuarterlyGrowth(counts)
	var (
		best    float64
		quarter string
		found   bool
	)
	for q, g := range growth {
		if !found || g > best || (g == best && q < quarter) {
			best, quarter, found = g, q, true
		}
	}
	return best, quarter, found
}

// top returns the most frequent key, breaking ties by name.
func top(counts map[string]int) (string, int) {
	var (
		name string
		n    int
	)
	for k, v := range counts {
		if v > n || (v == n && strings.Compare(k, name) < 0) {
			name, n = k, v
		}
	}
	return name, n
}

func ptr[T any](v T) *T {
	return &v
}
