package risk

// Flag labels.
const (
	LabelExtremeVolume   = "EXTREME VOLUME"
	LabelHighVolume      = "HIGH VOLUME"
	LabelBatchAbuser     = "BATCH ABUSER"
	LabelMultiState      = "MULTI-STATE"
	LabelAbnormalWinRate = "ABNORMAL WIN RATE"
	LabelExtremePricing  = "EXTREME PRICING"
	LabelPayerTargeting  = "PAYER TARGETING"
	LabelVolumeSpike     = "VOLUME SPIKE"
)

// Rules holds the thresholds and point values of the scorer. Percentages are
// on a 0-100 scale.
type Rules struct {
	HighVolume       int64   `yaml:"high_volume"`
	HighVolumePoints int     `yaml:"high_volume_points"`
	ExtremeVolume    int64   `yaml:"extreme_volume"`
	ExtremeVolumePts int     `yaml:"extreme_volume_points"`
	BatchRate        float64 `yaml:"batch_rate"`
	BatchPoints      int     `yaml:"batch_points"`
	States           int     `yaml:"states"`
	StatesPoints     int     `yaml:"states_points"`
	WinRate          float64 `yaml:"win_rate"`
	WinRatePoints    int     `yaml:"win_rate_points"`
	MeanOfferPct     float64 `yaml:"mean_offer_pct"`
	PricingPoints    int     `yaml:"pricing_points"`
	TopPayerShare    float64 `yaml:"top_payer_share"`
	PayerPoints      int     `yaml:"payer_points"`
	QuarterGrowth    float64 `yaml:"quarter_growth"`
	GrowthPoints     int     `yaml:"growth_points"`
}

// DefaultRules returns the stock rule set.
func DefaultRules() Rules {
	return Rules{
		HighVolume:       1000,
		HighVolumePoints: 15,
		ExtremeVolume:    10000,
		ExtremeVolumePts: 30,
		BatchRate:        90,
		BatchPoints:      20,
		States:           10,
		StatesPoints:     15,
		WinRate:          95,
		WinRatePoints:    10,
		MeanOfferPct:     500,
		PricingPoints:    15,
		TopPayerShare:    80,
		PayerPoints:      15,
		QuarterGrowth:    200,
		GrowthPoints:     15,
	}
}
