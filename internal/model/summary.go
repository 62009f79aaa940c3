package model

// Overview is the single-row summary_overview table.
type Overview struct {
	TotalDisputes   int64   `json:"total_disputes" csv:"total_disputes"`
	ProviderWinRate float64 `json:"provider_win_rate" csv:"provider_win_rate"`
	BatchRate       float64 `json:"batch_rate" csv:"batch_rate"`
	TotalIDREFees   Money   `json:"total_idre_fees" csv:"total_idre_fees"`
	QuartersCovered int     `json:"quarters_covered" csv:"quarters_covered"`
	LastUpdated     string  `json:"last_updated" csv:"last_updated"`
}

// ProviderSummary is one row of summary_providers. Rates are percentages.
type ProviderSummary struct {
	ProviderName  string  `json:"provider_name" csv:"provider_name"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	WinRate       float64 `json:"win_rate" csv:"win_rate"`
	BatchRate     float64 `json:"batch_rate" csv:"batch_rate"`
	StatesCount   int     `json:"states_count" csv:"states_count"`
	TopSpecialty  string  `json:"top_specialty" csv:"top_specialty"`
	PctOfTotal    float64 `json:"pct_of_total" csv:"pct_of_total"`
}

type StateSummary struct {
	State         string  `json:"state" csv:"state"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	WinRate       float64 `json:"win_rate" csv:"win_rate"`
	PctOfTotal    float64 `json:"pct_of_total" csv:"pct_of_total"`
	TopProvider   string  `json:"top_provider" csv:"top_provider"`
}

type SpecialtySummary struct {
	Specialty     string  `json:"specialty" csv:"specialty"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	WinRate       float64 `json:"win_rate" csv:"win_rate"`
	PctOfTotal    float64 `json:"pct_of_total" csv:"pct_of_total"`
}

// PayerSummary carries the payer's loss rate: the share of its disputes won
// by the provider.
type PayerSummary struct {
	PayerName     string  `json:"payer_name" csv:"payer_name"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	LossRate      float64 `json:"loss_rate" csv:"loss_rate"`
	PctOfTotal    float64 `json:"pct_of_total" csv:"pct_of_total"`
}

type QuarterSummary struct {
	Quarter       string  `json:"quarter" csv:"quarter"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	WinRate       float64 `json:"win_rate" csv:"win_rate"`
	BatchRate     float64 `json:"batch_rate" csv:"batch_rate"`
}

type StateProvider struct {
	State         string  `json:"state" csv:"state"`
	ProviderName  string  `json:"provider_name" csv:"provider_name"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	WinRate       float64 `json:"win_rate" csv:"win_rate"`
}

type StateSpecialty struct {
	State         string  `json:"state" csv:"state"`
	Specialty     string  `json:"specialty" csv:"specialty"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	WinRate       float64 `json:"win_rate" csv:"win_rate"`
}

type StatePayer struct {
	State         string  `json:"state" csv:"state"`
	PayerName     string  `json:"payer_name" csv:"payer_name"`
	TotalDisputes int64   `json:"total_disputes" csv:"total_disputes"`
	LossRate      float64 `json:"loss_rate" csv:"loss_rate"`
}

type StateQuarter struct {
	State         string `json:"state" csv:"state"`
	Quarter       string `json:"quarter" csv:"quarter"`
	TotalDisputes int64  `json:"total_disputes" csv:"total_disputes"`
}
