package model

// Table names shared by the remote backend and the local store.
const (
	TableDisputes         = "idr_disputes"
	TableOverview         = "summary_overview"
	TableProviders        = "summary_providers"
	TableStates           = "summary_states"
	TableSpecialties      = "summary_specialties"
	TablePayers           = "summary_payers"
	TableQuarterly        = "summary_quarterly"
	TableStateProviders   = "state_providers"
	TableStateSpecialties = "state_specialties"
	TableStatePayers      = "state_payers"
	TableStateQuarterly   = "state_quarterly"
	TableFiles            = "idr_files"
)

// ExportTables lists the tables that can be exported by name.
var ExportTables = []string{
	TableDisputes,
	TableOverview,
	TableProviders,
	TableStates,
	TableSpecialties,
	TablePayers,
	TableQuarterly,
	TableStateProviders,
	TableStateSpecialties,
	TableStatePayers,
	TableStateQuarterly,
}

// TableKeys lists the columns that identify a row of each paged table. Pages
// are ordered by them so consecutive windows neither overlap nor skip.
var TableKeys = map[string][]string{
	TableDisputes:         {"dispute_number"},
	TableProviders:        {"provider_name"},
	TableStates:           {"state"},
	TableSpecialties:      {"specialty"},
	TablePayers:           {"payer_name"},
	TableQuarterly:        {"quarter"},
	TableStateProviders:   {"state", "provider_name"},
	TableStateSpecialties: {"state", "specialty"},
	TableStatePayers:      {"state", "payer_name"},
	TableStateQuarterly:   {"state", "quarter"},
}
