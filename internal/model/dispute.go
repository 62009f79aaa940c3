package model

// Outcome and dispute-type literals as published in the federal IDR public use files.
const (
	OutcomeProviderWin = "In Favor of Provider/Facility/AA Provider"
	OutcomePayerWin    = "In Favor of Health Plan/Issuer"
	DisputeTypeBatched = "Batched"
	DisputeTypeSingle  = "Single"
)

// Dispute mirrors one line of the idr_disputes table. JSON tags match the
// remote column names so PostgREST and json_agg rows decode the same way.
// Pointer fields are NULL-able in the source data.
type Dispute struct {
	DisputeNumber   string `json:"dispute_number" parquet:"dispute_number" csv:"dispute_number"`
	DLINumber       string `json:"dli_number" parquet:"dli_number" csv:"dli_number"`
	Quarter         string `json:"quarter" parquet:"quarter" csv:"quarter"`
	Outcome         string `json:"outcome" parquet:"outcome" csv:"outcome"`
	DefaultDecision string `json:"default_decision" parquet:"default_decision" csv:"default_decision"`
	DisputeType     string `json:"dispute_type" parquet:"dispute_type" csv:"dispute_type"`
	InitiatingParty string `json:"initiating_party" parquet:"initiating_party" csv:"initiating_party"`

	ProviderGroup string `json:"provider_group" parquet:"provider_group" csv:"provider_group"`
	ProviderName  string `json:"provider_name" parquet:"provider_name" csv:"provider_name"`
	ProviderNPI   string `json:"provider_npi" parquet:"provider_npi" csv:"provider_npi"`
	FacilitySize  string `json:"facility_size" parquet:"facility_size" csv:"facility_size"`

	PayerName string `json:"payer_name" parquet:"payer_name" csv:"payer_name"`
	PlanType  string `json:"plan_type" parquet:"plan_type" csv:"plan_type"`

	State     string `json:"state" parquet:"state" csv:"state"`
	Specialty string `json:"specialty" parquet:"specialty" csv:"specialty"`

	ServiceCodeType    string `json:"service_code_type" parquet:"service_code_type" csv:"service_code_type"`
	ServiceCode        string `json:"service_code" parquet:"service_code" csv:"service_code"`
	PlaceOfService     string `json:"place_of_service" parquet:"place_of_service" csv:"place_of_service"`
	ServiceDescription string `json:"service_description" parquet:"service_description" csv:"service_description"`

	// IDRECompensation is the certified IDR entity fee, in cents.
	IDRECompensation *Money `json:"idre_compensation" parquet:"idre_compensation_cents,optional" csv:"idre_compensation"`

	// Offers are expressed as percent of the QPA (100 = QPA).
	ProviderOfferPct   *float64 `json:"provider_offer_pct" parquet:"provider_offer_pct,optional" csv:"provider_offer_pct"`
	PayerOfferPct      *float64 `json:"payer_offer_pct" parquet:"payer_offer_pct,optional" csv:"payer_offer_pct"`
	PrevailingOfferPct *float64 `json:"prevailing_offer_pct" parquet:"prevailing_offer_pct,optional" csv:"prevailing_offer_pct"`
	OfferSelected      string   `json:"offer_selected" parquet:"offer_selected" csv:"offer_selected"`
}

// ProviderWon reports whether the determination favored the provider.
func (d *Dispute) ProviderWon() bool {
	return d.Outcome == OutcomeProviderWin
}

// Batched reports whether the line was part of a batched filing.
func (d *Dispute) Batched() bool {
	return d.DisputeType == DisputeTypeBatched
}

// DisputeColumns returns the ordered column names for COPY into idr_disputes.
// load_batch_id and file_id are appended by the loader.
func DisputeColumns() []string {
	return []string{
		"dispute_number",
		"dli_number",
		"quarter",
		"outcome",
		"default_decision",
		"dispute_type",
		"initiating_party",
		"provider_group",
		"provider_name",
		"provider_npi",
		"facility_size",
		"payer_name",
		"plan_type",
		"state",
		"specialty",
		"service_code_type",
		"service_code",
		"place_of_service",
		"service_description",
		"idre_compensation",
		"provider_offer_pct",
		"payer_offer_pct",
		"prevailing_offer_pct",
		"offer_selected",
	}
}

// CopyValues returns the row values in the same order as DisputeColumns().
func (d *Dispute) CopyValues() []any {
	var fee any
	if d.IDRECompensation != nil {
		fee = d.IDRECompensation.Dollars()
	}
	return []any{
		d.DisputeNumber,
		d.DLINumber,
		d.Quarter,
		d.Outcome,
		d.DefaultDecision,
		d.DisputeType,
		d.InitiatingParty,
		d.ProviderGroup,
		d.ProviderName,
		d.ProviderNPI,
		d.FacilitySize,
		d.PayerName,
		d.PlanType,
		d.State,
		d.Specialty,
		d.ServiceCodeType,
		d.ServiceCode,
		d.PlaceOfService,
		d.ServiceDescription,
		fee,
		d.ProviderOfferPct,
		d.PayerOfferPct,
		d.PrevailingOfferPct,
		d.OfferSelected,
	}
}
