package normalize

import (
	"errors"
	"fmt"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// ErrNoProvider rejects a row without a provider name.
var ErrNoProvider = errors.New("missing provider_name")

// ErrNoQuarter rejects a row whose quarter cannot be determined.
var ErrNoQuarter = errors.New("missing quarter")

// ToDispute converts a raw record keyed by column name into a normalized
// Dispute. fallbackQuarter is used when the record has no quarter column,
// typically the quarter taken from the file name.
func ToDispute(fields map[string]string, fallbackQuarter string) (model.Dispute, error) {
	d := model.Dispute{
		DisputeNumber:      Name(fields["dispute_number"]),
		DLINumber:          Name(fields["dli_number"]),
		Outcome:            Name(fields["outcome"]),
		DefaultDecision:    Name(fields["default_decision"]),
		DisputeType:        Name(fields["dispute_type"]),
		InitiatingParty:    Name(fields["initiating_party"]),
		ProviderGroup:      Name(fields["provider_group"]),
		ProviderName:       Name(fields["provider_name"]),
		ProviderNPI:        Code(fields["provider_npi"]),
		FacilitySize:       Name(fields["facility_size"]),
		PayerName:          Name(fields["payer_name"]),
		PlanType:           Name(fields["plan_type"]),
		State:              State(fields["state"]),
		Specialty:          Name(fields["specialty"]),
		ServiceCodeType:    Name(fields["service_code_type"]),
		ServiceCode:        Code(fields["service_code"]),
		PlaceOfService:     Name(fields["place_of_service"]),
		ServiceDescription: Name(fields["service_description"]),
		OfferSelected:      Name(fields["offer_selected"]),
	}
	if d.ProviderName == "" {
		return d, ErrNoProvider
	}

	q, ok := Quarter(fields["quarter"])
	if !ok {
		q, ok = Quarter(fallbackQuarter)
	}
	if !ok {
		return d, ErrNoQuarter
	}
	d.Quarter = q

	var err error
	if d.IDRECompensation, err = Money(fields["idre_compensation"]); err != nil {
		return d, fmt.Errorf("idre_compensation: %w", err)
	}
	if d.ProviderOfferPct, err = Percent(fields["provider_offer_pct"]); err != nil {
		return d, fmt.Errorf("provider_offer_pct: %w", err)
	}
	if d.PayerOfferPct, err = Percent(fields["payer_offer_pct"]); err != nil {
		return d, fmt.Errorf("payer_offer_pct: %w", err)
	}
	if d.PrevailingOfferPct, err = Percent(fields["prevailing_offer_pct"]); err != nil {
		return d, fmt.Errorf("prevailing_offer_pct: %w", err)
	}
	return d, nil
}
