package aggregate

import (
	"math"
	"sort"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// OfferStats describes a distribution of offers as percent of QPA.
type OfferStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P10    float64 `json:"p10"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
}

// FeeStats describes IDR entity fees.
type FeeStats struct {
	Count  int         `json:"count"`
	Total  model.Money `json:"total"`
	Mean   model.Money `json:"mean"`
	Median model.Money `json:"median"`
}

// Financials groups the offer and fee statistics of a set of disputes. A nil
// member means no row carried that column.
type Financials struct {
	ProviderOffers *OfferStats `json:"provider_offers"`
	PayerOffers    *OfferStats `json:"payer_offers"`
	Fees           *FeeStats   `json:"fees"`
}

// Financial computes offer and fee statistics over rows, ignoring NULLs.
func Financial(rows []model.Dispute) Financials {
	var prov, payer []float64
	var fees []model.Money
	for i := range rows {
		d := &rows[i]
		if d.ProviderOfferPct != nil {
			prov = append(prov, *d.ProviderOfferPct)
		}
		if d.PayerOfferPct != nil {
			payer = append(payer, *d.PayerOfferPct)
		}
		if d.IDRECompensation != nil {
			fees = append(fees, *d.IDRECompensation)
		}
	}
	return Financials{
		ProviderOffers: Offers(prov),
		PayerOffers:    Offers(payer),
		Fees:           Fees(fees),
	}
}

// Offers returns the distribution of vals, or nil when vals is empty.
func Offers(vals []float64) *OfferStats {
	if len(vals) == 0 {
		return nil
	}
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	var sum float64
	for _, v := range s {
		sum += v
	}
	return &OfferStats{
		Count:  len(s),
		Mean:   sum / float64(len(s)),
		Median: Quantile(s, 0.5),
		P10:    Quantile(s, 0.10),
		P25:    Quantile(s, 0.25),
		P75:    Quantile(s, 0.75),
		P90:    Quantile(s, 0.90),
	}
}

// Fees returns total, mean and median of fees, or nil when fees is empty.
func Fees(fees []model.Money) *FeeStats {
	if len(fees) == 0 {
		return nil
	}
	vals := make([]float64, len(fees))
	var total model.Money
	for i, f := range fees {
		total += f
		vals[i] = float64(f)
	}
	sort.Float64s(vals)
	return &FeeStats{
		Count:  len(fees),
		Total:  total,
		Mean:   model.Money(math.Round(float64(total) / float64(len(fees)))),
		Median: model.Money(math.Round(Quantile(vals, 0.5))),
	}
}

// Quantile returns the q-th quantile of sorted using linear interpolation
// between closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
