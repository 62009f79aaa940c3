package csvload

import (
	"strings"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

// friendlyHeaders maps the display headers of the public use files
// (lower-cased) to idr_disputes columns.
var friendlyHeaders = map[string]string{
	"dispute number":                         "dispute_number",
	"dli number":                             "dli_number",
	"payment determination outcome":          "outcome",
	"default decision":                       "default_decision",
	"type of dispute":                        "dispute_type",
	"initiating party":                       "initiating_party",
	"provider/facility group name":           "provider_group",
	"provider/facility name":                 "provider_name",
	"provider/facility npi number":           "provider_npi",
	"practice/facility size":                 "facility_size",
	"health plan/issuer name":                "payer_name",
	"health plan type":                       "plan_type",
	"location of service":                    "state",
	"practice/facility specialty or type":    "specialty",
	"type of service code":                   "service_code_type",
	"service code":                           "service_code",
	"place of service code":                  "place_of_service",
	"item or service description":            "service_description",
	"idre compensation":                      "idre_compensation",
	"provider/facility offer as % of qpa":    "provider_offer_pct",
	"health plan/issuer offer as % of qpa":   "payer_offer_pct",
	"prevailing party offer as % of qpa":     "prevailing_offer_pct",
	"offer selected from provider or issuer": "offer_selected",
	"quarter":                                "quarter",
	"reporting quarter":                      "quarter",
}

var knownColumns = func() map[string]bool {
	m := make(map[string]bool)
	for _, c := range model.DisputeColumns() {
		m[c] = true
	}
	return m
}()

// Column resolves a CSV header to an idr_disputes column. Both snake-case
// column names and the friendly display headers are accepted.
func Column(header string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header, "\uFEFF")))
	if knownColumns[h] {
		return h, true
	}
	h = strings.Join(strings.Fields(h), " ")
	c, ok := friendlyHeaders[h]
	return c, ok
}

// Layout is a resolved header row: the column for each field index.
type Layout struct {
	byIndex map[int]string
	Unknown []string
}

// NewLayout resolves every header. Unrecognized headers are ignored and
// reported in Unknown; the first occurrence of a duplicate column wins.
func NewLayout(header []string) Layout {
	l := Layout{byIndex: make(map[int]string)}
	seen := make(map[string]bool)
	for i, h := range header {
		c, ok := Column(h)
		if !ok {
			if strings.TrimSpace(h) != "" {
				l.Unknown = append(l.Unknown, h)
			}
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		l.byIndex[i] = c
	}
	return l
}

// Has reports whether column is present.
func (l Layout) Has(column string) bool {
	for _, c := range l.byIndex {
		if c == column {
			return true
		}
	}
	return false
}

// Fields converts one record into a column-keyed map.
func (l Layout) Fields(record []string) map[string]string {
	out := make(map[string]string, len(l.byIndex))
	for i, c := range l.byIndex {
		if i < len(record) {
			out[c] = record[i]
		}
	}
	return out
}
