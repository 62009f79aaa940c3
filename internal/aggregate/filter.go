package aggregate

import "github.com/NicholasBallas/idr-intelligence-platform/internal/model"

// View restricts rows to sets of quarters, states, specialties and payers.
// An empty set places no restriction on that dimension.
type View struct {
	Quarters    []string `json:"quarters,omitempty"`
	States      []string `json:"states,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	Payers      []string `json:"payers,omitempty"`
}

// Empty reports whether the view keeps every row.
func (v View) Empty() bool {
	return len(v.Quarters) == 0 && len(v.States) == 0 && len(v.Specialties) == 0 && len(v.Payers) == 0
}

// Apply returns the rows that fall inside the view. The input is not modified.
func (v View) Apply(rows []model.Dispute) []model.Dispute {
	if v.Empty() {
		return rows
	}
	quarters, states, specialties, payers := set(v.Quarters), set(v.States), set(v.Specialties), set(v.Payers)
	out := make([]model.Dispute, 0, len(rows))
	for i := range rows {
		d := &rows[i]
		if in(quarters, d.Quarter) && in(states, d.State) && in(specialties, d.Specialty) && in(payers, d.PayerName) {
			out = append(out, *d)
		}
	}
	return out
}

func set(vals []string) map[string]struct{} {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func in(m map[string]struct{}, v string) bool {
	if m == nil {
		return true
	}
	_, ok := m[v]
	return ok
}
