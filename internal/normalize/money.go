package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
)

var percentReplacer = strings.NewReplacer("%", "", ",", "", " ", "")

// Percent parses a percent-of-QPA value ("350", "350.5%", "1,200%").
// Blank and "N/A" cells are nil.
func Percent(s string) (*float64, error) {
	s = percentReplacer.Replace(strings.TrimSpace(s))
	if blank(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse percent %q: %w", s, err)
	}
	return &v, nil
}

// Money parses a dollar amount into cents. Blank and "N/A" cells are nil.
func Money(s string) (*model.Money, error) {
	if blank(strings.TrimSpace(s)) {
		return nil, nil
	}
	m, err := model.ParseMoney(s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func blank(s string) bool {
	switch strings.ToUpper(s) {
	case "", "N/A", "NA", "NULL", "-":
		return true
	}
	return false
}
