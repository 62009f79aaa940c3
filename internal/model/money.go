package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer cents.
type Money int64

// ParseMoney parses amounts as they appear in the public use files:
// "1234.5", "$1,234.50", " $ 350 ". Empty input is an error.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Money(d.Shift(2).Round(0).IntPart()), nil
}

// Decimal returns the amount in dollars as a decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// Dollars returns the amount in dollars.
func (m Money) Dollars() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a dollar number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts dollar numbers, numeric strings and formatted strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*m = 0
			return nil
		}
	} else {
		s = string(b)
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
