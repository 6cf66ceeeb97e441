package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Price is a ruble amount as the backend reports it. The backend is not
// consistent about the wire type, so decoding accepts a number, a numeric
// string or null, and anything else becomes zero.
type Price struct {
	decimal.Decimal
}

// NewPrice builds a Price from a float, mostly for tests and fixtures.
func NewPrice(v float64) Price {
	return Price{decimal.NewFromFloat(v)}
}

// ParsePrice parses s, falling back to zero.
func ParsePrice(s string) Price {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{decimal.Zero}
	}
	return Price{d}
}

// SumPrices returns the sum of the given prices.
func SumPrices(prices ...Price) Price {
	total := decimal.Zero
	for _, p := range prices {
		total = total.Add(p.Decimal)
	}
	return Price{total}
}

// IsPositive reports whether the amount is strictly greater than zero.
func (p Price) IsPositive() bool {
	return p.Decimal.GreaterThan(decimal.Zero)
}

// MarshalJSON encodes the amount as a bare JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

// UnmarshalJSON implements numeric coercion with a zero fallback.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		p.Decimal = decimal.Zero
		return nil
	}

	var s string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			p.Decimal = decimal.Zero
			return nil
		}
	} else {
		s = string(data)
	}

	*p = ParsePrice(s)
	return nil
}

// Display formats the amount the way the storefront shows it, e.g. "490 ₽".
func (p Price) Display() string {
	return p.Decimal.StringFixed(0) + " ₽"
}
