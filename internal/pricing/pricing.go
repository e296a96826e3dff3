// Package pricing computes the amount due for a stay. Money is kept in
// fixed-point decimals rounded to cents.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidInput = errors.New("nightly rate must be non-negative and nights at least 1")

// DefaultTaxRate is the rate used when none is configured.
var DefaultTaxRate = decimal.RequireFromString("0.12")

// Quote is the price breakdown of a stay.
type Quote struct {
	NightlyRate decimal.Decimal
	Nights      int
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// Price computes subtotal, tax and total. Tax is rounded half away from zero
// to cents and total is the exact sum of the two.
func Price(nightlyRate decimal.Decimal, nights int, taxRate decimal.Decimal) (Quote, error) {
	if nightlyRate.IsNegative() || nights < 1 || taxRate.IsNegative() {
		return Quote{}, ErrInvalidInput
	}

	subtotal := nightlyRate.Mul(decimal.NewFromInt(int64(nights))).Round(2)
	tax := subtotal.Mul(taxRate).Round(2)

	return Quote{
		NightlyRate: nightlyRate,
		Nights:      nights,
		Subtotal:    subtotal,
		Tax:         tax,
		Total:       subtotal.Add(tax),
	}, nil
}

// Calculator prices stays with a fixed tax rate.
type Calculator struct {
	TaxRate decimal.Decimal
}

func NewCalculator(taxRate decimal.Decimal) *Calculator {
	return &Calculator{TaxRate: taxRate}
}

func (c *Calculator) Quote(nightlyRate decimal.Decimal, nights int) (Quote, error) {
	return Price(nightlyRate, nights, c.TaxRate)
}
