package response

import "github.com/shopspring/decimal"

// Money renders an amount with exactly two decimal places, e.g. "400.96".
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
