// Package valueobject holds the money arithmetic shared by pricing, tax,
// shipping and the vendor split. Amounts are shopspring decimals end to end.
package valueobject

import "github.com/shopspring/decimal"

// Currency is an ISO 4217 code
type Currency string

const PKR Currency = "PKR"

// DefaultCurrency prices carts when the platform does not configure one
const DefaultCurrency = PKR

// MoneyPlaces is the number of decimal places stored and sent over the wire
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to two places.
// Only totals are rounded; line and tax arithmetic keeps full precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Percent is rate percent of amount, unrounded
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// NonNegative floors d at zero
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// FormatMoney renders an amount with exactly two decimals
func FormatMoney(d decimal.Decimal) string {
	return RoundMoney(d).StringFixed(MoneyPlaces)
}
