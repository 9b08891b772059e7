package valueobject

import "github.com/shopspring/decimal"

// Dimensions is a parcel size in centimetres.
type Dimensions struct {
	Length decimal.Decimal `json:"length"`
	Width  decimal.Decimal `json:"width"`
	Height decimal.Decimal `json:"height"`
}

// Volume returns L x W x H in cubic centimetres. Missing sides yield zero.
func (d Dimensions) Volume() decimal.Decimal {
	if d.Length.IsZero() || d.Width.IsZero() || d.Height.IsZero() {
		return decimal.Zero
	}
	return d.Length.Mul(d.Width).Mul(d.Height)
}

// IsSet reports whether all three sides are positive.
func (d Dimensions) IsSet() bool {
	return d.Length.IsPositive() && d.Width.IsPositive() && d.Height.IsPositive()
}
