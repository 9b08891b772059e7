package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney_RoundsHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"2.675", "2.68"},
		{"0.125", "0.13"},
		{"1095", "1095.00"},
		{"-1.005", "-1.01"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestPercent(t *testing.T) {
	got := Percent(decimal.NewFromInt(900), decimal.NewFromInt(5))
	assert.True(t, got.Equal(decimal.NewFromInt(45)))

	got = Percent(decimal.NewFromInt(333), decimal.RequireFromString("17.5"))
	assert.True(t, got.Equal(decimal.RequireFromString("58.275")), "percent stays unrounded")
	assert.Equal(t, "58.28", FormatMoney(got))
}

func TestNonNegative(t *testing.T) {
	assert.True(t, NonNegative(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, NonNegative(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
}

func TestDimensions_Volume(t *testing.T) {
	d := Dimensions{Length: decimal.NewFromInt(50), Width: decimal.NewFromInt(40), Height: decimal.NewFromInt(30)}
	assert.True(t, d.Volume().Equal(decimal.NewFromInt(60000)))
	assert.True(t, d.IsSet())

	assert.True(t, Dimensions{Length: decimal.NewFromInt(10)}.Volume().IsZero())
	assert.False(t, Dimensions{}.IsSet())
}
