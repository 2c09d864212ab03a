package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	ab := []LineInput{{Quantity: dec("3"), UnitPrice: dec("100")}, {Quantity: dec("1"), UnitPrice: dec("50")}}
	tests := []struct {
		name                                     string
		lines                                    []LineInput
		tax, discount                            string
		subtotal, disc, taxAmt, total, rounding string
	}{
		{"no rates", ab, "0", "0", "350", "0", "0", "350", "0"},
		{"tax", ab, "16", "0", "350", "0", "56", "406", "0"},
		{"tax after discount", []LineInput{{Quantity: dec("1"), UnitPrice: dec("200")}}, "10", "10", "200", "20", "18", "198", "0"},
		{"rounds half away from zero", []LineInput{{Quantity: dec("1"), UnitPrice: dec("10.5")}}, "0", "0", "10.5", "0", "0", "11", "0.5"},
		{"rounds down", []LineInput{{Quantity: dec("2.5"), UnitPrice: dec("3.33")}}, "0", "0", "8.325", "0", "0", "8", "-0.325"},
		{"fractional tax", []LineInput{{Quantity: dec("1"), UnitPrice: dec("99.99")}}, "7.5", "0", "99.99", "0", "7.4993", "107", "-0.4893"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.lines, dec(tt.tax), dec(tt.discount))
			assertDec(t, tt.subtotal, got.Subtotal, "subtotal")
			assertDec(t, tt.disc, got.Discount, "discount")
			assertDec(t, tt.taxAmt, got.Tax, "tax")
			assertDec(t, tt.total, got.Total, "total")
			assertDec(t, tt.rounding, got.Rounding, "rounding")
			assert.Len(t, got.LineTotals, len(tt.lines))
		})
	}
}

func TestComputeTotals_LineTotalsAreRounded(t *testing.T) {
	got := ComputeTotals([]LineInput{{Quantity: dec("0.333"), UnitPrice: dec("0.3333")}}, decimal.Zero, decimal.Zero)
	assertDec(t, "0.111", got.LineTotals[0])
}

func TestComputeTotals_Empty(t *testing.T) {
	got := ComputeTotals(nil, decimal.Zero, decimal.Zero)
	assert.True(t, got.Total.IsZero())
	assert.Empty(t, got.LineTotals)
}
