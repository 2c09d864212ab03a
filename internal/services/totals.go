package services

import (
	"github.com/shopspring/decimal"
)

// amountPlaces is the precision amounts are stored with (decimal(20,4)).
const amountPlaces = 4

var hundred = decimal.NewFromInt(100)

// Totals is the server-side computation of a document's amounts.
type Totals struct {
	LineTotals []decimal.Decimal
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Tax        decimal.Decimal
	Rounding   decimal.Decimal
	Total      decimal.Decimal
}

// ComputeTotals calculates subtotal, discount, tax and the rounded total.
// Rates are percentages; tax applies after the discount. Total is rounded to a
// whole unit (half away from zero) and the drift is kept in Rounding.
func ComputeTotals(lines []LineInput, taxRate, discountRate decimal.Decimal) Totals {
	t := Totals{LineTotals: make([]decimal.Decimal, len(lines))}
	for i, l := range lines {
		lt := l.Quantity.Mul(l.UnitPrice).Round(amountPlaces)
		t.LineTotals[i] = lt
		t.Subtotal = t.Subtotal.Add(lt)
	}
	t.Discount = t.Subtotal.Mul(discountRate).Div(hundred).Round(amountPlaces)
	t.Tax = t.Subtotal.Sub(t.Discount).Mul(taxRate).Div(hundred).Round(amountPlaces)
	raw := t.Subtotal.Add(t.Tax).Sub(t.Discount)
	t.Total = raw.Round(0)
	t.Rounding = t.Total.Sub(raw)
	return t
}
