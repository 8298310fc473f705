package document

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Decimal places the items table keeps for line inputs.
const (
	QuantityPlaces  = 3
	UnitPricePlaces = 4
	VATRatePlaces   = 2
)

// RoundInputs rounds quantity, unit price and VAT rate to the precision they
// are stored with, so totals computed afterwards match the stored lines.
func (i *Item) RoundInputs() {
	i.Quantity = i.Quantity.Round(QuantityPlaces)
	i.UnitPrice = i.UnitPrice.Round(UnitPricePlaces)
	i.VATRate = i.VATRate.Round(VATRatePlaces)
}

// Totals are the aggregated amounts of a document.
type Totals struct {
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

// LineAmounts returns the net amount and the VAT of a single line, unrounded.
func LineAmounts(quantity, unitPrice, vatRate decimal.Decimal) (net, vat decimal.Decimal) {
	net = quantity.Mul(unitPrice)
	vat = net.Mul(vatRate).Div(hundred)
	return net, vat
}

// ComputeTotals fills every item's Total and returns the document totals.
// Sums are taken over unrounded line amounts and rounded half-up to two
// decimals once at the end.
func ComputeTotals(items []Item) Totals {
	subtotal := decimal.Zero
	vatAmount := decimal.Zero
	for i := range items {
		net, vat := LineAmounts(items[i].Quantity, items[i].UnitPrice, items[i].VATRate)
		items[i].Total = net.Add(vat).Round(2)
		subtotal = subtotal.Add(net)
		vatAmount = vatAmount.Add(vat)
	}
	return Totals{
		Subtotal:  subtotal.Round(2),
		VATAmount: vatAmount.Round(2),
		Total:     subtotal.Add(vatAmount).Round(2),
	}
}

// Apply copies totals onto the document.
func (t Totals) Apply(doc *Document) {
	doc.Subtotal = t.Subtotal
	doc.VATAmount = t.VATAmount
	doc.Total = t.Total
}

// VATBreakdown groups net and VAT amounts by rate, rounded to two decimals.
func VATBreakdown(items []Item) map[string]Totals {
	out := make(map[string]Totals)
	for _, item := range items {
		net, vat := LineAmounts(item.Quantity, item.UnitPrice, item.VATRate)
		key := item.VATRate.String()
		t := out[key]
		t.Subtotal = t.Subtotal.Add(net)
		t.VATAmount = t.VATAmount.Add(vat)
		out[key] = t
	}
	for key, t := range out {
		t.Total = t.Subtotal.Add(t.VATAmount).Round(2)
		t.Subtotal = t.Subtotal.Round(2)
		t.VATAmount = t.VATAmount.Round(2)
		out[key] = t
	}
	return out
}
