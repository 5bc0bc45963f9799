// Package pricing computes order and cart totals.
package pricing

import (
	"strings"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	TaxRate             = 0.08
	BaseShippingCost    = 5.99
	ShippingRatePerUnit = 0.5
)

// LineItem is one priced line of an order or cart.
type LineItem struct {
	UnitPrice       float64
	Quantity        int
	DiscountPercent float64
	// Weight defaults to domain.DefaultItemWeight when nil.
	Weight *float64
}

// Total is the discounted price of the whole line.
func (l LineItem) Total() float64 {
	unit := l.UnitPrice - l.UnitPrice*l.DiscountPercent/100
	return unit * float64(l.Quantity)
}

func (l LineItem) weight() float64 {
	if l.Weight == nil {
		return domain.DefaultItemWeight
	}
	return *l.Weight
}

// Totals holds both raw amounts and their currency formatted form. Total is
// the canonical value; it is not rounded on its own.
type Totals struct {
	Subtotal    float64
	Tax         float64
	Shipping    float64
	Total       float64
	TotalWeight float64
}

// Calculate prices the given lines.
func Calculate(items []LineItem) Totals {
	var subtotal, weight float64
	for _, item := range items {
		subtotal += item.Total()
		weight += item.weight()
	}

	tax := Round2(subtotal * TaxRate)
	shipping := ShippingCost(weight)

	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		Shipping:    shipping,
		Total:       subtotal + tax + shipping,
		TotalWeight: weight,
	}
}

// ShippingCost is the flat surcharge plus the per-weight-unit rate.
func ShippingCost(totalWeight float64) float64 {
	return Round2(BaseShippingCost + totalWeight*ShippingRatePerUnit)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// ToOrderTotals converts totals to the form stored on orders.
func (t Totals) ToOrderTotals() domain.OrderTotals {
	return domain.OrderTotals{
		Subtotal:          t.Subtotal,
		Tax:               t.Tax,
		Shipping:          t.Shipping,
		Total:             t.Total,
		FormattedSubtotal: FormatCurrency(t.Subtotal),
		FormattedTax:      FormatCurrency(t.Tax),
		FormattedShipping: FormatCurrency(t.Shipping),
		FormattedTotal:    FormatCurrency(t.Total),
	}
}

// FormatCurrency renders v as US dollars, e.g. $1,234.50.
func FormatCurrency(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// OrderLines builds pricing lines from order items.
func OrderLines(items []domain.OrderItem) []LineItem {
	lines := make([]LineItem, len(items))
	for i, item := range items {
		lines[i] = LineItem{
			UnitPrice:       item.Price,
			Quantity:        item.Quantity,
			DiscountPercent: item.DiscountPercent,
			Weight:          item.Weight,
		}
	}
	return lines
}
