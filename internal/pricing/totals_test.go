package pricing

import (
	"testing"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func weight(w float64) *float64 {
	return &w
}

func TestCalculate_SingleItemExample(t *testing.T) {
	totals := Calculate([]LineItem{{UnitPrice: 10.00, Quantity: 2, Weight: weight(1)}})

	assert.InDelta(t, 20.00, totals.Subtotal, 1e-9)
	assert.InDelta(t, 1.60, totals.Tax, 1e-9)
	assert.InDelta(t, 6.49, totals.Shipping, 1e-9)
	assert.InDelta(t, 28.09, totals.Total, 1e-9)
	assert.Equal(t, "$28.09", totals.ToOrderTotals().FormattedTotal)
}

func TestCalculate_Properties(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
	}{
		{"empty", nil},
		{"discounted", []LineItem{{UnitPrice: 100, Quantity: 1, DiscountPercent: 10}}},
		{"mixed", []LineItem{
			{UnitPrice: 19.99, Quantity: 3, Weight: weight(2)},
			{UnitPrice: 5.25, Quantity: 1, DiscountPercent: 50},
			{UnitPrice: 1200, Quantity: 2, DiscountPercent: 15, Weight: weight(10)},
		}},
		{"full discount", []LineItem{{UnitPrice: 42, Quantity: 4, DiscountPercent: 100}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := Calculate(tt.items)

			var subtotal, w float64
			for _, item := range tt.items {
				subtotal += item.UnitPrice * (1 - item.DiscountPercent/100) * float64(item.Quantity)
				w += item.weight()
			}

			assert.InDelta(t, subtotal, totals.Subtotal, 1e-6)
			assert.Equal(t, Round2(subtotal*0.08), totals.Tax)
			assert.Equal(t, Round2(5.99+0.5*w), totals.Shipping)
			assert.Equal(t, totals.Subtotal+totals.Tax+totals.Shipping, totals.Total)
		})
	}
}

func TestCalculate_DefaultWeight(t *testing.T) {
	totals := Calculate([]LineItem{{UnitPrice: 1, Quantity: 1}, {UnitPrice: 1, Quantity: 5}})

	assert.InDelta(t, 1.0, totals.TotalWeight, 1e-9)
	assert.InDelta(t, 6.49, totals.Shipping, 1e-9)
}

func TestCalculate_WeightIsPerLineNotPerUnit(t *testing.T) {
	one := Calculate([]LineItem{{UnitPrice: 10, Quantity: 1, Weight: weight(2)}})
	many := Calculate([]LineItem{{UnitPrice: 10, Quantity: 9, Weight: weight(2)}})

	assert.Equal(t, one.Shipping, many.Shipping)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.6, Round2(1.6000000000000001))
	assert.Equal(t, 0.13, Round2(0.125))
	assert.Equal(t, 6.49, Round2(6.49))
	assert.Equal(t, -0.13, Round2(-0.125))
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{5.5, "$5.50"},
		{28.090000000000003, "$28.09"},
		{999.999, "$1,000.00"},
		{1234567.891, "$1,234,567.89"},
		{-12.3, "-$12.30"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCurrency(tt.in))
	}
}

func TestOrderLines(t *testing.T) {
	items := []domain.OrderItem{
		{ProductID: "p1", Price: 10, Quantity: 2, DiscountPercent: 5, Weight: weight(3)},
		{ProductID: "p2", Price: 4, Quantity: 1},
	}

	lines := OrderLines(items)

	assert.Len(t, lines, 2)
	assert.Equal(t, LineItem{UnitPrice: 10, Quantity: 2, DiscountPercent: 5, Weight: items[0].Weight}, lines[0])
	assert.Nil(t, lines[1].Weight)
}
