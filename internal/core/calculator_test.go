package core_test

import (
	"testing"

	"marketplace-orders/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(id, orderID, variantID int64, qty int, price string) core.LineItem {
	return core.LineItem{ID: id, OrderID: orderID, VariantID: variantID, Quantity: qty, Price: dec(price)}
}

func TestLineItemsFor(t *testing.T) {
	li := item(1, 10, 100, 2, "4.50")
	order := &core.Order{ID: 10, LineItems: []core.LineItem{li, item(2, 10, 101, 1, "3.00")}}

	t.Run("line item resolves to itself", func(t *testing.T) {
		set := core.LineItemsFor(core.LineItemTarget(li))
		assert.Equal(t, []core.LineItem{li}, set.LineItems)
		assert.Nil(t, set.Raw)
	})

	t.Run("order resolves to its current line items", func(t *testing.T) {
		set := core.LineItemsFor(core.OrderTarget(order))
		assert.Equal(t, order.LineItems, set.LineItems)

		// The resolved collection is a snapshot, not an alias.
		set.LineItems[0].Quantity = 99
		assert.Equal(t, 2, order.LineItems[0].Quantity)
	})

	t.Run("order without items resolves to an empty set", func(t *testing.T) {
		set := core.LineItemsFor(core.OrderTarget(&core.Order{ID: 11}))
		assert.Empty(t, set.LineItems)
		assert.Nil(t, set.Raw)
	})

	t.Run("anything else passes through untouched", func(t *testing.T) {
		set := core.LineItemsFor(core.OtherTarget("gift card"))
		assert.Equal(t, []any{"gift card"}, set.Raw)
		assert.Empty(t, set.LineItems)
		assert.Equal(t, core.TargetOther, core.OtherTarget(42).Kind())
	})
}

func TestCalculator_Compute(t *testing.T) {
	order := &core.Order{ID: 7, LineItems: []core.LineItem{
		item(1, 7, 100, 2, "5.00"),
		item(2, 7, 101, 3, "2.25"),
	}}

	tests := []struct {
		name   string
		calc   core.Calculator
		target core.Target
		want   string
	}{
		{"per item counts units", core.PerItemCalculator(dec("1.50")), core.OrderTarget(order), "7.50"},
		{"per item on one line", core.PerItemCalculator(dec("1.50")), core.LineItemTarget(order.LineItems[1]), "4.50"},
		{"per order charges once", core.PerOrderCalculator(dec("4.00")), core.OrderTarget(order), "4.00"},
		{"per order on empty order", core.PerOrderCalculator(dec("4.00")), core.OrderTarget(&core.Order{ID: 8}), "0.00"},
		{"flat percent of subtotal", core.FlatPercentCalculator(dec("10")), core.OrderTarget(order), "1.68"},
		{"flat rate ignores items", core.FlatRateCalculator(dec("2.00")), core.OrderTarget(&core.Order{}), "2.00"},
		{"negative amount is a credit", core.FlatRateCalculator(dec("-1.25")), core.OrderTarget(order), "-1.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.calc.Compute(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestCalculator_RoundsHalfToEven(t *testing.T) {
	order := &core.Order{ID: 1, LineItems: []core.LineItem{item(1, 1, 1, 1, "0.25")}}

	// 10 % of 0.25 is 0.025, which rounds to the even cent.
	got, err := core.FlatPercentCalculator(dec("10")).Compute(core.OrderTarget(order))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("0.02")), "got %s", got)

	order.LineItems[0].Price = dec("0.35")
	got, err = core.FlatPercentCalculator(dec("10")).Compute(core.OrderTarget(order))
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("0.04")), "got %s", got)
}

func TestCalculator_Errors(t *testing.T) {
	_, err := core.Calculator{Kind: "weight_based"}.Compute(core.OrderTarget(&core.Order{}))
	assert.ErrorIs(t, err, core.ErrInvalidCalculator)

	_, err = core.Calculator{}.Compute(core.OrderTarget(&core.Order{}))
	assert.ErrorIs(t, err, core.ErrInvalidCalculator)

	_, err = core.FlatPercentCalculator(dec("-5")).Compute(core.OrderTarget(&core.Order{}))
	assert.ErrorIs(t, err, core.ErrInvalidCalculator)

	_, err = core.PerItemCalculator(dec("1")).Compute(core.OtherTarget(struct{}{}))
	assert.ErrorIs(t, err, core.ErrUnsupportedTarget)
}

func TestCalculator_Preferences(t *testing.T) {
	assert.Equal(t, map[string]decimal.Decimal{"preferred_amount": dec("3")},
		core.PerItemCalculator(dec("3")).Preferences())
	assert.Equal(t, map[string]decimal.Decimal{"preferred_percent": dec("12.5")},
		core.FlatPercentCalculator(dec("12.5")).Preferences())
	assert.Empty(t, core.Calculator{Kind: "bogus"}.Preferences())
}
