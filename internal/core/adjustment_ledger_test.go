package core_test

import (
	"testing"

	"marketplace-orders/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }

var vatConfig = core.TaxConfig{ShipmentIncVAT: true, ShippingTaxRate: decimal.RequireFromString("0.25")}

// shippedOrder has two single-unit items, per-item shipping of 3 and a per-item payment fee of 5.
func shippedOrder() *core.Order {
	return &core.Order{
		ID:            1,
		UserID:        42,
		DistributorID: int64p(5),
		OrderCycleID:  int64p(9),
		State:         core.OrderStateComplete,
		LineItems: []core.LineItem{
			item(11, 1, 100, 1, "10.00"),
			item(12, 1, 101, 1, "4.00"),
		},
		Distributor: &core.Enterprise{ID: 5, Name: "Hub", ChargesSalesTax: true, AllowOrderChanges: true},
		OrderCycle:  &core.OrderCycle{ID: 9, CoordinatorID: 5},
		Shipment: &core.Shipment{ID: 21, Method: core.ShippingMethod{
			ID: 1, Name: "Delivery", Calculator: core.PerItemCalculator(dec("3")),
		}},
		Payment: &core.Payment{ID: 31, Method: core.PaymentMethod{
			ID: 1, Name: "Card", Calculator: core.PerItemCalculator(dec("5")),
		}},
	}
}

func TestAdjustmentLedger_ShipmentAndPayment(t *testing.T) {
	ledger := core.NewAdjustmentLedger()
	order := shippedOrder()

	require.NoError(t, ledger.Recalculate(order, vatConfig))

	ship := order.ShipmentAdjustment()
	require.NotNil(t, ship)
	assert.Equal(t, "6.00", ship.Amount.StringFixed(2))
	assert.Equal(t, "1.20", ship.IncludedTax.StringFixed(2))

	pay := order.PaymentAdjustment()
	require.NotNil(t, pay)
	assert.Equal(t, "10.00", pay.Amount.StringFixed(2))
	assert.True(t, pay.IncludedTax.IsZero())

	assert.Equal(t, "16.00", order.AdjustmentTotal.StringFixed(2))
	assert.Equal(t, "14.00", order.ItemTotal.StringFixed(2))

	// After one item goes away everything shrinks accordingly.
	require.True(t, removeLineItem(order, 12))
	require.NoError(t, ledger.Recalculate(order, vatConfig))

	ship = order.ShipmentAdjustment()
	assert.Equal(t, "3.00", ship.Amount.StringFixed(2))
	assert.Equal(t, "0.60", ship.IncludedTax.StringFixed(2))
	assert.Equal(t, "5.00", order.PaymentAdjustment().Amount.StringFixed(2))
	assert.Equal(t, "8.00", order.AdjustmentTotal.StringFixed(2))
	assert.Equal(t, "10.00", order.ItemTotal.StringFixed(2))
}

func TestAdjustmentLedger_ShipmentTaxNeedsSalesTaxDistributor(t *testing.T) {
	ledger := core.NewAdjustmentLedger()

	order := shippedOrder()
	order.Distributor.ChargesSalesTax = false
	require.NoError(t, ledger.Recalculate(order, vatConfig))
	assert.True(t, order.ShipmentAdjustment().IncludedTax.IsZero())

	order = shippedOrder()
	require.NoError(t, ledger.Recalculate(order, core.TaxConfig{ShippingTaxRate: dec("0.25")}))
	assert.True(t, order.ShipmentAdjustment().IncludedTax.IsZero())
}

func TestAdjustmentLedger_ShipmentTaxedWithoutDistributor(t *testing.T) {
	order := shippedOrder()
	order.Distributor = nil
	order.DistributorID = nil

	require.NoError(t, core.NewAdjustmentLedger().Recalculate(order, vatConfig))
	assert.Equal(t, "6.00", order.ShipmentAdjustment().Amount.StringFixed(2))
	assert.Equal(t, "1.20", order.ShipmentAdjustment().IncludedTax.StringFixed(2))
}

func TestAdjustmentLedger_ExchangeFees(t *testing.T) {
	ledger := core.NewAdjustmentLedger()
	packing := core.EnterpriseFee{
		ID: 70, EnterpriseID: 3, Name: "Packing", FeeType: core.FeeTypePacking,
		Calculator: core.PerItemCalculator(dec("2.50")),
	}

	order := &core.Order{
		ID:            2,
		UserID:        42,
		DistributorID: int64p(5),
		OrderCycleID:  int64p(9),
		State:         core.OrderStateCart,
		LineItems:     []core.LineItem{item(13, 2, 200, 1, "8.00"), item(14, 2, 300, 2, "1.00")},
		Distributor:   &core.Enterprise{ID: 5, AllowOrderChanges: true},
		OrderCycle: &core.OrderCycle{ID: 9, Exchanges: []core.Exchange{
			{ID: 1, SenderID: 3, ReceiverID: 5, Incoming: true, VariantIDs: []int64{200}, EnterpriseFees: []core.EnterpriseFee{packing}},
		}},
	}

	require.NoError(t, ledger.Recalculate(order, vatConfig))
	require.Len(t, order.Adjustments, 1)
	fee := order.Adjustments[0]
	assert.Equal(t, core.SourceEnterpriseFee, fee.Source)
	assert.Equal(t, int64(70), fee.SourceID)
	require.NotNil(t, fee.ExchangeID)
	assert.Equal(t, int64(1), *fee.ExchangeID)
	assert.Equal(t, "2.50", fee.Amount.StringFixed(2))
	assert.Equal(t, "2.50", order.AdjustmentTotal.StringFixed(2))

	// The only item carried by the exchange is removed: the fee drops to zero.
	require.True(t, removeLineItem(order, 13))
	require.NoError(t, ledger.Recalculate(order, vatConfig))
	require.Len(t, order.Adjustments, 1)
	assert.True(t, order.Adjustments[0].Amount.IsZero())
	assert.True(t, order.AdjustmentTotal.IsZero())
}

func TestAdjustmentLedger_OutgoingExchangeOnlyForReceiver(t *testing.T) {
	ledger := core.NewAdjustmentLedger()
	transport := core.EnterpriseFee{ID: 80, Name: "Transport", FeeType: core.FeeTypeTransport,
		Calculator: core.FlatRateCalculator(dec("4"))}
	admin := core.EnterpriseFee{ID: 81, Name: "Admin", FeeType: core.FeeTypeAdmin,
		Calculator: core.FlatPercentCalculator(dec("10"))}

	order := &core.Order{
		ID:            3,
		DistributorID: int64p(5),
		LineItems:     []core.LineItem{item(15, 3, 200, 1, "20.00")},
		Distributor:   &core.Enterprise{ID: 5},
		OrderCycle: &core.OrderCycle{
			ID: 9,
			Exchanges: []core.Exchange{
				{ID: 2, ReceiverID: 5, VariantIDs: []int64{200}, EnterpriseFees: []core.EnterpriseFee{transport}},
				{ID: 3, ReceiverID: 6, VariantIDs: []int64{200}, EnterpriseFees: []core.EnterpriseFee{transport}},
			},
			CoordinatorFees: []core.EnterpriseFee{admin},
		},
	}

	require.NoError(t, ledger.Recalculate(order, core.TaxConfig{}))
	require.Len(t, order.Adjustments, 2)
	assert.Equal(t, int64(2), *order.Adjustments[0].ExchangeID)
	assert.Equal(t, "4.00", order.Adjustments[0].Amount.StringFixed(2))
	assert.Nil(t, order.Adjustments[1].ExchangeID)
	assert.Equal(t, "2.00", order.Adjustments[1].Amount.StringFixed(2))
	assert.Equal(t, "6.00", order.AdjustmentTotal.StringFixed(2))
}

func TestAdjustmentLedger_InclusiveFeeTax(t *testing.T) {
	ledger := core.NewAdjustmentLedger()
	fee := core.EnterpriseFee{ID: 90, Name: "Sales", FeeType: core.FeeTypeSales,
		Calculator: core.FlatRateCalculator(dec("11")), TaxRate: dec("0.1"), InclusiveTax: true}

	order := &core.Order{
		ID:          4,
		LineItems:   []core.LineItem{item(16, 4, 1, 1, "1")},
		Distributor: &core.Enterprise{ID: 5, ChargesSalesTax: true},
		OrderCycle:  &core.OrderCycle{ID: 9, CoordinatorFees: []core.EnterpriseFee{fee}},
	}

	require.NoError(t, ledger.Recalculate(order, core.TaxConfig{}))
	require.Len(t, order.Adjustments, 1)
	assert.Equal(t, "1.00", order.Adjustments[0].IncludedTax.StringFixed(2))
}

func TestAdjustmentLedger_KeepsIdentityAndCanceled(t *testing.T) {
	ledger := core.NewAdjustmentLedger()
	order := shippedOrder()
	order.Adjustments = []core.Adjustment{
		{ID: 501, OrderID: 1, Source: core.SourceShipment, SourceID: 21, Amount: dec("99")},
		{ID: 502, OrderID: 1, Source: core.SourcePayment, SourceID: 31, Amount: dec("1"), Canceled: true},
		{ID: 503, OrderID: 1, Source: core.SourceEnterpriseFee, SourceID: 999, Amount: dec("7")},
	}

	require.NoError(t, ledger.Recalculate(order, vatConfig))

	var ids []int64
	for _, a := range order.Adjustments {
		ids = append(ids, a.ID)
	}
	// 503 belongs to a fee the order no longer has; the new payment adjustment has no id yet.
	assert.ElementsMatch(t, []int64{501, 502, 0}, ids)
	assert.Equal(t, "6.00", order.ShipmentAdjustment().Amount.StringFixed(2))
	// The canceled adjustment is left as it was and excluded from the total.
	assert.Equal(t, "16.00", order.AdjustmentTotal.StringFixed(2))
	assert.True(t, ledger.Total(order).Equal(order.AdjustmentTotal))
}

func TestAdjustmentLedger_FailureLeavesOrderUntouched(t *testing.T) {
	ledger := core.NewAdjustmentLedger()
	order := shippedOrder()
	require.NoError(t, ledger.Recalculate(order, vatConfig))
	before := append([]core.Adjustment(nil), order.Adjustments...)
	total := order.AdjustmentTotal

	order.OrderCycle.CoordinatorFees = []core.EnterpriseFee{{ID: 1, Name: "Broken", Calculator: core.Calculator{Kind: "mystery"}}}
	removeLineItem(order, 12)

	err := ledger.Recalculate(order, vatConfig)
	assert.ErrorIs(t, err, core.ErrInvalidCalculator)
	assert.Equal(t, before, order.Adjustments)
	assert.True(t, total.Equal(order.AdjustmentTotal))

	err = ledger.Recalculate(shippedOrder(), core.TaxConfig{ShipmentIncVAT: true, ShippingTaxRate: dec("-1")})
	assert.ErrorIs(t, err, core.ErrInvalidTaxRate)
}

func TestAdjustmentLedger_TotalMatchesSum(t *testing.T) {
	ledger := core.NewAdjustmentLedger()
	for n := 0; n <= 3; n++ {
		order := shippedOrder()
		order.LineItems = nil
		for i := 0; i < n; i++ {
			order.LineItems = append(order.LineItems, item(int64(100+i), 1, int64(i), i+1, "1.11"))
		}
		require.NoError(t, ledger.Recalculate(order, vatConfig))

		sum := decimal.Zero
		for _, a := range order.Adjustments {
			if !a.Canceled {
				sum = sum.Add(a.Amount)
			}
		}
		assert.True(t, sum.Equal(order.AdjustmentTotal), "n=%d sum=%s total=%s", n, sum, order.AdjustmentTotal)
	}
}
