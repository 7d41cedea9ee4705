package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AdjustmentLedger derives an order's adjustment set from its current line items and
// distribution context. It never touches storage; the Recalculator persists the result.
type AdjustmentLedger struct{}

// NewAdjustmentLedger constructs an AdjustmentLedger.
func NewAdjustmentLedger() *AdjustmentLedger {
	return &AdjustmentLedger{}
}

// Recalculate replaces the order's non-canceled adjustments with freshly computed ones
// and refreshes ItemTotal and AdjustmentTotal.
//
// Every amount is computed before anything on the order is changed: if any calculator
// or tax rate is malformed the order is left exactly as it was.
func (l *AdjustmentLedger) Recalculate(order *Order, cfg TaxConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	prev := make(map[adjustmentKey]Adjustment, len(order.Adjustments))
	next := make([]Adjustment, 0, len(order.Adjustments))
	for _, a := range order.Adjustments {
		if a.Canceled {
			next = append(next, a)
			continue
		}
		prev[a.key()] = a
	}

	chargesTax := order.Distributor != nil && order.Distributor.ChargesSalesTax
	// Shipping VAT also applies while the order has no distributor yet.
	shippingTaxed := cfg.ShipmentIncVAT && (order.Distributor == nil || order.Distributor.ChargesSalesTax)

	// 1. Shipment
	if s := order.Shipment; s != nil {
		amount, err := s.Method.Calculator.Compute(OrderTarget(order))
		if err != nil {
			return fmt.Errorf("shipping method %q: %w", s.Method.Name, err)
		}
		tax, err := DecomposeTax(amount, cfg.ShippingTaxRate, shippingTaxed)
		if err != nil {
			return fmt.Errorf("shipping method %q: %w", s.Method.Name, err)
		}
		next = append(next, carryOver(prev, Adjustment{
			OrderID:     order.ID,
			Source:      SourceShipment,
			SourceID:    s.ID,
			Label:       "Shipping: " + s.Method.Name,
			Amount:      amount,
			IncludedTax: tax.IncludedTax,
		}))
	}

	// 2. Payment
	if p := order.Payment; p != nil {
		amount, err := p.Method.Calculator.Compute(OrderTarget(order))
		if err != nil {
			return fmt.Errorf("payment method %q: %w", p.Method.Name, err)
		}
		next = append(next, carryOver(prev, Adjustment{
			OrderID:     order.ID,
			Source:      SourcePayment,
			SourceID:    p.ID,
			Label:       "Payment fee: " + p.Method.Name,
			Amount:      amount,
			IncludedTax: decimal.Zero,
		}))
	}

	// 3. Enterprise fees from the order cycle's exchanges and coordinator
	if oc := order.OrderCycle; oc != nil {
		var distributorID int64
		if order.DistributorID != nil {
			distributorID = *order.DistributorID
		}

		for _, ex := range oc.Exchanges {
			if !ex.AppliesTo(distributorID) {
				continue
			}
			matching := matchingLineItems(order.LineItems, ex)
			exchangeID := ex.ID
			for _, fee := range ex.EnterpriseFees {
				adj, err := feeAdjustment(order, fee, matching, chargesTax)
				if err != nil {
					return fmt.Errorf("exchange %d: %w", ex.ID, err)
				}
				adj.ExchangeID = &exchangeID
				next = append(next, carryOver(prev, adj))
			}
		}

		for _, fee := range oc.CoordinatorFees {
			adj, err := feeAdjustment(order, fee, order.LineItems, chargesTax)
			if err != nil {
				return fmt.Errorf("order cycle %d coordinator: %w", oc.ID, err)
			}
			next = append(next, carryOver(prev, adj))
		}
	}

	order.Adjustments = next
	order.ItemTotal = itemTotal(order.LineItems)
	order.AdjustmentTotal = l.Total(order)
	return nil
}

// Total sums the amounts of all non-canceled adjustments.
func (l *AdjustmentLedger) Total(order *Order) decimal.Decimal {
	total := decimal.Zero
	for _, a := range order.Adjustments {
		if a.Canceled {
			continue
		}
		total = total.Add(a.Amount)
	}
	return total
}

// feeAdjustment prices one enterprise fee against the given line items.
// An empty item set yields an adjustment of exactly zero rather than a stale amount.
func feeAdjustment(order *Order, fee EnterpriseFee, items []LineItem, chargesTax bool) (Adjustment, error) {
	if err := fee.Calculator.Validate(); err != nil {
		return Adjustment{}, fmt.Errorf("fee %q: %w", fee.Name, err)
	}

	amount := decimal.Zero
	if len(items) > 0 {
		view := *order
		view.LineItems = items
		var err error
		amount, err = fee.Calculator.Compute(OrderTarget(&view))
		if err != nil {
			return Adjustment{}, fmt.Errorf("fee %q: %w", fee.Name, err)
		}
	}

	tax, err := DecomposeTax(amount, fee.TaxRate, fee.InclusiveTax && chargesTax)
	if err != nil {
		return Adjustment{}, fmt.Errorf("fee %q: %w", fee.Name, err)
	}

	return Adjustment{
		OrderID:     order.ID,
		Source:      SourceEnterpriseFee,
		SourceID:    fee.ID,
		Label:       fmt.Sprintf("%s fee (%s)", fee.Name, fee.FeeType),
		Amount:      amount,
		IncludedTax: tax.IncludedTax,
	}, nil
}

// carryOver keeps the identity of an existing adjustment for the same source.
func carryOver(prev map[adjustmentKey]Adjustment, a Adjustment) Adjustment {
	if old, ok := prev[a.key()]; ok {
		a.ID = old.ID
	}
	return a
}

func matchingLineItems(items []LineItem, ex Exchange) []LineItem {
	var out []LineItem
	for _, li := range items {
		if ex.Carries(li.VariantID) {
			out = append(out, li)
		}
	}
	return out
}

func itemTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.Amount())
	}
	return RoundMoney(total)
}
