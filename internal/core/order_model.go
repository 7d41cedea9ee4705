package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState is the checkout state of an order. It only moves forward: cart → complete.
type OrderState string

const (
	OrderStateCart     OrderState = "cart"
	OrderStateComplete OrderState = "complete"
)

// Order is a customer order placed with one distributor during one order cycle.
// DistributorID and OrderCycleID stay nil until the shopper picks a shop and cycle.
type Order struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	UserID          int64           `json:"user_id"` // owner; 0 means a guest order
	DistributorID   *int64          `json:"distributor_id,omitempty"`
	OrderCycleID    *int64          `json:"order_cycle_id,omitempty"`
	State           OrderState      `json:"state"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	ItemTotal       decimal.Decimal `json:"item_total"`
	AdjustmentTotal decimal.Decimal `json:"adjustment_total"`
	LineItems       []LineItem      `json:"line_items"`
	Adjustments     []Adjustment    `json:"adjustments"`

	// Distribution context, resolved by the store when the order is loaded.
	Distributor *Enterprise `json:"-"`
	OrderCycle  *OrderCycle `json:"-"`
	Shipment    *Shipment   `json:"-"`
	Payment     *Payment    `json:"-"`
}

// Completed reports whether checkout has finished.
func (o *Order) Completed() bool {
	return o.State == OrderStateComplete
}

// OwnedBy reports whether userID placed the order. Guest orders have no owner.
func (o *Order) OwnedBy(userID int64) bool {
	return o.UserID != 0 && o.UserID == userID
}

// HasLineItem reports whether the order currently contains the given line item.
func (o *Order) HasLineItem(lineItemID int64) bool {
	for _, li := range o.LineItems {
		if li.ID == lineItemID {
			return true
		}
	}
	return false
}

// Adjustment returns the first non-canceled adjustment for the given source, or nil.
func (o *Order) Adjustment(source AdjustmentSource, sourceID int64) *Adjustment {
	for i := range o.Adjustments {
		a := &o.Adjustments[i]
		if a.Source == source && a.SourceID == sourceID && !a.Canceled {
			return a
		}
	}
	return nil
}

// ShipmentAdjustment returns the adjustment charged for the order's shipment, or nil.
func (o *Order) ShipmentAdjustment() *Adjustment {
	if o.Shipment == nil {
		return nil
	}
	return o.Adjustment(SourceShipment, o.Shipment.ID)
}

// PaymentAdjustment returns the adjustment charged for the order's payment, or nil.
func (o *Order) PaymentAdjustment() *Adjustment {
	if o.Payment == nil {
		return nil
	}
	return o.Adjustment(SourcePayment, o.Payment.ID)
}

// LineItem is one variant and quantity within an order.
type LineItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	VariantID int64           `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Amount is the line's undiscounted value: price × quantity.
func (li LineItem) Amount() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Shipment is the single shipment of an order and the method it ships with.
type Shipment struct {
	ID     int64
	Method ShippingMethod
}

// ShippingMethod carries the calculator used to charge for shipping.
type ShippingMethod struct {
	ID         int64
	Name       string
	Calculator Calculator
}

// Payment is the payment of an order and the method it is paid with.
type Payment struct {
	ID     int64
	Method PaymentMethod
}

// PaymentMethod carries the calculator used to charge a payment fee.
type PaymentMethod struct {
	ID         int64
	Name       string
	Calculator Calculator
}
