package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Enterprise is a marketplace participant: a producer, a hub or a shop.
// When it sells to shoppers it acts as the order's distributor.
type Enterprise struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	ChargesSalesTax   bool   `json:"charges_sales_tax"`
	AllowOrderChanges bool   `json:"allow_order_changes"` // lets shoppers edit completed orders
}

// OrderCycle is a time-boxed trading window linking distributors, producers and exchanges.
type OrderCycle struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	CoordinatorID   int64           `json:"coordinator_id"`
	OpensAt         *time.Time      `json:"opens_at,omitempty"`
	ClosesAt        *time.Time      `json:"closes_at,omitempty"`
	Exchanges       []Exchange      `json:"exchanges"`
	CoordinatorFees []EnterpriseFee `json:"coordinator_fees"`
}

// Exchange is a product flow from sender to receiver within an order cycle.
// Incoming exchanges bring products from a supplier to the coordinator; outgoing
// exchanges carry them from the coordinator to a distributor.
type Exchange struct {
	ID             int64           `json:"id"`
	OrderCycleID   int64           `json:"order_cycle_id"`
	SenderID       int64           `json:"sender_id"`
	ReceiverID     int64           `json:"receiver_id"`
	Incoming       bool            `json:"incoming"`
	VariantIDs     []int64         `json:"variant_ids"`
	EnterpriseFees []EnterpriseFee `json:"enterprise_fees"`
}

// Carries reports whether the exchange moves the given variant.
func (e Exchange) Carries(variantID int64) bool {
	for _, id := range e.VariantIDs {
		if id == variantID {
			return true
		}
	}
	return false
}

// AppliesTo reports whether fees on this exchange are charged to orders of distributorID.
// Incoming fees travel with the product to every distributor; outgoing fees only to the receiver.
func (e Exchange) AppliesTo(distributorID int64) bool {
	return e.Incoming || e.ReceiverID == distributorID
}

// FeeType classifies what an enterprise fee pays for.
type FeeType string

const (
	FeeTypeAdmin       FeeType = "admin"
	FeeTypePacking     FeeType = "packing"
	FeeTypeTransport   FeeType = "transport"
	FeeTypeFundraising FeeType = "fundraising"
	FeeTypeSales       FeeType = "sales"
)

// EnterpriseFee is a fee charged by a marketplace participant.
// TaxRate is only applied when InclusiveTax is set and the distributor charges sales tax.
type EnterpriseFee struct {
	ID           int64           `json:"id"`
	EnterpriseID int64           `json:"enterprise_id"`
	Name         string          `json:"name"`
	FeeType      FeeType         `json:"fee_type"`
	Calculator   Calculator      `json:"calculator"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	InclusiveTax bool            `json:"inclusive_tax"`
}

// AdjustmentSource names the kind of entity an adjustment is charged for.
type AdjustmentSource string

const (
	SourceShipment      AdjustmentSource = "shipment"
	SourcePayment       AdjustmentSource = "payment"
	SourceEnterpriseFee AdjustmentSource = "enterprise_fee"
)

// Adjustment is a charge or credit on an order.
// Amount is gross; IncludedTax is the part of Amount that is tax and carries the same sign.
type Adjustment struct {
	ID          int64            `json:"id"`
	OrderID     int64            `json:"order_id"`
	Source      AdjustmentSource `json:"source"`
	SourceID    int64            `json:"source_id"`
	ExchangeID  *int64           `json:"exchange_id,omitempty"` // nil for shipment, payment and coordinator fees
	Label       string           `json:"label"`
	Amount      decimal.Decimal  `json:"amount"`
	IncludedTax decimal.Decimal  `json:"included_tax"`
	Canceled    bool             `json:"canceled"`
}

// key identifies an adjustment across recalculations.
func (a Adjustment) key() adjustmentKey {
	k := adjustmentKey{source: a.Source, sourceID: a.SourceID}
	if a.ExchangeID != nil {
		k.exchangeID = *a.ExchangeID
	}
	return k
}

type adjustmentKey struct {
	source     AdjustmentSource
	sourceID   int64
	exchangeID int64
}
