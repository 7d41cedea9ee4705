package app

import (
	"marketplace-orders/internal/core"

	"github.com/shopspring/decimal"
)

// DeleteLineItemResult is returned by DeleteLineItem.
type DeleteLineItemResult struct {
	LineItemID      int64
	OrderID         int64
	ItemTotal       decimal.Decimal
	AdjustmentTotal decimal.Decimal
}

// BoughtItemsResult is returned by ListBoughtItems.
type BoughtItemsResult struct {
	Items  []core.LineItem
	Cached bool
}

// OrderTotalsResult is returned by RecalculateOrder.
type OrderTotalsResult struct {
	Order *core.Order
}
