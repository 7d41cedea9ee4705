package core

import "context"

// OrderStore loads and persists orders together with their distribution context.
type OrderStore interface {
	// FindLineItem returns ErrLineItemNotFound when no such line item exists.
	FindLineItem(ctx context.Context, lineItemID int64) (*LineItem, error)

	// ListBoughtLineItems returns line items of the user's completed orders in one
	// distributor and order cycle, grouped by order and in each order's own item order.
	ListBoughtLineItems(ctx context.Context, q BoughtItemsQuery) ([]LineItem, error)

	// BoughtItemsVersion returns a token that changes whenever the result of
	// ListBoughtLineItems for q may have changed: an order completing, or a
	// completed order being modified.
	BoughtItemsVersion(ctx context.Context, q BoughtItemsQuery) (string, error)

	// InOrderTx runs fn with exclusive access to the order. Everything fn writes
	// through tx commits together when fn returns nil and is discarded otherwise.
	// Returns ErrOrderNotFound when the order does not exist.
	InOrderTx(ctx context.Context, orderID int64, fn func(ctx context.Context, tx OrderTx) error) error
}

// OrderTx is a unit of work scoped to a single locked order.
type OrderTx interface {
	// LoadOrder reads the order with its line items, adjustments, distributor,
	// order cycle, shipment and payment as currently visible in the transaction.
	LoadOrder(ctx context.Context) (*Order, error)

	// DeleteLineItem removes a line item of the locked order.
	DeleteLineItem(ctx context.Context, lineItemID int64) error

	// SaveAdjustments writes the order's adjustment set, ItemTotal and AdjustmentTotal.
	SaveAdjustments(ctx context.Context, order *Order) error
}

// BoughtItemsQuery scopes a listing of previously bought line items.
type BoughtItemsQuery struct {
	UserID        int64
	DistributorID int64
	OrderCycleID  int64
}
