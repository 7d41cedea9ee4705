package app

import (
	"context"

	"marketplace-orders/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println and no display logic of any kind.
type ApplicationService interface {
	// DeleteLineItem removes one line item from its order on behalf of the shopper and
	// recalculates the order's adjustments in the same transaction.
	// Returns core.ErrMissingLineItemID, core.ErrLineItemNotFound or a *core.DeniedError
	// when nothing was changed.
	DeleteLineItem(ctx context.Context, req DeleteLineItemRequest) (*DeleteLineItemResult, error)

	// ListBoughtItems returns the line items the shopper already bought from the current
	// distributor in the current order cycle. Without a shopping context the list is empty.
	ListBoughtItems(ctx context.Context, req BoughtItemsRequest) (*BoughtItemsResult, error)

	// RecalculateOrder re-derives an order's adjustments, e.g. after its distributor's
	// fees or the tax settings changed. Callers are responsible for authorizing it.
	RecalculateOrder(ctx context.Context, orderID int64) (*OrderTotalsResult, error)

	// ResolveUser maps an authenticated user id to a user. Returns nil, nil when the
	// user no longer exists, which callers treat as "nobody signed in".
	ResolveUser(ctx context.Context, userID int64) (*core.User, error)

	// Ping reports whether the database is reachable.
	Ping(ctx context.Context) error
}
