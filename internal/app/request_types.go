package app

import "marketplace-orders/internal/core"

// DeleteLineItemRequest is the input for DeleteLineItem. User is nil for anonymous requests.
// DistributorID and OrderCycleID are the shopper's current shopping context.
type DeleteLineItemRequest struct {
	LineItemID    int64
	User          *core.User
	DistributorID *int64
	OrderCycleID  *int64
}

// BoughtItemsRequest is the input for ListBoughtItems.
type BoughtItemsRequest struct {
	User          *core.User
	DistributorID *int64
	OrderCycleID  *int64
}

func (r BoughtItemsRequest) shopping() core.ShoppingContext {
	return core.ShoppingContext{DistributorID: r.DistributorID, OrderCycleID: r.OrderCycleID}
}

// cacheQuery returns the cache key for the request, or false when the request
// cannot produce a cacheable listing.
func (r BoughtItemsRequest) cacheQuery() (core.BoughtItemsQuery, bool) {
	if r.User == nil || r.DistributorID == nil || r.OrderCycleID == nil {
		return core.BoughtItemsQuery{}, false
	}
	return core.BoughtItemsQuery{
		UserID:        r.User.ID,
		DistributorID: *r.DistributorID,
		OrderCycleID:  *r.OrderCycleID,
	}, true
}
