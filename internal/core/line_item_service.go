package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ShoppingContext is the distributor and order cycle the shopper is currently browsing.
// Either may be nil before the shopper picks one.
type ShoppingContext struct {
	DistributorID *int64
	OrderCycleID  *int64
}

// DestroyLineItemRequest asks to remove one line item on behalf of User.
type DestroyLineItemRequest struct {
	LineItemID int64
	User       *User

	// Shopping is carried for logging only. The policy judges the order's own
	// distributor and order cycle, which need not match what the shopper browses.
	Shopping ShoppingContext
}

// DestroyLineItemResult describes the order after a successful deletion.
type DestroyLineItemResult struct {
	LineItemID int64
	Order      *Order
}

// BoughtItemsRequest asks for the items User already bought in the current shopping context.
type BoughtItemsRequest struct {
	User     *User
	Shopping ShoppingContext
}

// LineItemService removes line items from orders and keeps order adjustments consistent.
type LineItemService interface {
	// DestroyLineItem authorizes, deletes and recalculates in one order transaction.
	// Either all of it takes effect or none of it does.
	DestroyLineItem(ctx context.Context, req DestroyLineItemRequest) (*DestroyLineItemResult, error)
	ListBoughtLineItems(ctx context.Context, req BoughtItemsRequest) ([]LineItem, error)
	// BoughtItemsVersion changes whenever ListBoughtLineItems for req may return something new.
	// It is empty when the request has no full shopping context.
	BoughtItemsVersion(ctx context.Context, req BoughtItemsRequest) (string, error)
	RecalculateOrder(ctx context.Context, orderID int64) (*Order, error)
}

type lineItemService struct {
	store  OrderStore
	recalc *Recalculator
	logger *slog.Logger
}

// NewLineItemService constructs a LineItemService over store.
func NewLineItemService(store OrderStore, recalc *Recalculator, logger *slog.Logger) LineItemService {
	if logger == nil {
		logger = slog.Default()
	}
	return &lineItemService{store: store, recalc: recalc, logger: logger}
}

func (s *lineItemService) DestroyLineItem(ctx context.Context, req DestroyLineItemRequest) (*DestroyLineItemResult, error) {
	if req.LineItemID == 0 {
		return nil, ErrMissingLineItemID
	}

	item, err := s.store.FindLineItem(ctx, req.LineItemID)
	if err != nil {
		return nil, err
	}

	var updated *Order
	err = s.store.InOrderTx(ctx, item.OrderID, func(ctx context.Context, tx OrderTx) error {
		order, err := tx.LoadOrder(ctx)
		if err != nil {
			return err
		}
		// Removed by a concurrent request between the lookup and the lock.
		if !order.HasLineItem(item.ID) {
			return fmt.Errorf("line item %d: %w", item.ID, ErrLineItemNotFound)
		}

		if err := AuthorizeLineItemDeletion(req.User, order).Err(); err != nil {
			return err
		}

		if err := tx.DeleteLineItem(ctx, item.ID); err != nil {
			return err
		}

		updated, err = s.recalc.OnLineItemRemoved(ctx, tx)
		return err
	})
	if err != nil {
		var denied *DeniedError
		if errors.As(err, &denied) {
			s.logger.InfoContext(ctx, "line item deletion denied",
				"line_item_id", item.ID, "order_id", item.OrderID, "reason", string(denied.Reason),
				"shopping_distributor_id", idAttr(req.Shopping.DistributorID),
				"shopping_order_cycle_id", idAttr(req.Shopping.OrderCycleID))
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "line item deleted",
		"line_item_id", item.ID,
		"order_id", updated.ID,
		"remaining_items", len(updated.LineItems),
		"adjustment_total", updated.AdjustmentTotal.StringFixed(2),
	)
	return &DestroyLineItemResult{LineItemID: item.ID, Order: updated}, nil
}

func (s *lineItemService) ListBoughtLineItems(ctx context.Context, req BoughtItemsRequest) ([]LineItem, error) {
	q, ok, err := req.query()
	if err != nil {
		return nil, err
	}
	if !ok {
		return []LineItem{}, nil
	}
	return s.store.ListBoughtLineItems(ctx, q)
}

func (s *lineItemService) BoughtItemsVersion(ctx context.Context, req BoughtItemsRequest) (string, error) {
	q, ok, err := req.query()
	if err != nil || !ok {
		return "", err
	}
	return s.store.BoughtItemsVersion(ctx, q)
}

// query reports false when the shopper has not picked both a distributor and an order cycle.
func (r BoughtItemsRequest) query() (BoughtItemsQuery, bool, error) {
	if r.User == nil {
		return BoughtItemsQuery{}, false, &DeniedError{Reason: DenyNoUser}
	}
	if r.Shopping.DistributorID == nil || r.Shopping.OrderCycleID == nil {
		return BoughtItemsQuery{}, false, nil
	}
	return BoughtItemsQuery{
		UserID:        r.User.ID,
		DistributorID: *r.Shopping.DistributorID,
		OrderCycleID:  *r.Shopping.OrderCycleID,
	}, true, nil
}

// idAttr renders an optional id for logs; 0 means unset.
func idAttr(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}

func (s *lineItemService) RecalculateOrder(ctx context.Context, orderID int64) (*Order, error) {
	var updated *Order
	err := s.store.InOrderTx(ctx, orderID, func(ctx context.Context, tx OrderTx) error {
		var err error
		updated, err = s.recalc.Recalculate(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "order recalculated on request",
		"order_id", orderID, "adjustment_total", updated.AdjustmentTotal.StringFixed(2))
	return updated, nil
}
