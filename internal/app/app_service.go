package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"marketplace-orders/internal/cache"
	"marketplace-orders/internal/core"
	"marketplace-orders/internal/events"
	"marketplace-orders/internal/metrics"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type appService struct {
	db        Pinger
	lineItems core.LineItemService
	users     core.UserService
	cache     cache.BoughtItemsCache // nil disables caching
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// bought may be nil; publisher defaults to events.NopPublisher.
func NewAppService(
	db Pinger,
	lineItems core.LineItemService,
	users core.UserService,
	bought cache.BoughtItemsCache,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) ApplicationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &appService{
		db:        db,
		lineItems: lineItems,
		users:     users,
		cache:     bought,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (s *appService) DeleteLineItem(ctx context.Context, req DeleteLineItemRequest) (*DeleteLineItemResult, error) {
	started := time.Now()
	res, err := s.lineItems.DestroyLineItem(ctx, core.DestroyLineItemRequest{
		LineItemID: req.LineItemID,
		User:       req.User,
		Shopping:   core.ShoppingContext{DistributorID: req.DistributorID, OrderCycleID: req.OrderCycleID},
	})
	s.observeDeletion(err)
	if err != nil {
		if deletionOutcome(err) == metrics.OutcomeError {
			s.metrics.ObserveRecalculation("deletion", err, started)
			s.logger.ErrorContext(ctx, "line item deletion failed", "line_item_id", req.LineItemID, "error", err)
		}
		return nil, err
	}
	s.metrics.ObserveRecalculation("deletion", nil, started)

	order := res.Order
	s.invalidateBought(ctx, order)
	if err := s.publisher.PublishLineItemRemoved(ctx, order, res.LineItemID); err != nil {
		// The deletion is committed; a lost event is logged, not surfaced.
		s.logger.WarnContext(ctx, "line item removal event not published", "order_id", order.ID, "error", err)
	}

	return &DeleteLineItemResult{
		LineItemID:      res.LineItemID,
		OrderID:         order.ID,
		ItemTotal:       order.ItemTotal,
		AdjustmentTotal: order.AdjustmentTotal,
	}, nil
}

// ListBoughtItems reads through the cache. Entries are keyed by the listing version read
// before the store is queried, so an order completed elsewhere or a deletion committed
// while the listing was loading never leaves a stale entry that a later read accepts.
// Empty listings are not cached.
func (s *appService) ListBoughtItems(ctx context.Context, req BoughtItemsRequest) (*BoughtItemsResult, error) {
	coreReq := core.BoughtItemsRequest{User: req.User, Shopping: req.shopping()}
	q, cacheable := req.cacheQuery()
	cacheable = cacheable && s.cache != nil

	var version string
	if cacheable {
		var err error
		if version, err = s.lineItems.BoughtItemsVersion(ctx, coreReq); err != nil {
			return nil, err
		}

		items, err := s.cache.Get(ctx, q, version)
		switch {
		case err == nil:
			s.metrics.ObserveCache("hit")
			return &BoughtItemsResult{Items: items, Cached: true}, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.ObserveCache("miss")
		default:
			s.metrics.ObserveCache("error")
			s.logger.WarnContext(ctx, "bought items cache unavailable", "error", err)
		}
	}

	items, err := s.lineItems.ListBoughtLineItems(ctx, coreReq)
	if err != nil {
		return nil, err
	}

	if cacheable && len(items) > 0 {
		if err := s.cache.Set(ctx, q, version, items); err != nil {
			s.logger.WarnContext(ctx, "bought items not cached", "error", err)
		}
	}
	return &BoughtItemsResult{Items: items}, nil
}

func (s *appService) RecalculateOrder(ctx context.Context, orderID int64) (*OrderTotalsResult, error) {
	started := time.Now()
	order, err := s.lineItems.RecalculateOrder(ctx, orderID)
	s.metrics.ObserveRecalculation("manual", err, started)
	if err != nil {
		return nil, err
	}

	s.invalidateBought(ctx, order)
	if err := s.publisher.PublishOrderRecalculated(ctx, order); err != nil {
		s.logger.WarnContext(ctx, "order recalculated event not published", "order_id", order.ID, "error", err)
	}
	return &OrderTotalsResult{Order: order}, nil
}

func (s *appService) ResolveUser(ctx context.Context, userID int64) (*core.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (s *appService) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// invalidateBought drops the cached listing the order contributes to.
func (s *appService) invalidateBought(ctx context.Context, order *core.Order) {
	if s.cache == nil || order.UserID == 0 || order.DistributorID == nil || order.OrderCycleID == nil {
		return
	}
	q := core.BoughtItemsQuery{UserID: order.UserID, DistributorID: *order.DistributorID, OrderCycleID: *order.OrderCycleID}
	if err := s.cache.Delete(ctx, q); err != nil {
		s.logger.WarnContext(ctx, "bought items cache not invalidated", "order_id", order.ID, "error", err)
	}
}

func (s *appService) observeDeletion(err error) {
	var denied *core.DeniedError
	if errors.As(err, &denied) {
		s.metrics.ObserveDeletion(metrics.OutcomeDenied, string(denied.Reason))
		return
	}
	s.metrics.ObserveDeletion(deletionOutcome(err), "")
}

func deletionOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeDeleted
	case errors.Is(err, core.ErrForbidden):
		return metrics.OutcomeDenied
	case errors.Is(err, core.ErrMissingLineItemID):
		return metrics.OutcomeInvalid
	case errors.Is(err, core.ErrLineItemNotFound), errors.Is(err, core.ErrOrderNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
