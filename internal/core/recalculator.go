package core

import (
	"context"
	"fmt"
	"log/slog"
)

// Recalculator re-derives and persists an order's adjustments inside an order transaction.
type Recalculator struct {
	ledger *AdjustmentLedger
	tax    TaxConfig
	logger *slog.Logger
}

// NewRecalculator constructs a Recalculator. A nil logger falls back to slog.Default().
func NewRecalculator(ledger *AdjustmentLedger, tax TaxConfig, logger *slog.Logger) *Recalculator {
	if ledger == nil {
		ledger = NewAdjustmentLedger()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recalculator{ledger: ledger, tax: tax, logger: logger}
}

// OnLineItemRemoved must run after a line item was deleted within tx. It reloads the
// order so the deleted item is gone from the collection, then recalculates once.
func (r *Recalculator) OnLineItemRemoved(ctx context.Context, tx OrderTx) (*Order, error) {
	return r.Recalculate(ctx, tx)
}

// Recalculate reloads the locked order, rebuilds its adjustments and saves them.
// On failure nothing is written and the caller's transaction should roll back.
func (r *Recalculator) Recalculate(ctx context.Context, tx OrderTx) (*Order, error) {
	order, err := tx.LoadOrder(ctx)
	if err != nil {
		return nil, err
	}

	before := order.AdjustmentTotal
	if err := r.ledger.Recalculate(order, r.tax); err != nil {
		return nil, fmt.Errorf("recalculate order %d: %w", order.ID, err)
	}
	if err := tx.SaveAdjustments(ctx, order); err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "order recalculated",
		"order_id", order.ID,
		"adjustments", len(order.Adjustments),
		"adjustment_total_before", before.StringFixed(2),
		"adjustment_total", order.AdjustmentTotal.StringFixed(2),
	)
	return order, nil
}
