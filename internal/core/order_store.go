package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type orderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore constructs an OrderStore backed by PostgreSQL.
func NewOrderStore(pool *pgxpool.Pool) OrderStore {
	return &orderStore{pool: pool}
}

func (s *orderStore) FindLineItem(ctx context.Context, lineItemID int64) (*LineItem, error) {
	var li LineItem
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_id, variant_id, quantity, price
		FROM line_items
		WHERE id = $1
	`, lineItemID).Scan(&li.ID, &li.OrderID, &li.VariantID, &li.Quantity, &li.Price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("line item %d: %w", lineItemID, ErrLineItemNotFound)
		}
		return nil, fmt.Errorf("failed to fetch line item %d: %w", lineItemID, err)
	}
	return &li, nil
}

func (s *orderStore) ListBoughtLineItems(ctx context.Context, q BoughtItemsQuery) ([]LineItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT li.id, li.order_id, li.variant_id, li.quantity, li.price
		FROM line_items li
		JOIN orders o ON o.id = li.order_id
		WHERE o.user_id = $1
		  AND o.distributor_id = $2
		  AND o.order_cycle_id = $3
		  AND o.state = 'complete'
		ORDER BY o.completed_at, o.id, li.id
	`, q.UserID, q.DistributorID, q.OrderCycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bought line items: %w", err)
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.VariantID, &li.Quantity, &li.Price); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line items: %w", err)
	}
	return items, nil
}

func (s *orderStore) BoughtItemsVersion(ctx context.Context, q BoughtItemsQuery) (string, error) {
	var count int64
	var latest time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(MAX(GREATEST(o.updated_at, o.completed_at)), 'epoch'::timestamptz)
		FROM orders o
		WHERE o.user_id = $1
		  AND o.distributor_id = $2
		  AND o.order_cycle_id = $3
		  AND o.state = 'complete'
	`, q.UserID, q.DistributorID, q.OrderCycleID).Scan(&count, &latest)
	if err != nil {
		return "", fmt.Errorf("failed to read bought items version: %w", err)
	}
	return fmt.Sprintf("%d-%d", count, latest.UnixMicro()), nil
}

func (s *orderStore) InOrderTx(ctx context.Context, orderID int64, fn func(ctx context.Context, tx OrderTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the order row for the rest of the transaction.
	var locked int64
	err = tx.QueryRow(ctx, "SELECT id FROM orders WHERE id = $1 FOR UPDATE", orderID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
		}
		return fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}

	if err := fn(ctx, &orderTx{tx: tx, orderID: orderID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order %d: %w", orderID, err)
	}
	return nil
}

type orderTx struct {
	tx      pgx.Tx
	orderID int64
}

func (t *orderTx) LoadOrder(ctx context.Context) (*Order, error) {
	o, err := loadOrderHeader(ctx, t.tx, t.orderID)
	if err != nil {
		return nil, err
	}

	if o.DistributorID != nil {
		if o.Distributor, err = loadEnterprise(ctx, t.tx, *o.DistributorID); err != nil {
			return nil, err
		}
	}
	if o.OrderCycleID != nil {
		if o.OrderCycle, err = loadOrderCycle(ctx, t.tx, *o.OrderCycleID); err != nil {
			return nil, err
		}
	}
	if o.Shipment, err = loadShipment(ctx, t.tx, o.ID); err != nil {
		return nil, err
	}
	if o.Payment, err = loadPayment(ctx, t.tx, o.ID); err != nil {
		return nil, err
	}
	if o.LineItems, err = loadLineItems(ctx, t.tx, o.ID); err != nil {
		return nil, err
	}
	if o.Adjustments, err = loadAdjustments(ctx, t.tx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (t *orderTx) DeleteLineItem(ctx context.Context, lineItemID int64) error {
	tag, err := t.tx.Exec(ctx, "DELETE FROM line_items WHERE id = $1 AND order_id = $2", lineItemID, t.orderID)
	if err != nil {
		return fmt.Errorf("failed to delete line item %d: %w", lineItemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("line item %d: %w", lineItemID, ErrLineItemNotFound)
	}
	return nil
}

func (t *orderTx) SaveAdjustments(ctx context.Context, order *Order) error {
	keep := make([]int64, 0, len(order.Adjustments))
	for _, a := range order.Adjustments {
		if a.ID != 0 {
			keep = append(keep, a.ID)
		}
	}

	// Drop adjustments whose source no longer applies to the order.
	if _, err := t.tx.Exec(ctx, `
		DELETE FROM adjustments
		WHERE order_id = $1 AND canceled = false AND id <> ALL($2::bigint[])
	`, t.orderID, keep); err != nil {
		return fmt.Errorf("failed to prune adjustments for order %d: %w", t.orderID, err)
	}

	for i := range order.Adjustments {
		a := &order.Adjustments[i]
		if a.Canceled {
			continue
		}
		if a.ID == 0 {
			err := t.tx.QueryRow(ctx, `
				INSERT INTO adjustments (order_id, source_type, source_id, exchange_id, label, amount, included_tax)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id
			`, t.orderID, string(a.Source), a.SourceID, a.ExchangeID, a.Label, a.Amount, a.IncludedTax).Scan(&a.ID)
			if err != nil {
				return fmt.Errorf("failed to insert %s adjustment: %w", a.Source, err)
			}
			continue
		}
		if _, err := t.tx.Exec(ctx, `
			UPDATE adjustments
			SET label = $1, amount = $2, included_tax = $3, updated_at = NOW()
			WHERE id = $4
		`, a.Label, a.Amount, a.IncludedTax, a.ID); err != nil {
			return fmt.Errorf("failed to update adjustment %d: %w", a.ID, err)
		}
	}

	if _, err := t.tx.Exec(ctx, `
		UPDATE orders
		SET item_total = $1, adjustment_total = $2, updated_at = clock_timestamp()
		WHERE id = $3
	`, order.ItemTotal, order.AdjustmentTotal, t.orderID); err != nil {
		return fmt.Errorf("failed to update totals for order %d: %w", t.orderID, err)
	}
	return nil
}

// ── Loaders ──────────────────────────────────────────────────────────────────

func loadOrderHeader(ctx context.Context, q pgxQuerier, orderID int64) (*Order, error) {
	var o Order
	var userID *int64
	var state string
	err := q.QueryRow(ctx, `
		SELECT id, number, user_id, distributor_id, order_cycle_id, state, completed_at,
		       item_total, adjustment_total
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&o.ID, &o.Number, &userID, &o.DistributorID, &o.OrderCycleID, &state, &o.CompletedAt,
		&o.ItemTotal, &o.AdjustmentTotal,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
		}
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if userID != nil {
		o.UserID = *userID
	}
	o.State = OrderState(state)
	return &o, nil
}

func loadEnterprise(ctx context.Context, q pgxQuerier, id int64) (*Enterprise, error) {
	var e Enterprise
	err := q.QueryRow(ctx, `
		SELECT id, name, charges_sales_tax, allow_order_changes
		FROM enterprises
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Name, &e.ChargesSalesTax, &e.AllowOrderChanges)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch enterprise %d: %w", id, err)
	}
	return &e, nil
}

func loadOrderCycle(ctx context.Context, q pgxQuerier, id int64) (*OrderCycle, error) {
	var oc OrderCycle
	err := q.QueryRow(ctx, `
		SELECT id, name, coordinator_id, opens_at, closes_at
		FROM order_cycles
		WHERE id = $1
	`, id).Scan(&oc.ID, &oc.Name, &oc.CoordinatorID, &oc.OpensAt, &oc.ClosesAt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order cycle %d: %w", id, err)
	}

	if oc.Exchanges, err = loadExchanges(ctx, q, id); err != nil {
		return nil, err
	}

	oc.CoordinatorFees, err = queryFees(ctx, q, `
		SELECT 0, f.id, f.enterprise_id, f.name, f.fee_type, f.calculator_kind,
		       f.preferred_amount, f.preferred_percent, f.tax_rate, f.inclusive_tax
		FROM coordinator_fees cf
		JOIN enterprise_fees f ON f.id = cf.enterprise_fee_id
		WHERE cf.order_cycle_id = $1
		ORDER BY f.id
	`, id, nil)
	if err != nil {
		return nil, err
	}
	return &oc, nil
}

func loadExchanges(ctx context.Context, q pgxQuerier, orderCycleID int64) ([]Exchange, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_cycle_id, sender_id, receiver_id, incoming
		FROM exchanges
		WHERE order_cycle_id = $1
		ORDER BY id
	`, orderCycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}

	var exchanges []Exchange
	index := make(map[int64]int)
	for rows.Next() {
		var ex Exchange
		if err := rows.Scan(&ex.ID, &ex.OrderCycleID, &ex.SenderID, &ex.ReceiverID, &ex.Incoming); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		index[ex.ID] = len(exchanges)
		exchanges = append(exchanges, ex)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchanges: %w", err)
	}

	if err := loadExchangeVariants(ctx, q, orderCycleID, exchanges, index); err != nil {
		return nil, err
	}

	_, err = queryFees(ctx, q, `
		SELECT ef.exchange_id, f.id, f.enterprise_id, f.name, f.fee_type, f.calculator_kind,
		       f.preferred_amount, f.preferred_percent, f.tax_rate, f.inclusive_tax
		FROM exchange_fees ef
		JOIN exchanges e ON e.id = ef.exchange_id
		JOIN enterprise_fees f ON f.id = ef.enterprise_fee_id
		WHERE e.order_cycle_id = $1
		ORDER BY ef.exchange_id, ef.position, f.id
	`, orderCycleID, func(exchangeID int64, fee EnterpriseFee) {
		if i, ok := index[exchangeID]; ok {
			exchanges[i].EnterpriseFees = append(exchanges[i].EnterpriseFees, fee)
		}
	})
	if err != nil {
		return nil, err
	}
	return exchanges, nil
}

func loadExchangeVariants(ctx context.Context, q pgxQuerier, orderCycleID int64, exchanges []Exchange, index map[int64]int) error {
	rows, err := q.Query(ctx, `
		SELECT ev.exchange_id, ev.variant_id
		FROM exchange_variants ev
		JOIN exchanges e ON e.id = ev.exchange_id
		WHERE e.order_cycle_id = $1
		ORDER BY ev.exchange_id, ev.variant_id
	`, orderCycleID)
	if err != nil {
		return fmt.Errorf("failed to query exchange variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var exchangeID, variantID int64
		if err := rows.Scan(&exchangeID, &variantID); err != nil {
			return fmt.Errorf("failed to scan exchange variant: %w", err)
		}
		if i, ok := index[exchangeID]; ok {
			exchanges[i].VariantIDs = append(exchanges[i].VariantIDs, variantID)
		}
	}
	return rows.Err()
}

// queryFees scans enterprise fee rows whose first column is an owning exchange id.
// When each is non-nil it receives every row; the fees are also returned in order.
func queryFees(ctx context.Context, q pgxQuerier, sql string, arg int64, each func(exchangeID int64, fee EnterpriseFee)) ([]EnterpriseFee, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query enterprise fees: %w", err)
	}
	defer rows.Close()

	var fees []EnterpriseFee
	for rows.Next() {
		var exchangeID int64
		var f EnterpriseFee
		var feeType, kind string
		if err := rows.Scan(
			&exchangeID, &f.ID, &f.EnterpriseID, &f.Name, &feeType, &kind,
			&f.Calculator.PreferredAmount, &f.Calculator.PreferredPercent, &f.TaxRate, &f.InclusiveTax,
		); err != nil {
			return nil, fmt.Errorf("failed to scan enterprise fee: %w", err)
		}
		f.FeeType = FeeType(feeType)
		f.Calculator.Kind = CalculatorKind(kind)
		if each != nil {
			each(exchangeID, f)
		}
		fees = append(fees, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enterprise fees: %w", err)
	}
	return fees, nil
}

func loadShipment(ctx context.Context, q pgxQuerier, orderID int64) (*Shipment, error) {
	var s Shipment
	var kind string
	err := q.QueryRow(ctx, `
		SELECT s.id, m.id, m.name, m.calculator_kind, m.preferred_amount, m.preferred_percent
		FROM shipments s
		JOIN shipping_methods m ON m.id = s.shipping_method_id
		WHERE s.order_id = $1
	`, orderID).Scan(&s.ID, &s.Method.ID, &s.Method.Name, &kind,
		&s.Method.Calculator.PreferredAmount, &s.Method.Calculator.PreferredPercent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch shipment for order %d: %w", orderID, err)
	}
	s.Method.Calculator.Kind = CalculatorKind(kind)
	return &s, nil
}

func loadPayment(ctx context.Context, q pgxQuerier, orderID int64) (*Payment, error) {
	var p Payment
	var kind string
	err := q.QueryRow(ctx, `
		SELECT p.id, m.id, m.name, m.calculator_kind, m.preferred_amount, m.preferred_percent
		FROM payments p
		JOIN payment_methods m ON m.id = p.payment_method_id
		WHERE p.order_id = $1
		ORDER BY p.id DESC
		LIMIT 1
	`, orderID).Scan(&p.ID, &p.Method.ID, &p.Method.Name, &kind,
		&p.Method.Calculator.PreferredAmount, &p.Method.Calculator.PreferredPercent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch payment for order %d: %w", orderID, err)
	}
	p.Method.Calculator.Kind = CalculatorKind(kind)
	return &p, nil
}

func loadLineItems(ctx context.Context, q pgxQuerier, orderID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, variant_id, quantity, price
		FROM line_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.OrderID, &li.VariantID, &li.Quantity, &li.Price); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func loadAdjustments(ctx context.Context, q pgxQuerier, orderID int64) ([]Adjustment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, source_type, source_id, exchange_id, label, amount, included_tax, canceled
		FROM adjustments
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []Adjustment
	for rows.Next() {
		var a Adjustment
		var source string
		if err := rows.Scan(&a.ID, &a.OrderID, &source, &a.SourceID, &a.ExchangeID, &a.Label,
			&a.Amount, &a.IncludedTax, &a.Canceled); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		a.Source = AdjustmentSource(source)
		adjustments = append(adjustments, a)
	}
	return adjustments, rows.Err()
}
