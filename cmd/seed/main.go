// seed loads a small demo marketplace: one hub, one farm, a weekly order cycle
// and a completed order with shipping, payment and exchange fees. Existing demo
// rows are replaced. Run migrations first.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"marketplace-orders/internal/config"
	"marketplace-orders/internal/core"
	"marketplace-orders/internal/db"

	"github.com/joho/godotenv"
)

const demoOrderID = 1000

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Clearing previous demo data...")
	_, err = tx.Exec(ctx, `
		DELETE FROM orders WHERE id BETWEEN 1000 AND 1099;
		DELETE FROM coordinator_fees WHERE order_cycle_id = 1000;
		DELETE FROM exchanges WHERE order_cycle_id = 1000;
		DELETE FROM order_cycles WHERE id = 1000;
		DELETE FROM enterprise_fees WHERE id BETWEEN 1000 AND 1099;
		DELETE FROM shipping_methods WHERE id = 1000;
		DELETE FROM payment_methods WHERE id = 1000;
		DELETE FROM users WHERE id IN (1000, 1001);
		DELETE FROM enterprises WHERE id IN (1000, 1001);
	`)
	if err != nil {
		log.Fatalf("Failed to clear demo data: %v", err)
	}

	log.Println("Creating enterprises and users...")
	_, err = tx.Exec(ctx, `
		INSERT INTO enterprises (id, name, charges_sales_tax, allow_order_changes) VALUES
		(1000, 'Riverside Food Hub', true, true),
		(1001, 'Green Acre Farm', false, false);

		INSERT INTO users (id, email, role) VALUES
		(1000, 'shopper@demo.local', 'customer'),
		(1001, 'admin@demo.local', 'admin');
	`)
	if err != nil {
		log.Fatalf("Failed to create enterprises: %v", err)
	}

	log.Println("Creating order cycle, exchanges and fees...")
	_, err = tx.Exec(ctx, `
		INSERT INTO order_cycles (id, name, coordinator_id, opens_at, closes_at) VALUES
		(1000, 'Demo week', 1000, NOW() - INTERVAL '2 days', NOW() + INTERVAL '5 days');

		INSERT INTO enterprise_fees (id, enterprise_id, name, fee_type, calculator_kind, preferred_amount, preferred_percent, tax_rate, inclusive_tax) VALUES
		(1000, 1001, 'Packing',   'packing',   'per_item',     0.50,  0,  0,    false),
		(1001, 1000, 'Transport', 'transport', 'flat_rate',    2.00,  0,  0.25, true),
		(1002, 1000, 'Admin',     'admin',     'flat_percent', 0,     5,  0,    false);

		INSERT INTO exchanges (id, order_cycle_id, sender_id, receiver_id, incoming) VALUES
		(1000, 1000, 1001, 1000, true),
		(1001, 1000, 1000, 1000, false);
		INSERT INTO exchange_variants (exchange_id, variant_id) VALUES
		(1000, 5001), (1000, 5002),
		(1001, 5001), (1001, 5002), (1001, 5003);
		INSERT INTO exchange_fees (exchange_id, enterprise_fee_id, position) VALUES
		(1000, 1000, 0),
		(1001, 1001, 0);
		INSERT INTO coordinator_fees (order_cycle_id, enterprise_fee_id) VALUES (1000, 1002);

		INSERT INTO shipping_methods (id, name, calculator_kind, preferred_amount) VALUES (1000, 'Home delivery', 'flat_rate', 6.00);
		INSERT INTO payment_methods (id, name, calculator_kind, preferred_amount) VALUES (1000, 'Card', 'flat_rate', 0.30);
	`)
	if err != nil {
		log.Fatalf("Failed to create order cycle: %v", err)
	}

	log.Println("Creating demo order...")
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, number, user_id, distributor_id, order_cycle_id, state, completed_at) VALUES
		(1000, 'DEMO-1000', 1000, 1000, 1000, 'complete', NOW());
		INSERT INTO shipments (order_id, shipping_method_id) VALUES (1000, 1000);
		INSERT INTO payments (order_id, payment_method_id) VALUES (1000, 1000);
		INSERT INTO line_items (order_id, variant_id, quantity, price) VALUES
		(1000, 5001, 2, 3.50),
		(1000, 5002, 1, 4.20),
		(1000, 5003, 3, 1.10);
	`)
	if err != nil {
		log.Fatalf("Failed to create demo order: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	// Adjustments are derived the same way the server derives them.
	tax := core.TaxConfig{ShipmentIncVAT: cfg.Tax.ShipmentIncVAT, ShippingTaxRate: cfg.Tax.ShippingTaxRate}
	svc := core.NewLineItemService(core.NewOrderStore(pool), core.NewRecalculator(nil, tax, nil), nil)
	order, err := svc.RecalculateOrder(ctx, demoOrderID)
	if err != nil {
		log.Fatalf("Failed to recalculate demo order: %v", err)
	}

	log.Printf("Demo data restored. Order %s: item total %s, adjustments %s",
		order.Number, order.ItemTotal.StringFixed(2), order.AdjustmentTotal.StringFixed(2))
}
