package core_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"marketplace-orders/internal/core"
)

// memoryStore is an in-memory OrderStore. InOrderTx works on a private copy of the
// order and only publishes it when fn succeeds.
type memoryStore struct {
	mu     sync.Mutex
	orders map[int64]*core.Order
	nextID int64

	saves   int
	failOn  string // "save" makes SaveAdjustments fail
	deleted []int64

	// revisions counts committed transactions per order, standing in for updated_at.
	revisions map[int64]int
}

func newMemoryStore(orders ...*core.Order) *memoryStore {
	s := &memoryStore{orders: make(map[int64]*core.Order), nextID: 1000, revisions: make(map[int64]int)}
	for _, o := range orders {
		s.orders[o.ID] = cloneOrder(o)
	}
	return s
}

func (s *memoryStore) order(id int64) *core.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneOrder(s.orders[id])
}

func (s *memoryStore) FindLineItem(_ context.Context, id int64) (*core.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		for _, li := range o.LineItems {
			if li.ID == id {
				return &li, nil
			}
		}
	}
	return nil, fmt.Errorf("line item %d: %w", id, core.ErrLineItemNotFound)
}

func (s *memoryStore) ListBoughtLineItems(_ context.Context, q core.BoughtItemsQuery) ([]core.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := []core.LineItem{}
	for _, id := range ids {
		if o := s.orders[id]; boughtIn(o, q) {
			items = append(items, o.LineItems...)
		}
	}
	return items, nil
}

func (s *memoryStore) BoughtItemsVersion(_ context.Context, q core.BoughtItemsQuery) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, revs := 0, 0
	for id, o := range s.orders {
		if boughtIn(o, q) {
			count++
			revs += s.revisions[id]
		}
	}
	return fmt.Sprintf("%d-%d", count, revs), nil
}

// complete marks an order as checked out, the way an external checkout would.
func (s *memoryStore) complete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id].State = core.OrderStateComplete
}

func (s *memoryStore) InOrderTx(ctx context.Context, orderID int64, fn func(context.Context, core.OrderTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, core.ErrOrderNotFound)
	}
	tx := &memoryTx{store: s, order: cloneOrder(o)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.orders[orderID] = tx.order
	s.revisions[orderID]++
	s.saves += tx.saves
	s.deleted = append(s.deleted, tx.deleted...)
	return nil
}

type memoryTx struct {
	store   *memoryStore
	order   *core.Order
	saves   int
	deleted []int64
}

func (t *memoryTx) LoadOrder(context.Context) (*core.Order, error) {
	return cloneOrder(t.order), nil
}

func (t *memoryTx) DeleteLineItem(_ context.Context, id int64) error {
	if !removeLineItem(t.order, id) {
		return fmt.Errorf("line item %d: %w", id, core.ErrLineItemNotFound)
	}
	t.deleted = append(t.deleted, id)
	return nil
}

func (t *memoryTx) SaveAdjustments(_ context.Context, o *core.Order) error {
	if t.store.failOn == "save" {
		return fmt.Errorf("disk full")
	}
	for i := range o.Adjustments {
		if o.Adjustments[i].ID == 0 {
			t.store.nextID++
			o.Adjustments[i].ID = t.store.nextID
		}
	}
	t.order.Adjustments = append([]core.Adjustment(nil), o.Adjustments...)
	t.order.ItemTotal = o.ItemTotal
	t.order.AdjustmentTotal = o.AdjustmentTotal
	t.saves++
	return nil
}

func cloneOrder(o *core.Order) *core.Order {
	if o == nil {
		return nil
	}
	c := *o
	c.LineItems = append([]core.LineItem{}, o.LineItems...)
	c.Adjustments = append([]core.Adjustment(nil), o.Adjustments...)
	return &c
}

func boughtIn(o *core.Order, q core.BoughtItemsQuery) bool {
	return o.UserID == q.UserID && o.Completed() &&
		o.DistributorID != nil && *o.DistributorID == q.DistributorID &&
		o.OrderCycleID != nil && *o.OrderCycleID == q.OrderCycleID
}

// removeLineItem drops a line item from o, reporting whether it was there.
func removeLineItem(o *core.Order, lineItemID int64) bool {
	for i, li := range o.LineItems {
		if li.ID == lineItemID {
			o.LineItems = append(o.LineItems[:i:i], o.LineItems[i+1:]...)
			return true
		}
	}
	return false
}
