// Package cache keeps shoppers' already-bought line items close to the web tier.
package cache

import (
	"context"
	"errors"

	"marketplace-orders/internal/core"
)

// BoughtItemsCache caches ListBoughtLineItems results per user, distributor and order cycle.
// Every entry is stamped with the listing version it was computed at; Get treats an entry
// stamped with any other version as a miss.
type BoughtItemsCache interface {
	Get(ctx context.Context, q core.BoughtItemsQuery, version string) ([]core.LineItem, error)
	Set(ctx context.Context, q core.BoughtItemsQuery, version string, items []core.LineItem) error
	Delete(ctx context.Context, q core.BoughtItemsQuery) error
}

// ErrCacheMiss is returned by Get when there is no entry for the query and version.
var ErrCacheMiss = errors.New("cache miss")
