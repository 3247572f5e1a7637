package orders

import (
	"context"
	"fmt"
	"strings"
)

// CustomerStore resolves customers. FindByID returns (nil, nil) when no
// customer matches.
type CustomerStore interface {
	FindByID(ctx context.Context, id string) (*Customer, error)
}

// ProductStore resolves products and adjusts stock.
//
// DecrementStock must run as one transaction: every product is locked,
// checked against the requested quantity, and decremented, or nothing is.
// Concurrent orders for the same product must serialize on the row so the
// check-and-decrement cannot race.
type ProductStore interface {
	// FindAllByID returns resolved products keyed by id; absent ids are
	// simply missing from the map.
	FindAllByID(ctx context.Context, ids []string) (map[string]Product, error)

	// DecrementStock atomically decrements stock for every item or returns
	// *InsufficientStockError with nothing persisted. The returned products
	// carry post-decrement quantities and the unchanged price.
	DecrementStock(ctx context.Context, items []ItemQty) (map[string]Product, error)
}

// OrderStore persists and reads order aggregates.
type OrderStore interface {
	// Create writes the order row and all item rows as one unit.
	Create(ctx context.Context, customerID string, items []LineItemInput) (*Order, error)

	// GetByID returns the order with items and customer joined, or
	// (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*Order, error)
}

// StockShortage describes one product that could not cover the requested
// quantity.
type StockShortage struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s requested %d available %d", s.ProductID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}
