package orders

import "time"

type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID         string
	Name       string
	PriceCents int
	Quantity   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Order struct {
	ID         string
	CustomerID string
	TotalCents int
	Items      []OrderItem
	Customer   *Customer // populated on reads that join the customer
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderItem struct {
	ID         string
	OrderID    string
	ProductID  string
	Qty        int
	PriceCents int
}

// ItemQty is a requested (product, quantity) pair as the caller sent it.
type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"quantity"`
}

// LineItemInput is a validated line ready to persist: requested quantity
// plus the price snapshot taken at lookup time.
type LineItemInput struct {
	ProductID  string
	Qty        int
	PriceCents int
}
