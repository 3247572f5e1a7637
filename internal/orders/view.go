package orders

import "time"

// Views are the public projection of persisted entities. They are built
// fresh rather than stripping fields off the stored structs, so internal
// bookkeeping (item ids, order foreign keys, row timestamps) can never leak
// into a response by accident.

type CustomerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LineItemView struct {
	ProductID  string `json:"product_id"`
	PriceCents int    `json:"price_cents"`
	Qty        int    `json:"quantity"`
}

type OrderView struct {
	ID         string         `json:"id"`
	Customer   CustomerView   `json:"customer"`
	Items      []LineItemView `json:"items"`
	TotalCents int            `json:"total_cents"`
	CreatedAt  time.Time      `json:"created_at"`
}

func NewCustomerView(c *Customer) CustomerView {
	return CustomerView{ID: c.ID, Name: c.Name, Email: c.Email}
}

func NewOrderView(o *Order, c *Customer) *OrderView {
	items := make([]LineItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, LineItemView{
			ProductID:  it.ProductID,
			PriceCents: it.PriceCents,
			Qty:        it.Qty,
		})
	}
	return &OrderView{
		ID:         o.ID,
		Customer:   NewCustomerView(c),
		Items:      items,
		TotalCents: o.TotalCents,
		CreatedAt:  o.CreatedAt,
	}
}

type ProductView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

func NewProductView(p Product) ProductView {
	return ProductView{ID: p.ID, Name: p.Name, PriceCents: p.PriceCents, Quantity: p.Quantity}
}
