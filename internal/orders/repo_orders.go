package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct{ DB *pgxpool.Pool }

// Create writes the order row and its item rows in one transaction so a
// partial aggregate can never be observed.
func (r *OrderRepo) Create(ctx context.Context, customerID string, items []LineItemInput) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	total := 0
	for _, it := range items {
		total += it.PriceCents * it.Qty
	}

	o := Order{ID: uuid.NewString(), CustomerID: customerID, TotalCents: total}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, customer_id, total_cents)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`, o.ID, o.CustomerID, o.TotalCents).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	o.Items = make([]OrderItem, 0, len(items))
	for pos, it := range items {
		item := OrderItem{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			ProductID:  it.ProductID,
			Qty:        it.Qty,
			PriceCents: it.PriceCents,
		}
		// position preserves the caller's item order across reads
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, position, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, item.OrderID, pos, item.ProductID, item.Qty, item.PriceCents,
		); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	var (
		o Order
		c Customer
	)
	err := r.DB.QueryRow(ctx, `
		SELECT o.id, o.customer_id, o.total_cents, o.created_at, o.updated_at,
		       c.id, c.name, c.email, c.created_at, c.updated_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id=$1`, id).
		Scan(&o.ID, &o.CustomerID, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt,
			&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Customer = &c

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, qty, price_cents
		FROM order_items WHERE order_id=$1
		ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}
