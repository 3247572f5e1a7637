package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopcore/orders-api/internal/apperr"
)

type ProductRepo struct{ DB *pgxpool.Pool }

// FindAllByID resolves products in one query and keys the result by id, so
// callers correlate by identifier instead of trusting result order.
func (r *ProductRepo) FindAllByID(ctx context.Context, ids []string) (map[string]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, price_cents, quantity, created_at, updated_at
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// DecrementStock locks each product row (FOR UPDATE), checks the requested
// quantity against stock, and decrements. All items succeed or the
// transaction rolls back; shortages are collected across the whole batch so
// the caller sees every failing product, not just the first.
func (r *ProductRepo) DecrementStock(ctx context.Context, items []ItemQty) (map[string]Product, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var shortages []StockShortage
	out := make(map[string]Product, len(items))

	for _, it := range items {
		var p Product
		err := tx.QueryRow(ctx, `
			SELECT id, name, price_cents, quantity, created_at, updated_at
			FROM products WHERE id=$1 FOR UPDATE`, it.ProductID).
			Scan(&p.ID, &p.Name, &p.PriceCents, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			// product vanished between lookup and decrement
			shortages = append(shortages, StockShortage{ProductID: it.ProductID, Requested: it.Qty, Available: 0})
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.Quantity < it.Qty {
			shortages = append(shortages, StockShortage{ProductID: it.ProductID, Requested: it.Qty, Available: p.Quantity})
			continue
		}

		if _, err := tx.Exec(ctx, `
			UPDATE products SET quantity = quantity - $2, updated_at = now()
			WHERE id=$1`, it.ProductID, it.Qty); err != nil {
			return nil, err
		}
		p.Quantity -= it.Qty
		out[p.ID] = p
	}

	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages} // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a product. Names are unique in the catalog.
func (r *ProductRepo) Create(ctx context.Context, name string, priceCents, quantity int) (*Product, error) {
	p := Product{ID: uuid.NewString(), Name: name, PriceCents: priceCents, Quantity: quantity}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, price_cents, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`, p.ID, p.Name, p.PriceCents, p.Quantity).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, apperr.New(apperr.Invalid, "product name already in use")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, price_cents, quantity, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
