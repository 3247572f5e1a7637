package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopcore/orders-api/internal/apperr"
)

type CustomerRepo struct{ DB *pgxpool.Pool }

func (r *CustomerRepo) FindByID(ctx context.Context, id string) (*Customer, error) {
	var c Customer
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM customers WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a customer. Emails are unique; a duplicate is a caller
// error, not a store failure.
func (r *CustomerRepo) Create(ctx context.Context, name, email string) (*Customer, error) {
	c := Customer{ID: uuid.NewString(), Name: name, Email: email}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO customers(id, name, email)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`, c.ID, c.Name, c.Email).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, apperr.New(apperr.Invalid, "email already in use")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
