package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/shopcore/orders-api/internal/apperr"
)

type CreateOrderInput struct {
	CustomerID string    `json:"customer_id"`
	Products   []ItemQty `json:"products"`
}

// Service implements order creation: customer lookup, product validation,
// stock decrement, aggregate write, response shaping. Each step aborts the
// whole operation on failure; the decrement and the aggregate write are each
// transactional in their stores.
type Service struct {
	customers CustomerStore
	products  ProductStore
	orders    OrderStore
}

func NewService(customers CustomerStore, products ProductStore, orders OrderStore) *Service {
	return &Service{customers: customers, products: products, orders: orders}
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*OrderView, error) {
	if in.CustomerID == "" {
		return nil, apperr.New(apperr.Invalid, "customer_id is required")
	}
	if len(in.Products) == 0 {
		return nil, apperr.New(apperr.Invalid, "order must contain at least one product")
	}
	for _, it := range in.Products {
		if it.ProductID == "" {
			return nil, apperr.New(apperr.Invalid, "product id is required")
		}
		if it.Qty <= 0 {
			return nil, apperr.New(apperr.Invalid, "quantity for product %s must be positive", it.ProductID)
		}
	}

	customer, err := s.customers.FindByID(ctx, in.CustomerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "customer lookup failed")
	}
	if customer == nil {
		return nil, apperr.New(apperr.NotFound, "customer not found")
	}

	ids := make([]string, 0, len(in.Products))
	for _, it := range in.Products {
		ids = append(ids, it.ProductID)
	}
	found, err := s.products.FindAllByID(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "product lookup failed")
	}
	var missing []string
	for _, it := range in.Products {
		if _, ok := found[it.ProductID]; !ok {
			missing = append(missing, it.ProductID)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.New(apperr.Invalid, "product(s) not found: %s", strings.Join(missing, ", "))
	}

	if _, err := s.products.DecrementStock(ctx, in.Products); err != nil {
		var short *InsufficientStockError
		if errors.As(err, &short) {
			return nil, apperr.Wrap(apperr.Unprocessable, short, "insufficient stock")
		}
		return nil, apperr.Wrap(apperr.Internal, err, "stock adjustment failed")
	}

	// Line quantity is what the caller ordered; price is the snapshot from
	// the lookup, not a live reference to the product row.
	lines := make([]LineItemInput, 0, len(in.Products))
	for _, it := range in.Products {
		lines = append(lines, LineItemInput{
			ProductID:  it.ProductID,
			Qty:        it.Qty,
			PriceCents: found[it.ProductID].PriceCents,
		})
	}

	order, err := s.orders.Create(ctx, customer.ID, lines)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "order persistence failed")
	}

	return NewOrderView(order, customer), nil
}

// GetOrder returns the shaped view of a persisted order.
func (s *Service) GetOrder(ctx context.Context, id string) (*OrderView, error) {
	if id == "" {
		return nil, apperr.New(apperr.Invalid, "order id is required")
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "order lookup failed")
	}
	if order == nil {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	return NewOrderView(order, order.Customer), nil
}
