package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/shopcore/orders-api/internal/apperr"
	kafkax "github.com/shopcore/orders-api/internal/kafka"
	"github.com/shopcore/orders-api/internal/orders"
)

// Publisher is satisfied by kafkax.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// ViewCache is satisfied by redisx.OrderViewCache.
type ViewCache interface {
	Get(ctx context.Context, orderID string) ([]byte, bool)
	Set(ctx context.Context, orderID string, body []byte)
}

type CustomerRegistry interface {
	Create(ctx context.Context, name, email string) (*orders.Customer, error)
}

type ProductCatalog interface {
	Create(ctx context.Context, name string, priceCents, quantity int) (*orders.Product, error)
	List(ctx context.Context) ([]orders.Product, error)
}

type OrdersHandler struct {
	Orders    *orders.Service
	Customers CustomerRegistry
	Products  ProductCatalog
	Producer  Publisher
	Cache     ViewCache
	Service   string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/customers", h.createCustomer)
	r.Post("/products", h.createProduct)
	r.Get("/products", h.listProducts)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string                 `json:"error"`
	Details []orders.StockShortage `json:"details,omitempty"`
}

func writeErr(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}

	var short *orders.InsufficientStockError
	if errors.As(err, &short) {
		body.Details = short.Shortages
	}

	var code int
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		code = http.StatusNotFound
	case apperr.Invalid:
		code = http.StatusBadRequest
	case apperr.Unprocessable:
		code = http.StatusUnprocessableEntity
	default:
		code = http.StatusInternalServerError
		body.Error = "internal error"
	}
	writeJSON(w, code, body)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	view, err := h.Orders.CreateOrder(ctx, req)
	if err != nil {
		writeErr(w, err)
		return
	}

	body := kafkax.MustMarshal(view)
	if h.Cache != nil {
		h.Cache.Set(ctx, view.ID, body)
	}
	h.publishCreated(r, view)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *OrdersHandler) publishCreated(r *http.Request, view *orders.OrderView) {
	if h.Producer == nil {
		return
	}
	items := make([]orders.OrderCreatedItem, 0, len(view.Items))
	for _, it := range view.Items {
		items = append(items, orders.OrderCreatedItem{
			ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.PriceCents,
		})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: view.ID,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:    view.ID,
			CustomerID: view.Customer.ID,
			Items:      items,
			TotalCents: view.TotalCents,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(view.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Cache != nil {
		if body, ok := h.Cache.Get(ctx, orderID); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}
	}

	view, err := h.Orders.GetOrder(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}

	body := kafkax.MustMarshal(view)
	if h.Cache != nil {
		h.Cache.Set(ctx, orderID, body)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type createCustomerReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *OrdersHandler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	if req.Name == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name and email are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Customers.Create(ctx, req.Name, req.Email)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orders.NewCustomerView(c))
}

type createProductReq struct {
	Name       string `json:"name"`
	PriceCents int    `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

func (h *OrdersHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	if req.Name == "" || req.PriceCents <= 0 || req.Quantity < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name, positive price_cents and non-negative quantity are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Products.Create(ctx, req.Name, req.PriceCents, req.Quantity)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orders.NewProductView(*p))
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	views := make([]orders.ProductView, 0, len(ps))
	for _, p := range ps {
		views = append(views, orders.NewProductView(p))
	}
	writeJSON(w, http.StatusOK, views)
}
