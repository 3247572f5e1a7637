package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/shopcore/orders-api/internal/apperr"
	"github.com/shopcore/orders-api/internal/orders"
)

type memCustomers struct {
	byID    map[string]orders.Customer
	byEmail map[string]string
}

func (m *memCustomers) FindByID(_ context.Context, id string) (*orders.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memCustomers) Create(_ context.Context, name, email string) (*orders.Customer, error) {
	if _, dup := m.byEmail[email]; dup {
		return nil, apperr.New(apperr.Invalid, "email already in use")
	}
	c := orders.Customer{ID: "C" + name, Name: name, Email: email, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.byID[c.ID] = c
	m.byEmail[email] = c.ID
	return &c, nil
}

type memProducts struct {
	byID map[string]*orders.Product
}

func (m *memProducts) FindAllByID(_ context.Context, ids []string) (map[string]orders.Product, error) {
	out := make(map[string]orders.Product)
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (m *memProducts) DecrementStock(_ context.Context, items []orders.ItemQty) (map[string]orders.Product, error) {
	var shortages []orders.StockShortage
	for _, it := range items {
		p, ok := m.byID[it.ProductID]
		if !ok || p.Quantity < it.Qty {
			avail := 0
			if ok {
				avail = p.Quantity
			}
			shortages = append(shortages, orders.StockShortage{ProductID: it.ProductID, Requested: it.Qty, Available: avail})
		}
	}
	if len(shortages) > 0 {
		return nil, &orders.InsufficientStockError{Shortages: shortages}
	}
	out := make(map[string]orders.Product)
	for _, it := range items {
		p := m.byID[it.ProductID]
		p.Quantity -= it.Qty
		out[p.ID] = *p
	}
	return out, nil
}

func (m *memProducts) Create(_ context.Context, name string, priceCents, quantity int) (*orders.Product, error) {
	for _, p := range m.byID {
		if p.Name == name {
			return nil, apperr.New(apperr.Invalid, "product name already in use")
		}
	}
	p := &orders.Product{ID: "P" + name, Name: name, PriceCents: priceCents, Quantity: quantity}
	m.byID[p.ID] = p
	return p, nil
}

func (m *memProducts) List(_ context.Context) ([]orders.Product, error) {
	out := make([]orders.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

type memOrders struct {
	customers *memCustomers
	seq       int
	byID      map[string]*orders.Order
}

func (m *memOrders) Create(_ context.Context, customerID string, items []orders.LineItemInput) (*orders.Order, error) {
	m.seq++
	o := &orders.Order{ID: fmt.Sprintf("O%d", m.seq), CustomerID: customerID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	for _, it := range items {
		o.TotalCents += it.PriceCents * it.Qty
		o.Items = append(o.Items, orders.OrderItem{
			OrderID: o.ID, ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.PriceCents,
		})
	}
	if c, ok := m.customers.byID[customerID]; ok {
		o.Customer = &c
	}
	m.byID[o.ID] = o
	return o, nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*orders.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return o, nil
}

type memCache struct {
	entries map[string][]byte
}

func (m *memCache) Get(_ context.Context, orderID string) ([]byte, bool) {
	b, ok := m.entries[orderID]
	return b, ok
}

func (m *memCache) Set(_ context.Context, orderID string, body []byte) {
	m.entries[orderID] = body
}

type memPublisher struct {
	messages []kafkago.Message
}

func (m *memPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	m.messages = append(m.messages, kafkago.Message{Key: key, Value: value, Headers: headers})
}

type fixture struct {
	router    *chi.Mux
	customers *memCustomers
	products  *memProducts
	cache     *memCache
	publisher *memPublisher
}

func newFixture() *fixture {
	customers := &memCustomers{
		byID:    map[string]orders.Customer{"C1": {ID: "C1", Name: "Ada", Email: "ada@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now()}},
		byEmail: map[string]string{"ada@example.com": "C1"},
	}
	products := &memProducts{byID: map[string]*orders.Product{
		"P1": {ID: "P1", Name: "Keyboard", PriceCents: 500, Quantity: 10},
	}}
	orderStore := &memOrders{customers: customers, byID: map[string]*orders.Order{}}
	cache := &memCache{entries: map[string][]byte{}}
	publisher := &memPublisher{}

	h := &OrdersHandler{
		Orders:    orders.NewService(customers, products, orderStore),
		Customers: customers,
		Products:  products,
		Producer:  publisher,
		Cache:     cache,
		Service:   "orders-api-test",
	}
	router := NewRouter()
	h.Register(router)
	return &fixture{router: router, customers: customers, products: products, cache: cache, publisher: publisher}
}

func doJSON(t *testing.T, router *chi.Mux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCreateOrderEndpoint(t *testing.T) {
	fx := newFixture()

	rr := doJSON(t, fx.router, http.MethodPost, "/orders", map[string]any{
		"customer_id": "C1",
		"products":    []map[string]any{{"product_id": "P1", "quantity": 3}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var view orders.OrderView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].Qty != 3 || view.Items[0].PriceCents != 500 {
		t.Fatalf("unexpected view items: %+v", view.Items)
	}
	if view.Customer.ID != "C1" {
		t.Fatalf("customer = %+v", view.Customer)
	}
	if fx.products.byID["P1"].Quantity != 7 {
		t.Fatalf("stock = %d, want 7", fx.products.byID["P1"].Quantity)
	}

	// event published with envelope + payload
	if len(fx.publisher.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(fx.publisher.messages))
	}
	var env orders.Envelope
	if err := json.Unmarshal(fx.publisher.messages[0].Value, &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.EventType != orders.EventOrderCreated || env.CorrelationID != view.ID {
		t.Fatalf("envelope = %+v", env)
	}

	// view cached under the order id
	if _, ok := fx.cache.entries[view.ID]; !ok {
		t.Fatal("order view not cached")
	}
}

func TestCreateOrderEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{
			name:     "customer not found",
			body:     map[string]any{"customer_id": "C404", "products": []map[string]any{{"product_id": "P1", "quantity": 1}}},
			wantCode: http.StatusNotFound,
		},
		{
			name:     "product not found",
			body:     map[string]any{"customer_id": "C1", "products": []map[string]any{{"product_id": "P404", "quantity": 1}}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "insufficient stock",
			body:     map[string]any{"customer_id": "C1", "products": []map[string]any{{"product_id": "P1", "quantity": 99}}},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "empty products",
			body:     map[string]any{"customer_id": "C1", "products": []map[string]any{}},
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture()
			rr := doJSON(t, fx.router, http.MethodPost, "/orders", tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if fx.products.byID["P1"].Quantity != 10 {
				t.Fatalf("stock mutated on failure: %d", fx.products.byID["P1"].Quantity)
			}
			if len(fx.publisher.messages) != 0 {
				t.Fatal("event published on failure")
			}
		})
	}
}

func TestCreateOrderEndpoint_InsufficientStockDetails(t *testing.T) {
	fx := newFixture()

	rr := doJSON(t, fx.router, http.MethodPost, "/orders", map[string]any{
		"customer_id": "C1",
		"products":    []map[string]any{{"product_id": "P1", "quantity": 99}},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rr.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Details) != 1 || body.Details[0].Available != 10 || body.Details[0].Requested != 99 {
		t.Fatalf("details = %+v", body.Details)
	}
}

func TestCreateOrderEndpoint_BadJSON(t *testing.T) {
	fx := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	fx.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetOrderEndpoint(t *testing.T) {
	fx := newFixture()

	create := doJSON(t, fx.router, http.MethodPost, "/orders", map[string]any{
		"customer_id": "C1",
		"products":    []map[string]any{{"product_id": "P1", "quantity": 2}},
	})
	var view orders.OrderView
	if err := json.Unmarshal(create.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr := doJSON(t, fx.router, http.MethodGet, "/orders/"+view.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	rr = doJSON(t, fx.router, http.MethodGet, "/orders/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetOrderEndpoint_ServesFromCache(t *testing.T) {
	fx := newFixture()
	fx.cache.entries["O9"] = []byte(`{"id":"O9","cached":true}`)

	rr := doJSON(t, fx.router, http.MethodGet, "/orders/O9", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte(`"cached":true`)) {
		t.Fatalf("cache bypassed: %s", rr.Body.String())
	}
}

func TestCreateCustomerEndpoint(t *testing.T) {
	fx := newFixture()

	rr := doJSON(t, fx.router, http.MethodPost, "/customers", map[string]string{"name": "Bo", "email": "bo@example.com"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var raw map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, leaked := raw["created_at"]; leaked {
		t.Fatal("customer view leaks created_at")
	}

	// duplicate email
	rr = doJSON(t, fx.router, http.MethodPost, "/customers", map[string]string{"name": "Bo2", "email": "bo@example.com"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("dup email status = %d", rr.Code)
	}

	// missing fields
	rr = doJSON(t, fx.router, http.MethodPost, "/customers", map[string]string{"name": "NoMail"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing email status = %d", rr.Code)
	}
}

func TestProductEndpoints(t *testing.T) {
	fx := newFixture()

	rr := doJSON(t, fx.router, http.MethodPost, "/products", map[string]any{"name": "Monitor", "price_cents": 12900, "quantity": 4})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	// duplicate name
	rr = doJSON(t, fx.router, http.MethodPost, "/products", map[string]any{"name": "Monitor", "price_cents": 9900, "quantity": 1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("dup name status = %d", rr.Code)
	}

	// invalid price
	rr = doJSON(t, fx.router, http.MethodPost, "/products", map[string]any{"name": "Free", "price_cents": 0, "quantity": 1})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("zero price status = %d", rr.Code)
	}

	rr = doJSON(t, fx.router, http.MethodGet, "/products", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var list []orders.ProductView
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("list len = %d, want 2", len(list))
	}
}
