package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/storefront-checkout/internal/address"
	"github.com/jafarshop/storefront-checkout/internal/api/middleware"
	"github.com/jafarshop/storefront-checkout/internal/config"
	"github.com/jafarshop/storefront-checkout/internal/continuation"
	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/internal/metrics"
	"github.com/jafarshop/storefront-checkout/internal/payment"
	"github.com/jafarshop/storefront-checkout/internal/placement"
	"github.com/jafarshop/storefront-checkout/internal/repository"
	"github.com/jafarshop/storefront-checkout/internal/service"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// fakeBackend stands in for the Order Service
type fakeBackend struct {
	mu        sync.Mutex
	lines     []domain.CartLine
	orders    map[string]*domain.Order
	addresses []domain.ShippingAddress
	placed    int
}

func (f *fakeBackend) CartLines(ctx context.Context, customerID string) ([]domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CartLine(nil), f.lines...), nil
}

func (f *fakeBackend) UpdateLineQuantity(ctx context.Context, customerID, lineID string, quantity int) (domain.CartLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].LineID == lineID {
			f.lines[i].Quantity = quantity
			return f.lines[i], nil
		}
	}
	return domain.CartLine{}, &errors.ErrNotFound{Resource: "cart line", ID: lineID}
}

func (f *fakeBackend) RemoveLine(ctx context.Context, customerID, lineID string) error {
	return nil
}

func (f *fakeBackend) PlaceOrder(ctx context.Context, order domain.Order, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed++
	order.OrderID = fmt.Sprintf("ord-%d", f.placed)
	f.orders[order.OrderID] = &order
	return order.OrderID, nil
}

func (f *fakeBackend) ConfirmCOD(ctx context.Context, orderID string) error { return nil }

func (f *fakeBackend) ConfirmCard(ctx context.Context, orderID, paymentIntentID string) error {
	return nil
}

func (f *fakeBackend) ListOrders(ctx context.Context, customerID, status string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeBackend) OrderDetails(ctx context.Context, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderID}
	}
	cp := *o
	return &cp, nil
}

func (f *fakeBackend) DeliveryStatuses(ctx context.Context) (map[string]string, error) {
	return map[string]string{"pending": "Awaiting pickup"}, nil
}

func (f *fakeBackend) PaymentStatuses(ctx context.Context) (map[string]string, error) {
	return map[string]string{"pending": "Pay on delivery"}, nil
}

func (f *fakeBackend) SaveAddress(ctx context.Context, addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	addr.ID = fmt.Sprintf("addr-%d", len(f.addresses)+1)
	f.addresses = append(f.addresses, addr)
	return addr, nil
}

func (f *fakeBackend) SavedAddresses(ctx context.Context, userID string) ([]domain.ShippingAddress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ShippingAddress
	for _, a := range f.addresses {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBackend) UpdateAddress(ctx context.Context, addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	return addr, nil
}

func (f *fakeBackend) DeleteAddress(ctx context.Context, addressID string) error { return nil }

func (f *fakeBackend) SetDefaultAddress(ctx context.Context, userID, addressID string) error {
	return nil
}

type fakeGateway struct{}

func (fakeGateway) CreateIntent(ctx context.Context, req payment.IntentRequest) (domain.PaymentIntent, error) {
	return domain.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret_x", Status: payment.GatewayStatusRequiresPaymentMethod}, nil
}

func (fakeGateway) RetrieveIntent(ctx context.Context, clientSecret string) (domain.PaymentIntent, error) {
	return domain.PaymentIntent{ID: "pi_1", ClientSecret: clientSecret, Status: payment.GatewayStatusSucceeded}, nil
}

func (fakeGateway) GetIntent(ctx context.Context, intentID string) (domain.PaymentIntent, error) {
	return domain.PaymentIntent{ID: intentID, Status: payment.GatewayStatusSucceeded}, nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]*domain.IdempotencyKey
}

func (m *memoryIdempotency) GetByKey(ctx context.Context, key string) (*domain.IdempotencyKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memoryIdempotency) Create(ctx context.Context, key *domain.IdempotencyKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.Key] = key
	return nil
}

type routerFixture struct {
	router  *gin.Engine
	backend *fakeBackend
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := &fakeBackend{
		lines: []domain.CartLine{
			{LineID: "l1", ShopID: "s1", ShopName: "Shop 1", UnitPrice: 100000, Quantity: 1, StockAvailable: 2},
		},
		orders: make(map[string]*domain.Order),
	}
	validator, err := address.NewValidator(nil, "")
	require.NoError(t, err)
	converter, err := payment.NewConverter("vnd", 0, "1")
	require.NoError(t, err)

	repos := &repository.Repositories{IdempotencyKey: &memoryIdempotency{keys: make(map[string]*domain.IdempotencyKey)}}
	sessions := service.NewSessions(backend, nil, nil)
	payments := payment.NewService(fakeGateway{}, backend, continuation.NewMemoryStore(), nil, converter, nil)
	engine := placement.NewEngine(backend, validator, nil, nil)

	deps := Dependencies{
		Sessions:  sessions,
		Checkout:  service.NewCheckoutService(sessions, engine, payments, backend, repos, nil, "", nil),
		Orders:    service.NewOrderQueryService(backend, nil),
		Addresses: backend,
		Validator: validator,
		Repos:     repos,
		Metrics:   metrics.New(prometheus.NewRegistry()),
	}
	return routerFixture{router: NewRouter(&config.Config{}, deps, nil), backend: backend}
}

func (f routerFixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CustomerIDHeader, "cust-1")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func placeBody(phone string) gin.H {
	return gin.H{
		"shippingAddress": gin.H{
			"name":         "Le Van C",
			"phone":        phone,
			"addressLine":  "1 Nguyen Hue",
			"provinceCode": "79",
			"districtCode": "760",
			"wardCode":     "26734",
		},
		"paymentMethod": "cod",
	}
}

func TestRouter_HealthNeedsNoAuth(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MissingCustomerIsUnauthorized(t *testing.T) {
	f := newRouterFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_CartIncrementBeyondStockIsConflict(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodGet, "/v1/cart", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPatch, "/v1/cart/lines/l1", gin.H{"op": "increment"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPatch, "/v1/cart/lines/l1", gin.H{"op": "increment"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "stock_conflict")
}

func TestRouter_PlaceOrderThenReplay(t *testing.T) {
	f := newRouterFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/cart", nil, nil).Code)

	headers := map[string]string{middleware.IdempotencyKeyHeader: "key-1"}
	w := f.do(t, http.MethodPost, "/v1/checkout/orders", placeBody("0912345678"), headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res placement.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "ord-1", res.OrderID)

	w = f.do(t, http.MethodPost, "/v1/checkout/orders", placeBody("0912345678"), headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.backend.placed)

	// same key, different body
	w = f.do(t, http.MethodPost, "/v1/checkout/orders", placeBody("0987654321"), headers)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_PlaceOrderRejectsBadPhoneWithoutCalls(t *testing.T) {
	f := newRouterFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/cart", nil, nil).Code)

	w := f.do(t, http.MethodPost, "/v1/checkout/orders", placeBody("12345"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Zero(t, f.backend.placed)
}

func TestRouter_CODConfirmAndOrderDetails(t *testing.T) {
	f := newRouterFixture(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/v1/cart", nil, nil).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/checkout/orders", placeBody("0912345678"), nil).Code)

	w := f.do(t, http.MethodPost, "/v1/payments/cod", gin.H{"orderId": "ord-1"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"state":"succeeded"`)

	w = f.do(t, http.MethodGet, "/v1/orders/ord-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pay on delivery")

	w = f.do(t, http.MethodGet, "/v1/orders/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CardReturnRedirectVerifies(t *testing.T) {
	f := newRouterFixture(t)
	f.backend.orders["ord-7"] = &domain.Order{
		OrderID:       "ord-7",
		CustomerID:    "cust-1",
		TotalPrice:    150000,
		PaymentMethod: domain.PaymentMethodCard,
	}

	w := f.do(t, http.MethodPost, "/v1/payments/card", gin.H{"orderId": "ord-7"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "pi_1_secret_x")

	w = f.do(t, http.MethodGet, "/v1/payments/card/return?payment_intent_client_secret=pi_1_secret_x", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"state":"succeeded"`)

	// the continuation was cleared with the confirmation
	w = f.do(t, http.MethodPost, "/v1/payments/card/reconcile", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_SavedAddressOwnership(t *testing.T) {
	f := newRouterFixture(t)

	w := f.do(t, http.MethodPost, "/v1/addresses", placeBody("0912345678")["shippingAddress"], nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodDelete, "/v1/addresses/addr-1", nil, map[string]string{middleware.CustomerIDHeader: "cust-2"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, "/v1/addresses/addr-1", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
