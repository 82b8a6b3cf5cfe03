package placement

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/storefront-checkout/internal/address"
	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

type fakeOrderService struct {
	mu     sync.Mutex
	calls  []domain.Order
	keys   []string
	err    error
	nextID string
}

func (f *fakeOrderService) PlaceOrder(ctx context.Context, order domain.Order, idempotencyKey string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, order)
	f.keys = append(f.keys, idempotencyKey)
	if f.err != nil {
		return "", f.err
	}
	return f.nextID, nil
}

type fakeEvents struct {
	types []string
}

func (f *fakeEvents) Create(ctx context.Context, event *domain.CheckoutEvent) error {
	f.types = append(f.types, event.EventType)
	return nil
}

func newEngine(t *testing.T, orders *fakeOrderService, events *fakeEvents) *Engine {
	t.Helper()
	validator, err := address.NewValidator(nil, "")
	require.NoError(t, err)
	return NewEngine(orders, validator, events, nil)
}

func validAddress() domain.ShippingAddress {
	return domain.ShippingAddress{
		Name:         "Nguyen Van A",
		Phone:        "0912345678",
		AddressLine:  "12 Tran Hung Dao",
		ProvinceCode: "01",
		ProvinceName: "Ha Noi",
		DistrictCode: "001",
		DistrictName: "Ba Dinh",
		WardCode:     "00001",
		WardName:     "Phuc Xa",
	}
}

func line(id, shop string, price int64, qty int) domain.CartLine {
	return domain.CartLine{LineID: id, ShopID: shop, ShopName: "Shop " + shop, UnitPrice: price, Quantity: qty, StockAvailable: 10}
}

func TestBuildOrder_ShippingIsPricedPerSeller(t *testing.T) {
	order := BuildOrder(Request{
		CustomerID:      "cust-1",
		ShippingAddress: validAddress(),
		PaymentMethod:   domain.PaymentMethodCOD,
		Lines: []domain.CartLine{
			line("l1", "s1", 300000, 2),
			line("l2", "s2", 100000, 1),
		},
	})

	require.Len(t, order.SubOrders, 2)
	assert.Equal(t, int64(600000), order.SubOrders[0].Price)
	assert.Equal(t, int64(0), order.SubOrders[0].ShippingFee)
	assert.Equal(t, int64(100000), order.SubOrders[1].Price)
	assert.Equal(t, int64(40000), order.SubOrders[1].ShippingFee)

	assert.Equal(t, int64(700000), order.ItemsPrice)
	assert.Equal(t, int64(40000), order.ShippingFee)
	assert.Equal(t, int64(740000), order.TotalPrice)
}

func TestBuildOrder_GroupsBySellerAndSkipsOutOfStock(t *testing.T) {
	soldOut := line("l3", "s3", 50000, 1)
	soldOut.StockAvailable = 0

	order := BuildOrder(Request{
		PaymentMethod: domain.PaymentMethodCard,
		Lines: []domain.CartLine{
			line("l1", "s1", 100000, 1),
			line("l2", "s2", 100000, 1),
			soldOut,
			line("l4", "s1", 100000, 1),
		},
	})

	require.Len(t, order.SubOrders, 2)
	assert.Equal(t, "s1", order.SubOrders[0].ShopID)
	assert.Len(t, order.SubOrders[0].Lines, 2)
	assert.Equal(t, "s2", order.SubOrders[1].ShopID)
	assert.NotContains(t, order.LineIDs(), "l3")

	assert.Equal(t, domain.PaymentStatusUnpaid, order.PaymentStatus)
	for _, so := range order.SubOrders {
		assert.Equal(t, domain.PaymentStatusUnpaid, so.PaymentStatus)
		assert.Equal(t, domain.DeliveryStatusPending, so.DeliveryStatus)
	}
}

func TestPlace_COD(t *testing.T) {
	orders := &fakeOrderService{nextID: "ord-1"}
	events := &fakeEvents{}
	engine := newEngine(t, orders, events)

	res, err := engine.Place(context.Background(), Request{
		CustomerID:      "cust-1",
		ShippingAddress: validAddress(),
		Lines:           []domain.CartLine{line("l1", "s1", 200000, 1)},
		PaymentMethod:   domain.PaymentMethodCOD,
		IdempotencyKey:  "idem-1",
	})
	require.NoError(t, err)

	require.Len(t, orders.calls, 1)
	assert.Equal(t, "idem-1", orders.keys[0])
	assert.Equal(t, "ord-1", res.OrderID)
	assert.Equal(t, "ord-1", res.Order.OrderID)
	assert.Equal(t, domain.PaymentStatusPending, res.Order.PaymentStatus)
	assert.Equal(t, domain.DeliveryStatusPending, res.Order.DeliveryStatus)
	assert.Equal(t, domain.PaymentStatusPending, orders.calls[0].SubOrders[0].PaymentStatus)
	assert.Equal(t, []string{domain.EventOrderPlaced}, events.types)
}

func TestPlace_GeneratesIdempotencyKey(t *testing.T) {
	orders := &fakeOrderService{nextID: "ord-1"}
	engine := newEngine(t, orders, nil)

	res, err := engine.Place(context.Background(), Request{
		CustomerID:      "cust-1",
		ShippingAddress: validAddress(),
		Lines:           []domain.CartLine{line("l1", "s1", 200000, 1)},
		PaymentMethod:   domain.PaymentMethodCard,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.IdempotencyKey)
	assert.Equal(t, res.IdempotencyKey, orders.keys[0])
	assert.Equal(t, domain.PaymentStatusUnpaid, res.Order.PaymentStatus)
}

func TestPlace_ValidationNeverCallsOrderService(t *testing.T) {
	missingPhone := validAddress()
	missingPhone.Phone = ""
	badPhone := validAddress()
	badPhone.Phone = "0212345678"
	missingWard := validAddress()
	missingWard.WardCode = ""
	soldOut := line("l1", "s1", 100000, 1)
	soldOut.StockAvailable = 0

	cases := map[string]Request{
		"empty cart": {
			CustomerID: "cust-1", ShippingAddress: validAddress(), PaymentMethod: domain.PaymentMethodCOD,
		},
		"only out of stock lines": {
			CustomerID: "cust-1", ShippingAddress: validAddress(), PaymentMethod: domain.PaymentMethodCOD,
			Lines: []domain.CartLine{soldOut},
		},
		"zero total": {
			CustomerID: "cust-1", ShippingAddress: validAddress(), PaymentMethod: domain.PaymentMethodCOD,
			Lines: []domain.CartLine{line("l1", "s1", 0, 1)},
		},
		"missing phone": {
			CustomerID: "cust-1", ShippingAddress: missingPhone, PaymentMethod: domain.PaymentMethodCOD,
			Lines: []domain.CartLine{line("l1", "s1", 100000, 1)},
		},
		"invalid phone": {
			CustomerID: "cust-1", ShippingAddress: badPhone, PaymentMethod: domain.PaymentMethodCOD,
			Lines: []domain.CartLine{line("l1", "s1", 100000, 1)},
		},
		"missing ward": {
			CustomerID: "cust-1", ShippingAddress: missingWard, PaymentMethod: domain.PaymentMethodCOD,
			Lines: []domain.CartLine{line("l1", "s1", 100000, 1)},
		},
		"missing customer": {
			ShippingAddress: validAddress(), PaymentMethod: domain.PaymentMethodCOD,
			Lines: []domain.CartLine{line("l1", "s1", 100000, 1)},
		},
		"unknown payment method": {
			CustomerID: "cust-1", ShippingAddress: validAddress(), PaymentMethod: "crypto",
			Lines: []domain.CartLine{line("l1", "s1", 100000, 1)},
		},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			orders := &fakeOrderService{nextID: "ord-1"}
			engine := newEngine(t, orders, nil)

			_, err := engine.Place(context.Background(), req)
			var validation *errors.ErrValidation
			require.ErrorAs(t, err, &validation)
			assert.Empty(t, orders.calls)
		})
	}
}

func TestPlace_FailureIsPlacementError(t *testing.T) {
	orders := &fakeOrderService{err: &errors.ErrRemote{Op: "place order", Status: 422, Body: "shop closed"}}
	events := &fakeEvents{}
	engine := newEngine(t, orders, events)

	res, err := engine.Place(context.Background(), Request{
		CustomerID:      "cust-1",
		ShippingAddress: validAddress(),
		Lines:           []domain.CartLine{line("l1", "s1", 100000, 1)},
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	assert.Nil(t, res)

	var placement *errors.ErrPlacement
	require.ErrorAs(t, err, &placement)
	assert.Equal(t, 422, placement.Status)
	assert.Equal(t, "shop closed", placement.Message)
	assert.Len(t, orders.calls, 1)
	assert.Equal(t, []string{domain.EventPlacementFailed}, events.types)
}

func TestPlace_TransportFailureKeepsCause(t *testing.T) {
	cause := &errors.ErrTimeout{Op: "place order", Err: context.DeadlineExceeded}
	orders := &fakeOrderService{err: cause}
	engine := newEngine(t, orders, nil)

	_, err := engine.Place(context.Background(), Request{
		CustomerID:      "cust-1",
		ShippingAddress: validAddress(),
		Lines:           []domain.CartLine{line("l1", "s1", 100000, 1)},
		PaymentMethod:   domain.PaymentMethodCOD,
	})

	var timeout *errors.ErrTimeout
	require.ErrorAs(t, err, &timeout)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.Len(t, orders.calls, 1)
}
