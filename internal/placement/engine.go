package placement

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/cart"
	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/internal/shipping"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// OrderPlacer creates orders on the Order Service
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order domain.Order, idempotencyKey string) (string, error)
}

// AddressValidator checks a shipping address. CheckFields must not touch the network.
type AddressValidator interface {
	CheckFields(addr domain.ShippingAddress) error
	Validate(ctx context.Context, addr domain.ShippingAddress) error
}

// EventRecorder stores checkout audit events
type EventRecorder interface {
	Create(ctx context.Context, event *domain.CheckoutEvent) error
}

// Request is one placement attempt
type Request struct {
	CustomerID      string
	ShippingAddress domain.ShippingAddress
	Lines           []domain.CartLine
	PaymentMethod   domain.PaymentMethod
	IdempotencyKey  string
}

// Result is returned on a successful placement
type Result struct {
	OrderID        string       `json:"orderId"`
	Order          domain.Order `json:"order"`
	IdempotencyKey string       `json:"idempotencyKey"`
}

// Engine places orders
type Engine struct {
	orders    OrderPlacer
	addresses AddressValidator
	events    EventRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine creates a placement engine. events may be nil.
func NewEngine(orders OrderPlacer, addresses AddressValidator, events EventRecorder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		orders:    orders,
		addresses: addresses,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

// Validate runs every local check. It never makes a network call.
func (e *Engine) Validate(req Request) error {
	if err := e.addresses.CheckFields(req.ShippingAddress); err != nil {
		return err
	}

	lines := cart.Purchasable(req.Lines)
	if len(lines) == 0 {
		return &errors.ErrValidation{Message: "cart is empty", Fields: map[string]string{"lines": "required"}}
	}
	if cart.Summarize(lines).TotalPrice <= 0 {
		return &errors.ErrValidation{Message: "cart total must be positive", Fields: map[string]string{"itemsPrice": "must be positive"}}
	}

	if strings.TrimSpace(req.CustomerID) == "" {
		return &errors.ErrValidation{Message: "customer id is required", Fields: map[string]string{"customerId": "required"}}
	}
	if !req.PaymentMethod.IsValid() {
		return &errors.ErrValidation{Message: "unsupported payment method", Fields: map[string]string{"paymentMethod": string(req.PaymentMethod)}}
	}
	return nil
}

// BuildOrder partitions the purchasable lines into one suborder per seller,
// in order of first appearance. Shipping is priced per seller.
func BuildOrder(req Request) domain.Order {
	status := domain.InitialPaymentStatus(req.PaymentMethod)
	order := domain.Order{
		CustomerID:      req.CustomerID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   status,
		DeliveryStatus:  domain.DeliveryStatusPending,
	}

	index := make(map[string]int)
	for _, line := range cart.Purchasable(req.Lines) {
		i, ok := index[line.ShopID]
		if !ok {
			i = len(order.SubOrders)
			index[line.ShopID] = i
			order.SubOrders = append(order.SubOrders, domain.SubOrder{
				ShopID:         line.ShopID,
				ShopName:       line.ShopName,
				PaymentStatus:  status,
				DeliveryStatus: domain.DeliveryStatusPending,
			})
		}
		order.SubOrders[i].Lines = append(order.SubOrders[i].Lines, line)
		order.SubOrders[i].Price += cart.LineTotal(line)
	}

	subtotals := make([]int64, len(order.SubOrders))
	for i := range order.SubOrders {
		order.SubOrders[i].ShippingFee = shipping.Fee(order.SubOrders[i].Price)
		subtotals[i] = order.SubOrders[i].Price
		order.ItemsPrice += order.SubOrders[i].Price
	}
	order.ShippingFee = shipping.OrderFee(subtotals)
	order.TotalPrice = order.ItemsPrice + order.ShippingFee
	return order
}

// Place validates the request and creates the order with exactly one Order
// Service call. Nothing is retried here; a failed attempt leaves no order.
func (e *Engine) Place(ctx context.Context, req Request) (*Result, error) {
	if err := e.Validate(req); err != nil {
		return nil, err
	}
	if err := e.addresses.Validate(ctx, req.ShippingAddress); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		key = uuid.New().String()
	}

	order := BuildOrder(req)
	order.CreatedAt = e.now()

	orderID, err := e.orders.PlaceOrder(ctx, order, key)
	if err != nil {
		placementErr := toPlacementError(err)
		e.logger.Error("Order placement failed",
			zap.String("customer_id", req.CustomerID),
			zap.String("idempotency_key", key),
			zap.Int("sub_orders", len(order.SubOrders)),
			zap.Error(err),
		)
		e.record(ctx, "", req.CustomerID, domain.EventPlacementFailed, map[string]interface{}{
			"idempotency_key": key,
			"error":           err.Error(),
		})
		return nil, placementErr
	}
	order.OrderID = orderID

	e.logger.Info("Order placed",
		zap.String("order_id", orderID),
		zap.String("customer_id", req.CustomerID),
		zap.String("payment_method", string(req.PaymentMethod)),
		zap.Int("sub_orders", len(order.SubOrders)),
		zap.Int64("total_price", order.TotalPrice),
	)
	e.record(ctx, orderID, req.CustomerID, domain.EventOrderPlaced, map[string]interface{}{
		"idempotency_key": key,
		"payment_method":  string(req.PaymentMethod),
		"total_price":     order.TotalPrice,
		"sub_orders":      len(order.SubOrders),
	})

	return &Result{OrderID: orderID, Order: order, IdempotencyKey: key}, nil
}

func toPlacementError(err error) error {
	placementErr := &errors.ErrPlacement{Err: err}
	var remote *errors.ErrRemote
	if stderrors.As(err, &remote) {
		placementErr.Status = remote.Status
		placementErr.Message = remote.Body
	}
	return placementErr
}

func (e *Engine) record(ctx context.Context, orderID, customerID, eventType string, data map[string]interface{}) {
	if e.events == nil {
		return
	}
	event := &domain.CheckoutEvent{
		ID:         uuid.New(),
		OrderID:    orderID,
		CustomerID: customerID,
		EventType:  eventType,
		EventData:  data,
		CreatedAt:  e.now(),
	}
	if err := e.events.Create(ctx, event); err != nil {
		e.logger.Warn("Failed to record checkout event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
