package service

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/internal/metrics"
	"github.com/jafarshop/storefront-checkout/internal/payment"
	"github.com/jafarshop/storefront-checkout/internal/placement"
	"github.com/jafarshop/storefront-checkout/internal/repository"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// ErrCartBusy is returned when an order is placed while a quantity change is still in flight
var ErrCartBusy = &errors.ErrConflict{Message: "cart has quantity changes in flight, try again"}

// OrderLookup fetches a single order
type OrderLookup interface {
	OrderDetails(ctx context.Context, orderID string) (*domain.Order, error)
}

// IdempotencyInfo is the placement idempotency data extracted from the request
type IdempotencyInfo struct {
	Key             string
	RequestHash     string
	ExistingOrderID string
}

// CheckoutService ties placement and payment to the customer's session and
// cleans the cart once an order is confirmed.
type CheckoutService struct {
	sessions          *Sessions
	engine            *placement.Engine
	payments          *payment.Service
	orders            OrderLookup
	repos             *repository.Repositories
	metrics           *metrics.CheckoutMetrics
	supportWebhookURL string
	logger            *zap.Logger
}

// NewCheckoutService creates a new checkout service. repos and m may be nil.
func NewCheckoutService(
	sessions *Sessions,
	engine *placement.Engine,
	payments *payment.Service,
	orders OrderLookup,
	repos *repository.Repositories,
	m *metrics.CheckoutMetrics,
	supportWebhookURL string,
	logger *zap.Logger,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutService{
		sessions:          sessions,
		engine:            engine,
		payments:          payments,
		orders:            orders,
		repos:             repos,
		metrics:           m,
		supportWebhookURL: supportWebhookURL,
		logger:            logger,
	}
}

// PlaceOrder places the customer's cart. The cart is reloaded from the Order
// Service first; validation failures never reach the place-order call.
func (s *CheckoutService) PlaceOrder(ctx context.Context, customerID string, req PlaceOrderRequest, idem IdempotencyInfo) (*placement.Result, error) {
	if idem.ExistingOrderID != "" {
		order, err := s.orders.OrderDetails(ctx, idem.ExistingOrderID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Replaying placement for idempotency key",
			zap.String("order_id", idem.ExistingOrderID),
			zap.String("idempotency_key", idem.Key),
		)
		return &placement.Result{OrderID: order.OrderID, Order: *order, IdempotencyKey: idem.Key}, nil
	}

	session := s.sessions.Get(customerID)
	if len(session.Cart.Store().Snapshot().Pending) > 0 {
		return nil, ErrCartBusy
	}
	// live quantities and stock, not whatever this process last saw
	if _, err := session.Cart.Load(ctx); err != nil {
		return nil, err
	}
	snapshot := session.Cart.Store().Snapshot()
	if len(snapshot.Pending) > 0 {
		return nil, ErrCartBusy
	}

	result, err := s.engine.Place(ctx, placement.Request{
		CustomerID:      customerID,
		ShippingAddress: req.ShippingAddress.ToDomain(),
		Lines:           selectLines(snapshot.Confirmed, req.LineIDs),
		PaymentMethod:   domain.PaymentMethod(req.PaymentMethod),
		IdempotencyKey:  idem.Key,
	})
	if s.metrics != nil {
		s.metrics.ObservePlacement(req.PaymentMethod, err)
	}
	if err != nil {
		return nil, err
	}

	if idem.Key != "" && idem.RequestHash != "" && s.repos != nil && s.repos.IdempotencyKey != nil {
		key := &domain.IdempotencyKey{
			Key:         idem.Key,
			CustomerID:  customerID,
			OrderID:     result.OrderID,
			RequestHash: idem.RequestHash,
		}
		if err := s.repos.IdempotencyKey.Create(ctx, key); err != nil {
			// the order exists; the Order Service still dedupes on the forwarded key
			s.logger.Warn("Failed to store idempotency key", zap.String("order_id", result.OrderID), zap.Error(err))
		}
	}
	return result, nil
}

func selectLines(lines []domain.CartLine, lineIDs []string) []domain.CartLine {
	if len(lineIDs) == 0 {
		return lines
	}
	wanted := make(map[string]bool, len(lineIDs))
	for _, id := range lineIDs {
		wanted[id] = true
	}
	var out []domain.CartLine
	for _, l := range lines {
		if wanted[l.LineID] {
			out = append(out, l)
		}
	}
	return out
}

// customerOrder loads an order and hides other customers' orders
func (s *CheckoutService) customerOrder(ctx context.Context, customerID, orderID string) (*domain.Order, error) {
	order, err := s.orders.OrderDetails(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != "" && order.CustomerID != customerID {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderID}
	}
	if order.OrderID == "" {
		order.OrderID = orderID
	}
	return order, nil
}

// StartCardPayment creates the payment intent for a placed card order
func (s *CheckoutService) StartCardPayment(ctx context.Context, customerID, orderID string) (payment.Outcome, error) {
	order, err := s.customerOrder(ctx, customerID, orderID)
	if err != nil {
		return payment.Outcome{}, err
	}
	if order.PaymentStatus == domain.PaymentStatusPaid {
		return payment.Outcome{}, &errors.ErrConflict{Message: "order is already paid"}
	}
	out, err := s.payments.StartCard(ctx, customerID, *order)
	s.observePayment("start_card", out.State)
	return out, err
}

// VerifyCardPayment resumes the card flow after the gateway redirect
func (s *CheckoutService) VerifyCardPayment(ctx context.Context, customerID, clientSecret string) (payment.Outcome, error) {
	out, err := s.payments.Verify(ctx, customerID, clientSecret)
	s.observePayment("verify", out.State)
	return out, s.afterCardStep(ctx, customerID, out, err)
}

// ReconcileCardPayment retries recording a card payment that succeeded at the gateway
func (s *CheckoutService) ReconcileCardPayment(ctx context.Context, customerID string) (payment.Outcome, error) {
	out, err := s.payments.Reconcile(ctx, customerID)
	s.observePayment("reconcile", out.State)
	return out, s.afterCardStep(ctx, customerID, out, err)
}

func (s *CheckoutService) afterCardStep(ctx context.Context, customerID string, out payment.Outcome, err error) error {
	var recErr *errors.ErrReconciliation
	if stderrors.As(err, &recErr) {
		go NotifySupport(s.supportWebhookURL, map[string]interface{}{
			"event":             domain.EventReconciliationFailed,
			"customer_id":       customerID,
			"order_id":          recErr.OrderID,
			"payment_intent_id": recErr.PaymentIntentID,
			"error":             recErr.Err.Error(),
		}, s.logger)
		return err
	}
	if err == nil && out.State == payment.StateSucceeded {
		s.clearOrderedLines(ctx, customerID, out.OrderID)
	}
	return err
}

// ConfirmCOD records a cash-on-delivery order's confirmation
func (s *CheckoutService) ConfirmCOD(ctx context.Context, customerID, orderID string) (payment.Outcome, error) {
	order, err := s.customerOrder(ctx, customerID, orderID)
	if err != nil {
		return payment.Outcome{}, err
	}
	if order.PaymentMethod != domain.PaymentMethodCOD {
		return payment.Outcome{}, &errors.ErrValidation{
			Message: "order is not a cash-on-delivery order",
			Fields:  map[string]string{"paymentMethod": string(order.PaymentMethod)},
		}
	}

	out, err := s.payments.ConfirmCOD(ctx, customerID, orderID)
	s.observePayment("confirm_cod", out.State)
	if err != nil {
		return out, err
	}
	s.removeLines(ctx, customerID, order)
	return out, nil
}

// clearOrderedLines removes an order's lines from the cart. Failures are
// logged; the order itself is already confirmed.
func (s *CheckoutService) clearOrderedLines(ctx context.Context, customerID, orderID string) {
	order, err := s.orders.OrderDetails(ctx, orderID)
	if err != nil {
		s.logger.Warn("Failed to load confirmed order for cart cleanup", zap.String("order_id", orderID), zap.Error(err))
		return
	}
	s.removeLines(ctx, customerID, order)
}

func (s *CheckoutService) removeLines(ctx context.Context, customerID string, order *domain.Order) {
	lineIDs := order.LineIDs()
	if len(lineIDs) == 0 {
		return
	}
	if err := s.sessions.Get(customerID).Cart.RemoveLines(ctx, lineIDs); err != nil {
		s.logger.Warn("Failed to remove ordered lines from cart",
			zap.String("order_id", order.OrderID),
			zap.Strings("line_ids", lineIDs),
			zap.Error(err),
		)
	}
}

func (s *CheckoutService) observePayment(operation string, state payment.State) {
	if s.metrics == nil || state == "" {
		return
	}
	s.metrics.ObservePayment(operation, string(state))
}

// PaymentState reports the customer's current payment state
func (s *CheckoutService) PaymentState(customerID string) payment.Outcome {
	return payment.Outcome{State: s.payments.State(customerID)}
}

// RetryCard returns a customer whose card needs replacing to card input
func (s *CheckoutService) RetryCard(customerID string) (payment.Outcome, error) {
	out, err := s.payments.RetryCard(customerID)
	s.observePayment("retry_card", out.State)
	return out, err
}
