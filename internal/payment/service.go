package payment

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jafarshop/storefront-checkout/internal/continuation"
	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// OrderConfirmer records payment outcomes on the Order Service
type OrderConfirmer interface {
	ConfirmCOD(ctx context.Context, orderID string) error
	ConfirmCard(ctx context.Context, orderID, paymentIntentID string) error
}

// EventRecorder stores checkout audit events
type EventRecorder interface {
	Create(ctx context.Context, event *domain.CheckoutEvent) error
}

// Outcome is what a payment step reports back to the storefront
type Outcome struct {
	State            State  `json:"state"`
	OrderID          string `json:"orderId,omitempty"`
	PaymentIntentID  string `json:"paymentIntentId,omitempty"`
	ClientSecret     string `json:"clientSecret,omitempty"`
	AmountMinorUnits int64  `json:"amountMinorUnits,omitempty"`
	Currency         string `json:"currency,omitempty"`
	Message          string `json:"message,omitempty"`
	ContactSupport   bool   `json:"contactSupport,omitempty"`
}

// Service drives card and cash-on-delivery confirmation
type Service struct {
	gateway   Gateway
	orders    OrderConfirmer
	store     continuation.Store
	events    EventRecorder
	converter Converter
	logger    *zap.Logger

	mu       sync.Mutex
	machines map[string]*Machine
	verify   singleflight.Group
}

// NewService creates a payment service. events may be nil.
func NewService(gateway Gateway, orders OrderConfirmer, store continuation.Store, events EventRecorder, converter Converter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:   gateway,
		orders:    orders,
		store:     store,
		events:    events,
		converter: converter,
		logger:    logger,
		machines:  make(map[string]*Machine),
	}
}

// State returns the session's current machine state
func (s *Service) State(sessionID string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.machines[sessionID]; ok {
		return m.State()
	}
	return StateIdle
}

// fire applies an event to the session's machine under the service lock
func (s *Service) fire(sessionID string, event Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[sessionID]
	if !ok {
		m = NewMachine()
		s.machines[sessionID] = m
	}
	if err := m.Fire(event); err != nil {
		return m.State(), err
	}
	return m.State(), nil
}

// reset starts a new attempt for the session
func (s *Service) reset(sessionID string) {
	s.mu.Lock()
	s.machines[sessionID] = NewMachine()
	s.mu.Unlock()
}

// StartCard creates a payment intent for a placed card order and stores the
// continuation before the browser leaves for the gateway widget.
func (s *Service) StartCard(ctx context.Context, sessionID string, order domain.Order) (Outcome, error) {
	if strings.TrimSpace(order.OrderID) == "" {
		return Outcome{}, &errors.ErrValidation{Message: "order id is required", Fields: map[string]string{"orderId": "required"}}
	}
	if order.PaymentMethod != domain.PaymentMethodCard {
		return Outcome{}, &errors.ErrValidation{Message: "order is not a card order", Fields: map[string]string{"paymentMethod": string(order.PaymentMethod)}}
	}
	amount := s.converter.ToMinorUnits(order.TotalPrice)
	if amount <= 0 {
		return Outcome{}, &errors.ErrValidation{Message: "order amount is too small to charge", Fields: map[string]string{"totalPrice": "must be positive"}}
	}

	if err := s.checkUnreconciled(ctx, sessionID, order.OrderID); err != nil {
		return Outcome{State: s.State(sessionID)}, err
	}

	s.reset(sessionID)
	if _, err := s.fire(sessionID, EventStartCard); err != nil {
		return Outcome{}, err
	}

	intent, err := s.gateway.CreateIntent(ctx, IntentRequest{
		OrderID:          order.OrderID,
		AmountMinorUnits: amount,
		Currency:         s.converter.Currency,
		IdempotencyKey:   "intent-" + order.OrderID,
	})
	if err != nil {
		state, _ := s.fire(sessionID, EventIntentFailed)
		s.logger.Error("Failed to create payment intent",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
		return Outcome{State: state, OrderID: order.OrderID, Message: err.Error()}, err
	}

	token := continuation.Token{OrderID: order.OrderID, PaymentIntentID: intent.ID}
	if err := s.store.Save(ctx, sessionID, token); err != nil {
		state, _ := s.fire(sessionID, EventIntentFailed)
		s.logger.Error("Failed to store checkout continuation",
			zap.String("order_id", order.OrderID),
			zap.String("payment_intent_id", intent.ID),
			zap.Error(err),
		)
		return Outcome{State: state, OrderID: order.OrderID}, fmt.Errorf("store continuation: %w", err)
	}

	state, err := s.fire(sessionID, EventIntentCreated)
	if err != nil {
		return Outcome{}, err
	}
	s.record(ctx, order.OrderID, order.CustomerID, domain.EventIntentCreated, map[string]interface{}{
		"payment_intent_id":  intent.ID,
		"amount_minor_units": amount,
		"currency":           s.converter.Currency,
	})

	return Outcome{
		State:            state,
		OrderID:          order.OrderID,
		PaymentIntentID:  intent.ID,
		ClientSecret:     intent.ClientSecret,
		AmountMinorUnits: amount,
		Currency:         s.converter.Currency,
	}, nil
}

// checkUnreconciled refuses to replace the continuation of another order
// whose card was charged but never recorded. Reconcile needs that token.
func (s *Service) checkUnreconciled(ctx context.Context, sessionID, orderID string) error {
	token, err := s.store.Load(ctx, sessionID)
	if err != nil {
		var notFound *errors.ErrNotFound
		if stderrors.As(err, &notFound) {
			return nil
		}
		return err
	}
	if token.OrderID == orderID || token.PaymentIntentID == "" {
		return nil
	}

	intent, err := s.gateway.GetIntent(ctx, token.PaymentIntentID)
	if err != nil {
		return err
	}
	if intent.Status != GatewayStatusSucceeded {
		return nil
	}
	s.logger.Warn("Card payment started while an earlier charge is unreconciled",
		zap.String("session_id", sessionID),
		zap.String("order_id", orderID),
		zap.String("unreconciled_order_id", token.OrderID),
		zap.String("payment_intent_id", token.PaymentIntentID),
	)
	return &errors.ErrConflict{Message: fmt.Sprintf("order %s was charged but not recorded, reconcile the previous payment first", token.OrderID)}
}

// CardDeclined reports a decline seen by the gateway widget. The machine
// goes back to awaiting card input with the gateway's message.
func (s *Service) CardDeclined(sessionID string, declined *errors.ErrGateway) (Outcome, error) {
	state, err := s.fire(sessionID, EventCardDeclined)
	if err != nil {
		return Outcome{State: state}, err
	}
	return Outcome{State: state, Message: declined.Message}, nil
}

// RetryCard moves a session that needs a new payment method back to card input
func (s *Service) RetryCard(sessionID string) (Outcome, error) {
	state, err := s.fire(sessionID, EventRetryCard)
	return Outcome{State: state}, err
}

// Verify resumes a card checkout after the gateway redirect. Concurrent
// calls for one session share a single gateway lookup and confirmation.
func (s *Service) Verify(ctx context.Context, sessionID, clientSecret string) (Outcome, error) {
	if strings.TrimSpace(clientSecret) == "" {
		return Outcome{}, &errors.ErrValidation{Message: "client secret is required", Fields: map[string]string{"clientSecret": "required"}}
	}
	v, err, _ := s.verify.Do(sessionID, func() (interface{}, error) {
		return s.doVerify(ctx, sessionID, clientSecret)
	})
	outcome, _ := v.(Outcome)
	return outcome, err
}

func (s *Service) doVerify(ctx context.Context, sessionID, clientSecret string) (Outcome, error) {
	token, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Outcome{State: s.State(sessionID)}, err
	}

	state, err := s.fire(sessionID, EventRedirectReturned)
	if err != nil {
		return Outcome{State: state, OrderID: token.OrderID}, err
	}

	intent, err := s.gateway.RetrieveIntent(ctx, clientSecret)
	if err != nil {
		var declined *errors.ErrGateway
		if stderrors.As(err, &declined) {
			state, _ = s.fire(sessionID, EventCardDeclined)
			return Outcome{State: state, OrderID: token.OrderID, Message: declined.Message}, err
		}
		// transport problems leave the machine verifying; the keys stay for a retry
		s.logger.Warn("Failed to retrieve payment intent",
			zap.String("order_id", token.OrderID),
			zap.Error(err),
		)
		return Outcome{State: state, OrderID: token.OrderID}, err
	}
	if token.PaymentIntentID != "" && intent.ID != token.PaymentIntentID {
		return Outcome{State: state, OrderID: token.OrderID}, &errors.ErrValidation{
			Message: "payment intent does not belong to this checkout",
			Fields:  map[string]string{"clientSecret": "mismatch"},
		}
	}
	token.PaymentIntentID = intent.ID

	state, err = s.fire(sessionID, EventForGatewayStatus(intent.Status))
	if err != nil {
		return Outcome{State: state, OrderID: token.OrderID}, err
	}
	out := Outcome{
		State:            state,
		OrderID:          token.OrderID,
		PaymentIntentID:  intent.ID,
		AmountMinorUnits: intent.AmountMinorUnits,
		Currency:         intent.Currency,
	}

	switch state {
	case StateSucceeded:
		return s.confirmCard(ctx, sessionID, token, out)
	case StateFailed:
		if err := s.store.Clear(ctx, sessionID); err != nil {
			s.logger.Error("Failed to clear checkout continuation", zap.String("session_id", sessionID), zap.Error(err))
		}
		s.record(ctx, token.OrderID, "", domain.EventPaymentVerified, map[string]interface{}{
			"payment_intent_id": intent.ID,
			"status":            intent.Status,
		})
		out.Message = "payment failed"
		return out, nil
	default:
		// processing and requires_payment_method keep the continuation as is
		return out, nil
	}
}

// confirmCard marks the order paid. A failure here means money moved but the
// order was not updated.
func (s *Service) confirmCard(ctx context.Context, sessionID string, token continuation.Token, out Outcome) (Outcome, error) {
	if err := s.orders.ConfirmCard(ctx, token.OrderID, token.PaymentIntentID); err != nil {
		recErr := &errors.ErrReconciliation{OrderID: token.OrderID, PaymentIntentID: token.PaymentIntentID, Err: err}
		s.logger.Error("Payment succeeded but order could not be updated",
			zap.String("order_id", token.OrderID),
			zap.String("payment_intent_id", token.PaymentIntentID),
			zap.Error(err),
		)
		s.record(ctx, token.OrderID, "", domain.EventReconciliationFailed, map[string]interface{}{
			"payment_intent_id": token.PaymentIntentID,
			"error":             err.Error(),
		})
		out.ContactSupport = true
		out.Message = "payment received but the order could not be updated, please contact support"
		return out, recErr
	}

	if err := s.store.Clear(ctx, sessionID); err != nil {
		s.logger.Error("Failed to clear checkout continuation", zap.String("session_id", sessionID), zap.Error(err))
	}
	s.record(ctx, token.OrderID, "", domain.EventPaymentVerified, map[string]interface{}{
		"payment_intent_id": token.PaymentIntentID,
		"status":            GatewayStatusSucceeded,
	})
	s.logger.Info("Card payment confirmed",
		zap.String("order_id", token.OrderID),
		zap.String("payment_intent_id", token.PaymentIntentID),
	)
	return out, nil
}

// Reconcile retries recording a succeeded card payment for the session's
// stored continuation. It only confirms when the gateway still reports success.
func (s *Service) Reconcile(ctx context.Context, sessionID string) (Outcome, error) {
	v, err, _ := s.verify.Do(sessionID, func() (interface{}, error) {
		token, err := s.store.Load(ctx, sessionID)
		if err != nil {
			return Outcome{State: s.State(sessionID)}, err
		}
		if token.PaymentIntentID == "" {
			return Outcome{State: s.State(sessionID), OrderID: token.OrderID}, &errors.ErrValidation{
				Message: "no payment intent to reconcile",
				Fields:  map[string]string{continuation.KeyPaymentIntentID: "required"},
			}
		}
		intent, err := s.gateway.GetIntent(ctx, token.PaymentIntentID)
		if err != nil {
			return Outcome{State: s.State(sessionID), OrderID: token.OrderID}, err
		}
		out := Outcome{
			State:            s.State(sessionID),
			OrderID:          token.OrderID,
			PaymentIntentID:  intent.ID,
			AmountMinorUnits: intent.AmountMinorUnits,
			Currency:         intent.Currency,
		}
		if intent.Status != GatewayStatusSucceeded {
			return out, &errors.ErrConflict{Message: fmt.Sprintf("payment intent is %s, nothing to reconcile", intent.Status)}
		}
		out.State = StateSucceeded
		out, err = s.confirmCard(ctx, sessionID, token, out)
		if err == nil {
			s.record(ctx, token.OrderID, "", domain.EventPaymentReconciled, map[string]interface{}{
				"payment_intent_id": token.PaymentIntentID,
			})
		}
		return out, err
	})
	outcome, _ := v.(Outcome)
	return outcome, err
}

// ConfirmCOD records the customer's intent to pay on delivery. No money has
// moved, so the order's payment status stays pending on the Order Service.
func (s *Service) ConfirmCOD(ctx context.Context, sessionID, orderID string) (Outcome, error) {
	if strings.TrimSpace(orderID) == "" {
		return Outcome{}, &errors.ErrValidation{Message: "order id is required", Fields: map[string]string{"orderId": "required"}}
	}
	s.reset(sessionID)
	state, err := s.fire(sessionID, EventConfirmCOD)
	if err != nil {
		return Outcome{State: state}, err
	}

	if err := s.orders.ConfirmCOD(ctx, orderID); err != nil {
		state, _ = s.fire(sessionID, EventCODFailed)
		s.logger.Error("Failed to confirm COD order", zap.String("order_id", orderID), zap.Error(err))
		s.record(ctx, orderID, "", domain.EventCODFailed, map[string]interface{}{"error": err.Error()})
		return Outcome{State: state, OrderID: orderID}, err
	}

	state, err = s.fire(sessionID, EventCODConfirmed)
	if err != nil {
		return Outcome{State: state, OrderID: orderID}, err
	}
	s.record(ctx, orderID, "", domain.EventCODConfirmed, nil)
	return Outcome{State: state, OrderID: orderID}, nil
}

// Forget drops the in-memory machine of a session
func (s *Service) Forget(sessionID string) {
	s.mu.Lock()
	delete(s.machines, sessionID)
	s.mu.Unlock()
}

func (s *Service) record(ctx context.Context, orderID, customerID, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	event := &domain.CheckoutEvent{
		ID:         uuid.New(),
		OrderID:    orderID,
		CustomerID: customerID,
		EventType:  eventType,
		EventData:  data,
		CreatedAt:  time.Now(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Warn("Failed to record checkout event",
			zap.String("order_id", orderID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
