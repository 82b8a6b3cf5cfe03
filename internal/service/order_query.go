package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// OrderReader is the read side of the Order Service
type OrderReader interface {
	ListOrders(ctx context.Context, customerID, status string) ([]domain.Order, error)
	OrderDetails(ctx context.Context, orderID string) (*domain.Order, error)
	DeliveryStatuses(ctx context.Context) (map[string]string, error)
	PaymentStatuses(ctx context.Context) (map[string]string, error)
}

// OrderView is an order with display labels for its status codes
type OrderView struct {
	domain.Order
	DeliveryStatusLabel string         `json:"deliveryStatusLabel"`
	PaymentStatusLabel  string         `json:"paymentStatusLabel"`
	SubOrderLabels      []StatusLabels `json:"subOrderLabels,omitempty"`
}

// StatusLabels are the labels of one suborder
type StatusLabels struct {
	ShopID              string `json:"shopId"`
	DeliveryStatusLabel string `json:"deliveryStatusLabel"`
	PaymentStatusLabel  string `json:"paymentStatusLabel"`
}

// OrderQueryService serves the read-only order list and detail views
type OrderQueryService struct {
	orders OrderReader
	logger *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	vocab *domain.StatusVocabulary
}

// NewOrderQueryService creates a new order query service
func NewOrderQueryService(orders OrderReader, logger *zap.Logger) *OrderQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderQueryService{orders: orders, logger: logger}
}

// Vocabulary returns the status label tables. They are fetched once; a
// failed fetch is not cached.
func (s *OrderQueryService) Vocabulary(ctx context.Context) (domain.StatusVocabulary, error) {
	s.mu.RLock()
	cached := s.vocab
	s.mu.RUnlock()
	if cached != nil {
		return *cached, nil
	}

	v, err, _ := s.group.Do("vocabulary", func() (interface{}, error) {
		var vocab domain.StatusVocabulary
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			m, err := s.orders.DeliveryStatuses(gctx)
			vocab.DeliveryStatuses = m
			return err
		})
		g.Go(func() error {
			m, err := s.orders.PaymentStatuses(gctx)
			vocab.PaymentStatuses = m
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.vocab = &vocab
		s.mu.Unlock()
		return vocab, nil
	})
	if err != nil {
		return domain.StatusVocabulary{}, err
	}
	return v.(domain.StatusVocabulary), nil
}

// labels returns the vocabulary or an empty one, in which case raw codes are shown
func (s *OrderQueryService) labels(ctx context.Context) domain.StatusVocabulary {
	vocab, err := s.Vocabulary(ctx)
	if err != nil {
		s.logger.Warn("Status vocabulary unavailable, showing raw codes", zap.Error(err))
	}
	return vocab
}

// ListOrders lists a customer's orders, optionally filtered by delivery status
func (s *OrderQueryService) ListOrders(ctx context.Context, customerID, status string) ([]OrderView, error) {
	if status != "" && !domain.DeliveryStatus(status).IsValid() {
		return nil, &errors.ErrValidation{Message: "unknown delivery status", Fields: map[string]string{"status": status}}
	}
	orders, err := s.orders.ListOrders(ctx, customerID, status)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.String("customer_id", customerID), zap.Error(err))
		return nil, err
	}

	vocab := s.labels(ctx)
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o, vocab))
	}
	return views, nil
}

// GetOrder returns one of the customer's orders. Another customer's order is
// reported as not found.
func (s *OrderQueryService) GetOrder(ctx context.Context, customerID, orderID string) (*OrderView, error) {
	order, err := s.orders.OrderDetails(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if customerID != "" && order.CustomerID != "" && order.CustomerID != customerID {
		return nil, &errors.ErrNotFound{Resource: "order", ID: orderID}
	}
	view := newOrderView(*order, s.labels(ctx))
	return &view, nil
}

func newOrderView(o domain.Order, vocab domain.StatusVocabulary) OrderView {
	view := OrderView{
		Order:               o,
		DeliveryStatusLabel: vocab.DeliveryLabel(o.DeliveryStatus),
		PaymentStatusLabel:  vocab.PaymentLabel(o.PaymentStatus),
	}
	for _, so := range o.SubOrders {
		view.SubOrderLabels = append(view.SubOrderLabels, StatusLabels{
			ShopID:              so.ShopID,
			DeliveryStatusLabel: vocab.DeliveryLabel(so.DeliveryStatus),
			PaymentStatusLabel:  vocab.PaymentLabel(so.PaymentStatus),
		})
	}
	return view
}
