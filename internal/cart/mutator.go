package cart

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// Backend is the server side of the cart
type Backend interface {
	CartLines(ctx context.Context, customerID string) ([]domain.CartLine, error)
	UpdateLineQuantity(ctx context.Context, customerID, lineID string, quantity int) (domain.CartLine, error)
	RemoveLine(ctx context.Context, customerID, lineID string) error
}

// Mutator drives optimistic quantity changes for one customer's cart.
// A change is applied to the store as a pending op first, then committed
// or rolled back once the backend answers.
type Mutator struct {
	customerID string
	store      *Store
	backend    Backend
	logger     *zap.Logger
}

// NewMutator creates a mutator bound to a store and backend
func NewMutator(customerID string, store *Store, backend Backend, logger *zap.Logger) *Mutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{
		customerID: customerID,
		store:      store,
		backend:    backend,
		logger:     logger.With(zap.String("customer_id", customerID)),
	}
}

// Store returns the store the mutator writes to
func (m *Mutator) Store() *Store {
	return m.store
}

// Load replaces the cart with the server's copy
func (m *Mutator) Load(ctx context.Context) (View, error) {
	lines, err := m.backend.CartLines(ctx, m.customerID)
	if err != nil {
		m.logger.Warn("Failed to load cart", zap.Error(err))
		return View{}, err
	}
	state, err := m.store.Dispatch(Loaded{Lines: lines})
	if err != nil {
		return View{}, err
	}
	return state.View(), nil
}

// Increment adds one to a line's quantity
func (m *Mutator) Increment(ctx context.Context, lineID string) (domain.CartLine, error) {
	return m.mutate(ctx, lineID, 1)
}

// Decrement removes one from a line's quantity
func (m *Mutator) Decrement(ctx context.Context, lineID string) (domain.CartLine, error) {
	return m.mutate(ctx, lineID, -1)
}

func (m *Mutator) mutate(ctx context.Context, lineID string, delta int) (domain.CartLine, error) {
	op := PendingOp{
		ID:        uuid.NewString(),
		LineID:    lineID,
		Delta:     delta,
		StartedAt: time.Now(),
	}
	op.BaseVersion = m.store.Snapshot().Version

	// stock bounds and the one-op-per-line rule are enforced by Reduce
	state, err := m.store.Dispatch(MutationStarted{Op: op})
	if err != nil {
		return domain.CartLine{}, err
	}
	line, _ := state.Line(lineID)
	target := line.Quantity + delta

	updated, err := m.backend.UpdateLineQuantity(ctx, m.customerID, lineID, target)
	if err != nil {
		if _, rbErr := m.store.Dispatch(MutationRejected{OpID: op.ID, LineID: lineID}); rbErr != nil {
			m.logger.Error("Failed to roll back cart mutation", zap.String("line_id", lineID), zap.Error(rbErr))
		}
		m.logger.Warn("Cart mutation rejected, rolled back",
			zap.String("line_id", lineID),
			zap.Int("target_quantity", target),
			zap.Error(err),
		)
		return domain.CartLine{}, err
	}

	if _, err := m.store.Dispatch(MutationConfirmed{OpID: op.ID, LineID: lineID, Line: updated}); err != nil {
		m.logger.Error("Failed to commit cart mutation", zap.String("line_id", lineID), zap.Error(err))
		return domain.CartLine{}, err
	}
	return updated, nil
}

// Remove deletes a line. A line with a change in flight cannot be removed.
func (m *Mutator) Remove(ctx context.Context, lineID string) error {
	state := m.store.Snapshot()
	if _, busy := state.Pending[lineID]; busy {
		return ErrMutationInFlight
	}
	if _, ok := state.Line(lineID); !ok {
		return &errors.ErrNotFound{Resource: "cart line", ID: lineID}
	}
	if err := m.backend.RemoveLine(ctx, m.customerID, lineID); err != nil {
		m.logger.Warn("Failed to remove cart line", zap.String("line_id", lineID), zap.Error(err))
		return err
	}
	_, err := m.store.Dispatch(LineRemoved{LineID: lineID})
	return err
}

// RemoveLines deletes several lines, used once an order is confirmed.
// It keeps going after a failure and returns all errors joined.
func (m *Mutator) RemoveLines(ctx context.Context, lineIDs []string) error {
	var errs []error
	for _, lineID := range lineIDs {
		if err := m.backend.RemoveLine(ctx, m.customerID, lineID); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := m.store.Dispatch(LineRemoved{LineID: lineID}); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
