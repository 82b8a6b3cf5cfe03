package cart

import (
	"fmt"
	"sync"
	"time"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

// PendingOp is a speculative quantity change awaiting the server's answer
type PendingOp struct {
	ID          string
	LineID      string
	Delta       int
	BaseVersion uint64
	StartedAt   time.Time
}

// State is the single source of truth for one customer's cart.
// Confirmed holds the last server-confirmed lines; Pending holds at most
// one speculative change per line.
type State struct {
	Version   uint64
	Confirmed []domain.CartLine
	Pending   map[string]PendingOp
}

// Line returns the confirmed line with the given id
func (s State) Line(lineID string) (domain.CartLine, bool) {
	for _, l := range s.Confirmed {
		if l.LineID == lineID {
			return l, true
		}
	}
	return domain.CartLine{}, false
}

// Lines returns the optimistic lines: confirmed quantities plus pending deltas
func (s State) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(s.Confirmed))
	copy(out, s.Confirmed)
	for i := range out {
		if op, ok := s.Pending[out[i].LineID]; ok {
			out[i].Quantity += op.Delta
		}
	}
	return out
}

// View groups the optimistic lines. The summary is always computed from
// the confirmed lines, never from pending changes.
func (s State) View() View {
	view := Aggregate(s.Lines())
	view.Summary = s.Summary()
	return view
}

// Summary is computed from the confirmed snapshot only
func (s State) Summary() domain.CartSummary {
	return Summarize(s.Confirmed)
}

// Action is an input to Reduce
type Action interface {
	actionName() string
}

// Loaded replaces the confirmed lines with a fresh server copy
type Loaded struct {
	Lines []domain.CartLine
}

// MutationStarted applies a speculative delta to one line
type MutationStarted struct {
	Op PendingOp
}

// MutationConfirmed commits a pending op with the line the server returned
type MutationConfirmed struct {
	OpID   string
	LineID string
	Line   domain.CartLine
}

// MutationRejected drops a pending op, reverting to the confirmed line
type MutationRejected struct {
	OpID   string
	LineID string
}

// LineRemoved deletes a line from the cart
type LineRemoved struct {
	LineID string
}

func (Loaded) actionName() string            { return "loaded" }
func (MutationStarted) actionName() string   { return "mutation_started" }
func (MutationConfirmed) actionName() string { return "mutation_confirmed" }
func (MutationRejected) actionName() string  { return "mutation_rejected" }
func (LineRemoved) actionName() string       { return "line_removed" }

// ErrMutationInFlight is returned when a line already has a pending change
var ErrMutationInFlight = &errors.ErrConflict{Message: "another quantity change for this line is still in flight"}

// Reduce is the pure transition function of the cart store. It never
// modifies s; the returned state shares nothing mutable with it.
func Reduce(s State, action Action) (State, error) {
	next := State{
		Version:   s.Version,
		Confirmed: make([]domain.CartLine, len(s.Confirmed)),
		Pending:   make(map[string]PendingOp, len(s.Pending)),
	}
	copy(next.Confirmed, s.Confirmed)
	for k, v := range s.Pending {
		next.Pending[k] = v
	}

	switch a := action.(type) {
	case Loaded:
		next.Confirmed = make([]domain.CartLine, len(a.Lines))
		copy(next.Confirmed, a.Lines)
		for lineID := range next.Pending {
			if _, ok := next.Line(lineID); !ok {
				delete(next.Pending, lineID)
			}
		}
		next.Version++

	case MutationStarted:
		if _, busy := next.Pending[a.Op.LineID]; busy {
			return s, ErrMutationInFlight
		}
		line, ok := next.Line(a.Op.LineID)
		if !ok {
			return s, &errors.ErrNotFound{Resource: "cart line", ID: a.Op.LineID}
		}
		if err := checkDelta(line, a.Op.Delta); err != nil {
			return s, err
		}
		next.Pending[a.Op.LineID] = a.Op

	case MutationConfirmed:
		op, ok := next.Pending[a.LineID]
		if !ok || op.ID != a.OpID {
			return s, fmt.Errorf("confirm: unknown pending op %s for line %s", a.OpID, a.LineID)
		}
		delete(next.Pending, a.LineID)
		for i := range next.Confirmed {
			if next.Confirmed[i].LineID == a.LineID {
				next.Confirmed[i] = a.Line
				break
			}
		}
		next.Version++

	case MutationRejected:
		op, ok := next.Pending[a.LineID]
		if !ok || op.ID != a.OpID {
			return s, fmt.Errorf("reject: unknown pending op %s for line %s", a.OpID, a.LineID)
		}
		delete(next.Pending, a.LineID)

	case LineRemoved:
		kept := next.Confirmed[:0]
		for _, l := range next.Confirmed {
			if l.LineID != a.LineID {
				kept = append(kept, l)
			}
		}
		next.Confirmed = kept
		delete(next.Pending, a.LineID)
		next.Version++

	default:
		return s, fmt.Errorf("unknown cart action %T", action)
	}

	return next, nil
}

// CheckIncrement rejects an increment that would exceed stock
func CheckIncrement(line domain.CartLine) error {
	return checkDelta(line, 1)
}

// CheckDecrement rejects a decrement below 1. Reaching zero needs an explicit delete.
func CheckDecrement(line domain.CartLine) error {
	return checkDelta(line, -1)
}

func checkDelta(line domain.CartLine, delta int) error {
	target := line.Quantity + delta
	if delta > 0 && target > line.StockAvailable {
		return &errors.ErrStockConflict{LineID: line.LineID, Op: "increment", Quantity: line.Quantity, Stock: line.StockAvailable}
	}
	if delta < 0 && target < 1 {
		return &errors.ErrStockConflict{LineID: line.LineID, Op: "decrement", Quantity: line.Quantity, Stock: line.StockAvailable}
	}
	return nil
}

// Store holds a State and publishes every change to its subscribers
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextSubID   int
}

// NewStore creates an empty cart store
func NewStore() *Store {
	return &Store{
		state:       State{Pending: map[string]PendingOp{}},
		subscribers: make(map[int]func(State)),
	}
}

// Snapshot returns the current state
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies an action and notifies subscribers on success.
// Subscribers run on the caller's goroutine after the lock is released.
func (s *Store) Dispatch(action Action) (State, error) {
	s.mu.Lock()
	next, err := Reduce(s.state, action)
	if err != nil {
		current := s.state
		s.mu.Unlock()
		return current, err
	}
	s.state = next
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next, nil
}

// Subscribe registers fn for state changes and returns a func that removes it
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}
