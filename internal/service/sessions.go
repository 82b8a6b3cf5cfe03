package service

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jafarshop/storefront-checkout/internal/address"
	"github.com/jafarshop/storefront-checkout/internal/cart"
)

// Session is the server-held checkout state of one customer
type Session struct {
	CustomerID string
	Cart       *cart.Mutator
	Address    *address.Resolver

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Sessions creates and keeps per-customer sessions
type Sessions struct {
	backend   cart.Backend
	directory address.Directory
	logger    *zap.Logger
	now       func() time.Time
	onEvict   func(customerID string)

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions creates an empty registry
func NewSessions(backend cart.Backend, directory address.Directory, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		backend:   backend,
		directory: directory,
		logger:    logger,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// OnEvict registers fn to run for every evicted session
func (r *Sessions) OnEvict(fn func(customerID string)) {
	r.mu.Lock()
	r.onEvict = fn
	r.mu.Unlock()
}

// Get returns the customer's session, creating it on first use
func (r *Sessions) Get(customerID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if s, ok := r.sessions[customerID]; ok {
		s.touch(now)
		return s
	}
	s := &Session{
		CustomerID: customerID,
		Cart:       cart.NewMutator(customerID, cart.NewStore(), r.backend, r.logger),
		Address:    address.NewResolver(r.directory, r.logger.With(zap.String("customer_id", customerID))),
		lastSeen:   now,
	}
	r.sessions[customerID] = s
	return s
}

// Len reports the number of live sessions
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle drops sessions unused for longer than maxIdle. Sessions with a
// cart change in flight are kept.
func (r *Sessions) EvictIdle(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0
	for id, s := range r.sessions {
		if s.idleSince(now) < maxIdle {
			continue
		}
		if len(s.Cart.Store().Snapshot().Pending) > 0 {
			continue
		}
		delete(r.sessions, id)
		if r.onEvict != nil {
			r.onEvict(id)
		}
		evicted++
	}
	if evicted > 0 {
		r.logger.Info("Evicted idle checkout sessions", zap.Int("evicted", evicted), zap.Int("remaining", len(r.sessions)))
	}
	return evicted
}
