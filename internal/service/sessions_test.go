package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/storefront-checkout/internal/domain"
)

func TestSessions_GetReturnsSameSession(t *testing.T) {
	sessions := NewSessions(newFakeOrderService(), nil, nil)

	a := sessions.Get("cust-1")
	b := sessions.Get("cust-1")
	c := sessions.Get("cust-2")
	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, sessions.Len())
}

func TestSessions_EvictIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sessions := NewSessions(newFakeOrderService(), nil, nil)
	sessions.now = func() time.Time { return now }

	var evicted []string
	sessions.OnEvict(func(customerID string) { evicted = append(evicted, customerID) })

	sessions.Get("old")
	now = now.Add(20 * time.Minute)
	sessions.Get("fresh")

	assert.Equal(t, 1, sessions.EvictIdle(15*time.Minute))
	assert.Equal(t, []string{"old"}, evicted)
	assert.Equal(t, 1, sessions.Len())
}

func TestSessions_EvictIdleKeepsInFlightCart(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	orders := newFakeOrderService()
	orders.lines["cust-1"] = []domain.CartLine{cartLine("l1", "s1", 1000, 1)}
	orders.updateGate = make(chan struct{})

	sessions := NewSessions(orders, nil, nil)
	sessions.now = func() time.Time { return now }
	session := sessions.Get("cust-1")
	_, err := session.Cart.Load(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := session.Cart.Increment(context.Background(), "l1")
		done <- err
	}()
	require.Eventually(t, func() bool {
		return len(session.Cart.Store().Snapshot().Pending) == 1
	}, time.Second, 5*time.Millisecond)

	now = now.Add(time.Hour)
	assert.Zero(t, sessions.EvictIdle(time.Minute))

	close(orders.updateGate)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sessions.EvictIdle(time.Minute))
}

type countingProvinces struct {
	calls int
}

func (c *countingProvinces) Provinces(ctx context.Context) ([]domain.Region, error) {
	c.calls++
	return []domain.Region{{Code: "01", Name: "Ha Noi"}}, nil
}

func TestRunHousekeepingLoop_WarmsThenStops(t *testing.T) {
	provinces := &countingProvinces{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a cancelled context still runs the first pass
	RunHousekeepingLoop(ctx, time.Hour, provinces, NewSessions(newFakeOrderService(), nil, nil), time.Minute, nil)
	assert.Equal(t, 1, provinces.calls)
}
