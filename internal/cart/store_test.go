package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jafarshop/storefront-checkout/internal/domain"
	"github.com/jafarshop/storefront-checkout/pkg/errors"
)

func loadedState(t *testing.T, lines ...domain.CartLine) State {
	t.Helper()
	s, err := Reduce(State{}, Loaded{Lines: lines})
	require.NoError(t, err)
	return s
}

func TestReduce_IncrementAtStockRejected(t *testing.T) {
	s := loadedState(t, line("l1", "s1", 1000, 0, 3, 3))

	_, err := Reduce(s, MutationStarted{Op: PendingOp{ID: "op1", LineID: "l1", Delta: 1}})

	var stockErr *errors.ErrStockConflict
	require.ErrorAs(t, err, &stockErr)
	l, _ := s.Line("l1")
	assert.Equal(t, 3, l.Quantity)
	assert.Empty(t, s.Pending)
}

func TestReduce_DecrementAtOneRejected(t *testing.T) {
	s := loadedState(t, line("l1", "s1", 1000, 0, 1, 3))

	_, err := Reduce(s, MutationStarted{Op: PendingOp{ID: "op1", LineID: "l1", Delta: -1}})

	var stockErr *errors.ErrStockConflict
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "decrement", stockErr.Op)
}

func TestReduce_DoesNotModifyInput(t *testing.T) {
	s := loadedState(t, line("l1", "s1", 1000, 0, 1, 3))

	next, err := Reduce(s, MutationStarted{Op: PendingOp{ID: "op1", LineID: "l1", Delta: 1}})
	require.NoError(t, err)

	assert.Empty(t, s.Pending)
	assert.Len(t, next.Pending, 1)
}

func TestReduce_OneOpPerLine(t *testing.T) {
	s := loadedState(t, line("l1", "s1", 1000, 0, 1, 3))
	s, err := Reduce(s, MutationStarted{Op: PendingOp{ID: "op1", LineID: "l1", Delta: 1}})
	require.NoError(t, err)

	_, err = Reduce(s, MutationStarted{Op: PendingOp{ID: "op2", LineID: "l1", Delta: 1}})
	assert.ErrorIs(t, err, ErrMutationInFlight)
}

func TestReduce_ConfirmAndRollback(t *testing.T) {
	s := loadedState(t, line("l1", "s1", 1000, 0, 1, 3))
	v0 := s.Version

	s, err := Reduce(s, MutationStarted{Op: PendingOp{ID: "op1", LineID: "l1", Delta: 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Lines()[0].Quantity)
	// summary stays on the confirmed snapshot while the op is pending
	assert.Equal(t, int64(1000), s.Summary().TotalPrice)

	rolledBack, err := Reduce(s, MutationRejected{OpID: "op1", LineID: "l1"})
	require.NoError(t, err)
	assert.Equal(t, 1, rolledBack.Lines()[0].Quantity)
	assert.Equal(t, v0, rolledBack.Version)

	confirmed, err := Reduce(s, MutationConfirmed{OpID: "op1", LineID: "l1", Line: line("l1", "s1", 1000, 0, 2, 3)})
	require.NoError(t, err)
	assert.Equal(t, 2, confirmed.Lines()[0].Quantity)
	assert.Equal(t, int64(2000), confirmed.Summary().TotalPrice)
	assert.Equal(t, v0+1, confirmed.Version)
}

func TestReduce_ConfirmUnknownOp(t *testing.T) {
	s := loadedState(t, line("l1", "s1", 1000, 0, 1, 3))
	s, err := Reduce(s, MutationStarted{Op: PendingOp{ID: "op1", LineID: "l1", Delta: 1}})
	require.NoError(t, err)

	_, err = Reduce(s, MutationConfirmed{OpID: "other", LineID: "l1"})
	assert.Error(t, err)
}

func TestReduce_RemovingLastLineCollapsesGroup(t *testing.T) {
	s := loadedState(t,
		line("l1", "s1", 1000, 0, 1, 3),
		line("l2", "s2", 1000, 0, 1, 3),
	)
	require.Len(t, s.View().Groups, 2)

	s, err := Reduce(s, LineRemoved{LineID: "l2"})
	require.NoError(t, err)

	view := s.View()
	require.Len(t, view.Groups, 1)
	assert.Equal(t, "s1", view.Groups[0].ShopID)
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	store := NewStore()
	var seen []uint64
	unsubscribe := store.Subscribe(func(s State) {
		seen = append(seen, s.Version)
	})

	_, err := store.Dispatch(Loaded{Lines: []domain.CartLine{line("l1", "s1", 1000, 0, 1, 3)}})
	require.NoError(t, err)

	// rejected actions do not notify
	_, err = store.Dispatch(MutationStarted{Op: PendingOp{ID: "op1", LineID: "l1", Delta: -1}})
	require.Error(t, err)

	unsubscribe()
	_, err = store.Dispatch(LineRemoved{LineID: "l1"})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1}, seen)
	assert.Equal(t, uint64(2), store.Snapshot().Version)
}
