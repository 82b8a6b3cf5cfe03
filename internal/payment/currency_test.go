package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverter_SameCurrency(t *testing.T) {
	c, err := NewConverter("VND", 0, "1")
	require.NoError(t, err)
	assert.Equal(t, "vnd", c.Currency)
	assert.Equal(t, int64(400000), c.ToMinorUnits(400000))
}

func TestConverter_TruncatesTowardZero(t *testing.T) {
	// 25000 VND per USD, cents
	c, err := NewConverter("usd", 2, "25000")
	require.NoError(t, err)

	assert.Equal(t, int64(1600), c.ToMinorUnits(400000))
	// 400249 / 25000 * 100 = 1600.996
	assert.Equal(t, int64(1600), c.ToMinorUnits(400249))
	// 249 / 25000 * 100 = 0.996
	assert.Equal(t, int64(0), c.ToMinorUnits(249))
}

func TestConverter_NeverExceedsOrderTotal(t *testing.T) {
	c, err := NewConverter("usd", 2, "24350.5")
	require.NoError(t, err)
	for _, amount := range []int64{1, 99999, 360000, 540000, 1234567} {
		minor := c.ToMinorUnits(amount)
		backInBase := float64(minor) / 100 * 24350.5
		assert.LessOrEqual(t, backInBase, float64(amount), "amount %d", amount)
	}
}

func TestNewConverter_Invalid(t *testing.T) {
	_, err := NewConverter("", 0, "1")
	assert.Error(t, err)
	_, err = NewConverter("usd", -1, "1")
	assert.Error(t, err)
	_, err = NewConverter("usd", 2, "abc")
	assert.Error(t, err)
	_, err = NewConverter("usd", 2, "0")
	assert.Error(t, err)
}
