package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveStock(t *testing.T) {
	p := NewProduct("p1", "widget", decimal.RequireFromString("9.99"), 10)

	require.NoError(t, p.ReserveStock(4))
	assert.Equal(t, 6, p.StockQuantity)

	// Exactly the remaining stock is still allowed.
	require.NoError(t, p.ReserveStock(6))
	assert.Equal(t, 0, p.StockQuantity)
}

func TestReserveStockRejectsWithoutMutating(t *testing.T) {
	p := NewProduct("p1", "widget", decimal.RequireFromString("9.99"), 5)

	err := p.ReserveStock(6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, p.StockQuantity)

	assert.ErrorIs(t, p.ReserveStock(0), ErrInvalidQuantity)
	assert.ErrorIs(t, p.ReserveStock(-1), ErrInvalidQuantity)
	assert.Equal(t, 5, p.StockQuantity)
}

func TestRestoreStockInvertsReserve(t *testing.T) {
	p := NewProduct("p1", "widget", decimal.RequireFromString("9.99"), 8)

	require.NoError(t, p.ReserveStock(3))
	require.NoError(t, p.RestoreStock(3))
	assert.Equal(t, 8, p.StockQuantity)

	assert.ErrorIs(t, p.RestoreStock(0), ErrInvalidQuantity)
}

func TestActivation(t *testing.T) {
	p := NewProduct("p1", "widget", decimal.RequireFromString("9.99"), 8)
	assert.True(t, p.IsActive)
	p.Deactivate()
	assert.False(t, p.IsActive)
	p.Activate()
	assert.True(t, p.IsActive)
}
