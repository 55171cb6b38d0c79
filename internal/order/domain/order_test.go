package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTotalRecomputedOnItemMutation(t *testing.T) {
	o := NewOrder("o1", "c1", "c1@example.com", "Casey", "USD")
	assert.True(t, o.TotalAmount.IsZero())

	require.NoError(t, o.AddItem("p1", "widget", dec("9.99"), 2))
	assert.True(t, o.TotalAmount.Equal(dec("19.98")), "got %s", o.TotalAmount)

	require.NoError(t, o.AddItem("p2", "gadget", dec("5.00"), 3))
	assert.True(t, o.TotalAmount.Equal(dec("34.98")), "got %s", o.TotalAmount)

	require.NoError(t, o.RemoveItem("p1"))
	assert.True(t, o.TotalAmount.Equal(dec("15.00")), "got %s", o.TotalAmount)
}

func TestAddItemValidation(t *testing.T) {
	o := NewOrder("o1", "c1", "c1@example.com", "Casey", "USD")

	assert.ErrorIs(t, o.AddItem("p1", "widget", dec("1.00"), 0), ErrInvalidQuantity)
	assert.ErrorIs(t, o.AddItem("p1", "widget", dec("1.00"), -2), ErrInvalidQuantity)
	assert.ErrorIs(t, o.AddItem("p1", "widget", dec("-0.01"), 1), ErrInvalidPrice)
	assert.Empty(t, o.Items)

	// Free items are allowed.
	assert.NoError(t, o.AddItem("p1", "sample", decimal.Zero, 1))
}

func TestRemoveItemNotFound(t *testing.T) {
	o := NewOrder("o1", "c1", "c1@example.com", "Casey", "USD")
	assert.ErrorIs(t, o.RemoveItem("missing"), ErrItemNotFound)
}

func TestConfirmOnlyFromPending(t *testing.T) {
	o := NewOrder("o1", "c1", "c1@example.com", "Casey", "USD")

	assert.True(t, o.Confirm())
	assert.Equal(t, StatusConfirmed, o.Status)

	// A redelivered PaymentProcessed finds the order Confirmed.
	assert.False(t, o.Confirm())
	assert.Equal(t, StatusConfirmed, o.Status)
}

func TestCancelGuards(t *testing.T) {
	o := NewOrder("o1", "c1", "c1@example.com", "Casey", "USD")
	assert.True(t, o.CanBeCancelled())

	require.NoError(t, o.Cancel("out of stock"))
	assert.Equal(t, StatusCancelled, o.Status)
	require.NotNil(t, o.CancellationReason)
	assert.Equal(t, "out of stock", *o.CancellationReason)

	// Terminal: no further transitions.
	assert.False(t, o.CanBeCancelled())
	assert.ErrorIs(t, o.Cancel("again"), ErrNotCancellable)
	assert.False(t, o.Confirm())
	assert.Error(t, o.MarkShipped())
}

func TestConfirmedOrderCanStillBeCancelled(t *testing.T) {
	o := NewOrder("o1", "c1", "c1@example.com", "Casey", "USD")
	o.Confirm()
	assert.True(t, o.CanBeCancelled())
	assert.NoError(t, o.Cancel("customer request"))
}

func TestFulfillmentLifecycle(t *testing.T) {
	o := NewOrder("o1", "c1", "c1@example.com", "Casey", "USD")

	assert.Error(t, o.MarkShipped(), "cannot ship a pending order")
	o.Confirm()
	require.NoError(t, o.MarkShipped())
	assert.False(t, o.CanBeCancelled())
	require.NoError(t, o.MarkDelivered())
	assert.Equal(t, StatusDelivered, o.Status)
}

func TestUpdatedAtSetOnFirstMutation(t *testing.T) {
	o := NewOrder("o1", "c1", "c1@example.com", "Casey", "USD")
	assert.Nil(t, o.UpdatedAt)

	require.NoError(t, o.AddItem("p1", "widget", dec("1.00"), 1))
	assert.NotNil(t, o.UpdatedAt)
}
