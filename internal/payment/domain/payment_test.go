package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("12.50"), "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency)
	assert.True(t, m.Amount.Equal(decimal.RequireFromString("12.50")))

	_, err = NewMoney(decimal.Zero, "USD")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = NewMoney(decimal.RequireFromString("-1"), "USD")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = NewMoney(decimal.RequireFromString("1"), "US")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = NewMoney(decimal.RequireFromString("1"), "U5D")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func testMoney(t *testing.T) Money {
	t.Helper()
	m, err := NewMoney(decimal.RequireFromString("25.00"), "EUR")
	require.NoError(t, err)
	return m
}

func TestPaymentHappyPath(t *testing.T) {
	p := NewPayment("o1", "u1", testMoney(t))
	assert.Equal(t, StatusPending, p.Status)

	require.NoError(t, p.MarkProcessing("pi_123"))
	assert.Equal(t, StatusProcessing, p.Status)
	assert.Equal(t, "pi_123", p.ExternalRef)

	require.NoError(t, p.MarkCompleted())
	assert.Equal(t, StatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)

	require.NoError(t, p.MarkRefunded())
	assert.Equal(t, StatusRefunded, p.Status)
}

func TestPaymentFailBeforeCompleted(t *testing.T) {
	p := NewPayment("o1", "u1", testMoney(t))
	require.NoError(t, p.MarkFailed("card declined"))
	assert.Equal(t, StatusFailed, p.Status)
	require.NotNil(t, p.FailureReason)
	assert.Equal(t, "card declined", *p.FailureReason)

	p2 := NewPayment("o2", "u1", testMoney(t))
	require.NoError(t, p2.MarkProcessing("pi_1"))
	require.NoError(t, p2.MarkFailed("confirm failed"))
	assert.Equal(t, StatusFailed, p2.Status)
}

func TestPaymentTransitionsAreOneWay(t *testing.T) {
	p := NewPayment("o1", "u1", testMoney(t))
	require.NoError(t, p.MarkProcessing("pi_1"))
	require.NoError(t, p.MarkCompleted())

	assert.Error(t, p.MarkFailed("too late"))
	assert.Error(t, p.MarkProcessing("pi_2"))
	assert.Error(t, p.MarkCompleted())

	require.NoError(t, p.MarkRefunded())
	assert.Error(t, p.MarkRefunded())
	assert.Error(t, p.MarkFailed("no"))
}

func TestRefundOnlyFromCompleted(t *testing.T) {
	p := NewPayment("o1", "u1", testMoney(t))
	assert.Error(t, p.MarkRefunded())
}
