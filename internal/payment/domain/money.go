package domain

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter ISO code")
)

// Money pairs a positive decimal amount with an ISO currency code.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney validates the ISO 4217 shape of the code (3 letters) but not
// membership in the currency list; the gateway rejects codes it does not
// support and its error surfaces as a failed payment.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	if !amount.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return Money{}, ErrInvalidCurrency
		}
	}
	return Money{Amount: amount, Currency: code}, nil
}
