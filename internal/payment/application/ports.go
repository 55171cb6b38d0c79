package application

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/acmeshop/orderflow/internal/payment/domain"
)

// StagedEvent is an outbox row written atomically with the payment.
type StagedEvent struct {
	Type    string
	Payload []byte
}

type PaymentRepository interface {
	SaveWithEvents(ctx context.Context, p *domain.Payment, events ...StagedEvent) error
	Get(ctx context.Context, id string) (*domain.Payment, error)
	// GetByOrder returns domain.ErrPaymentNotFound when the order has no
	// payment yet.
	GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error)
}

type IntentRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
}

type IntentResult struct {
	Reference string
}

// Gateway wraps the external payment processor. Implementations return
// errors for declined or failed operations and must not panic across
// this boundary.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (IntentResult, error)
	ConfirmIntent(ctx context.Context, reference string) error
	Refund(ctx context.Context, reference, reason string) error
	Status(ctx context.Context, reference string) (string, error)
}
