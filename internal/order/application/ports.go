package application

import (
	"context"

	"github.com/acmeshop/orderflow/internal/order/domain"
)

// StagedEvent is an outbox row written atomically with the aggregate.
type StagedEvent struct {
	Type    string
	Payload []byte
}

type OrderRepository interface {
	// SaveWithEvents persists the order and stages the given events in the
	// same transaction.
	SaveWithEvents(ctx context.Context, o *domain.Order, events ...StagedEvent) error
	Get(ctx context.Context, id string) (*domain.Order, error)
}

// CartCache clears a customer's cart after checkout. Failures are
// non-critical and must never block the saga.
type CartCache interface {
	ClearCart(ctx context.Context, customerID string) error
}
