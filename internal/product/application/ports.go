package application

import (
	"context"

	"github.com/acmeshop/orderflow/internal/product/domain"
)

// StagedEvent is an outbox row written atomically with the product.
type StagedEvent struct {
	Type    string
	Payload []byte
}

type ProductRepository interface {
	// Get returns domain.ErrProductNotFound when no row exists; any other
	// error is treated as transient.
	Get(ctx context.Context, id string) (*domain.Product, error)
	// SaveWithEvents persists the product and stages the given events in
	// the same transaction.
	SaveWithEvents(ctx context.Context, p *domain.Product, events ...StagedEvent) error
	// SaveWithReservation persists the product, records an
	// (order, product) reservation row for the decremented quantity and
	// stages the given events, all in the same transaction.
	SaveWithReservation(ctx context.Context, p *domain.Product, orderID string, quantity int, events ...StagedEvent) error
	// SaveWithRelease persists the product and deletes the order's
	// reservation row for it in the same transaction.
	SaveWithRelease(ctx context.Context, p *domain.Product, orderID string) error
	// ReservationsByOrder returns the reserved quantity per product
	// recorded for the order.
	ReservationsByOrder(ctx context.Context, orderID string) (map[string]int, error)
}

// EventPublisher stages an event that is not tied to a product mutation,
// such as a reservation failure for a product that does not exist.
type EventPublisher interface {
	Publish(ctx context.Context, orderID, eventType string, payload []byte) error
}
