package application

import (
	"context"
	"time"

	"github.com/acmeshop/orderflow/internal/inventory/domain"
)

// Tx is a transactional view of the inventory ledger. Everything done
// through one Tx commits or rolls back as a unit.
type Tx interface {
	// ItemForUpdate locks and returns the ledger row for a product, or
	// domain.ErrItemNotFound.
	ItemForUpdate(ctx context.Context, productID string) (*domain.InventoryItem, error)
	SaveItem(ctx context.Context, item *domain.InventoryItem) error
	InsertReservation(ctx context.Context, res *domain.Reservation) error
	UpdateReservation(ctx context.Context, res *domain.Reservation) error
	ReservedByOrder(ctx context.Context, orderID string) ([]*domain.Reservation, error)
	DueForExpiry(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error)
	// StageEvent writes an outbox row inside the transaction.
	StageEvent(ctx context.Context, aggregateID, eventType string, payload []byte) error
}

type InventoryRepository interface {
	// InTx runs fn in one transaction; fn returning an error rolls the
	// whole transaction back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// CreateItemIfAbsent inserts a ledger row unless one already exists.
	CreateItemIfAbsent(ctx context.Context, item *domain.InventoryItem) error
}

// EventPublisher stages events outside a ledger transaction, used when
// the transaction itself was rolled back.
type EventPublisher interface {
	Publish(ctx context.Context, orderID, eventType string, payload []byte) error
}
