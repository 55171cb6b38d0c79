package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrItemNotFound          = errors.New("inventory item not found")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrInsufficientInventory = errors.New("insufficient inventory available")
)

// InventoryItem tracks on-hand versus reserved quantities per product.
// This ledger is independent of the product service's stock count; the
// two converge only through the event stream.
type InventoryItem struct {
	ProductID        string
	QuantityOnHand   int
	QuantityReserved int
	ReorderLevel     int
	ReorderQuantity  int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewInventoryItem(productID string, onHand, reorderLevel, reorderQuantity int) *InventoryItem {
	now := time.Now().UTC()
	return &InventoryItem{
		ProductID:       productID,
		QuantityOnHand:  onHand,
		ReorderLevel:    reorderLevel,
		ReorderQuantity: reorderQuantity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (i *InventoryItem) QuantityAvailable() int {
	return i.QuantityOnHand - i.QuantityReserved
}

func (i *InventoryItem) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.QuantityAvailable() {
		return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientInventory, quantity, i.QuantityAvailable())
	}
	i.QuantityReserved += quantity
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Release returns a reserved quantity to the available pool.
func (i *InventoryItem) Release(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.QuantityReserved {
		return fmt.Errorf("cannot release %d, only %d reserved", quantity, i.QuantityReserved)
	}
	i.QuantityReserved -= quantity
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Fulfill commits a reservation: both on-hand and reserved shrink.
func (i *InventoryItem) Fulfill(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > i.QuantityReserved {
		return fmt.Errorf("cannot fulfill %d, only %d reserved", quantity, i.QuantityReserved)
	}
	if quantity > i.QuantityOnHand {
		return fmt.Errorf("cannot fulfill %d, only %d on hand", quantity, i.QuantityOnHand)
	}
	i.QuantityOnHand -= quantity
	i.QuantityReserved -= quantity
	i.UpdatedAt = time.Now().UTC()
	return nil
}

func (i *InventoryItem) NeedsReorder() bool {
	return i.QuantityAvailable() <= i.ReorderLevel
}
