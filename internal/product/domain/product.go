package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is inactive")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is the authoritative sellable-stock ledger entry. Stock never
// goes negative; a reservation that would is rejected without mutating.
type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewProduct(id, name string, price decimal.Decimal, stock int) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:            id,
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (p *Product) ReserveStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.StockQuantity {
		return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientStock, quantity, p.StockQuantity)
	}
	p.StockQuantity -= quantity
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// RestoreStock is the exact inverse of ReserveStock for the same quantity.
func (p *Product) RestoreStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	p.StockQuantity += quantity
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Product) Deactivate() {
	p.IsActive = false
	p.UpdatedAt = time.Now().UTC()
}

func (p *Product) Activate() {
	p.IsActive = true
	p.UpdatedAt = time.Now().UTC()
}
