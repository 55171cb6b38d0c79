package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusPending:   {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("unit price must not be negative")
	ErrItemNotFound    = errors.New("item not found on order")
	ErrNotCancellable  = errors.New("order can no longer be cancelled")
)

type OrderItem struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Order is the customer-facing source of truth for an order's lifecycle.
// TotalAmount is derived and recomputed on every item mutation.
type Order struct {
	ID                 string
	CustomerID         string
	CustomerEmail      string
	CustomerName       string
	Items              []OrderItem
	TotalAmount        decimal.Decimal
	Currency           string
	Status             OrderStatus
	CancellationReason *string
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

func NewOrder(id, customerID, customerEmail, customerName, currency string) *Order {
	return &Order{
		ID:            id,
		CustomerID:    customerID,
		CustomerEmail: customerEmail,
		CustomerName:  customerName,
		TotalAmount:   decimal.Zero,
		Currency:      currency,
		Status:        StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func (o *Order) AddItem(productID, productName string, unitPrice decimal.Decimal, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	o.Items = append(o.Items, OrderItem{
		ProductID:   productID,
		ProductName: productName,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
	})
	o.recomputeTotal()
	o.touch()
	return nil
}

func (o *Order) RemoveItem(productID string) error {
	for i, item := range o.Items {
		if item.ProductID == productID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.recomputeTotal()
			o.touch()
			return nil
		}
	}
	return ErrItemNotFound
}

func (o *Order) recomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.TotalAmount = total
}

func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusConfirmed
}

// Confirm applies the Pending -> Confirmed transition. It reports false
// without mutating when the order is in any other state, which makes
// redelivered PaymentProcessed events a no-op.
func (o *Order) Confirm() bool {
	if o.Status != StatusPending {
		return false
	}
	o.Status = StatusConfirmed
	o.touch()
	return true
}

func (o *Order) Cancel(reason string) error {
	if !o.CanBeCancelled() {
		return fmt.Errorf("%w: status=%s", ErrNotCancellable, o.Status)
	}
	o.Status = StatusCancelled
	o.CancellationReason = &reason
	o.touch()
	return nil
}

func (o *Order) MarkShipped() error {
	if !validNext[o.Status][StatusShipped] {
		return fmt.Errorf("cannot ship order in status %s", o.Status)
	}
	o.Status = StatusShipped
	o.touch()
	return nil
}

func (o *Order) MarkDelivered() error {
	if !validNext[o.Status][StatusDelivered] {
		return fmt.Errorf("cannot deliver order in status %s", o.Status)
	}
	o.Status = StatusDelivered
	o.touch()
	return nil
}

func (o *Order) touch() {
	now := time.Now().UTC()
	o.UpdatedAt = &now
}
