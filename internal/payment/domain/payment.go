package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrNoExternalRef   = errors.New("payment has no external reference")
)

type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusCompleted  PaymentStatus = "completed"
	StatusFailed     PaymentStatus = "failed"
	StatusRefunded   PaymentStatus = "refunded"
)

// Payment moves Pending -> Processing -> Completed, can fail at any
// point before Completed, and Completed can be refunded. No transition
// runs backwards.
type Payment struct {
	ID            string
	OrderID       string
	UserID        string
	Amount        Money
	Status        PaymentStatus
	ExternalRef   string
	FailureReason *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewPayment(orderID, userID string, amount Money) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		UserID:    userID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (p *Payment) MarkProcessing(externalRef string) error {
	if p.Status != StatusPending {
		return fmt.Errorf("cannot start processing payment in status %s", p.Status)
	}
	p.Status = StatusProcessing
	p.ExternalRef = externalRef
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Payment) MarkCompleted() error {
	if p.Status != StatusProcessing {
		return fmt.Errorf("cannot complete payment in status %s", p.Status)
	}
	now := time.Now().UTC()
	p.Status = StatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now
	return nil
}

func (p *Payment) MarkFailed(reason string) error {
	if p.Status == StatusCompleted || p.Status == StatusRefunded {
		return fmt.Errorf("cannot fail payment in status %s", p.Status)
	}
	p.Status = StatusFailed
	p.FailureReason = &reason
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (p *Payment) MarkRefunded() error {
	if p.Status != StatusCompleted {
		return fmt.Errorf("cannot refund payment in status %s", p.Status)
	}
	p.Status = StatusRefunded
	p.UpdatedAt = time.Now().UTC()
	return nil
}
