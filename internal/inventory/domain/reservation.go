package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReservationTTL bounds how long a hold survives without a payment.
const ReservationTTL = 30 * time.Minute

type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationCanceled  ReservationStatus = "canceled"
	ReservationExpired   ReservationStatus = "expired"
)

// Reservation is one hold on inventory for one (order, product) pair.
type Reservation struct {
	ID          string
	OrderID     string
	ProductID   string
	Quantity    int
	Status      ReservationStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
	FulfilledAt *time.Time
	CanceledAt  *time.Time
}

func NewReservation(orderID, productID string, quantity int) *Reservation {
	now := time.Now().UTC()
	return &Reservation{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		Status:    ReservationReserved,
		CreatedAt: now,
		ExpiresAt: now.Add(ReservationTTL),
	}
}

func (r *Reservation) Fulfill() error {
	if r.Status != ReservationReserved {
		return fmt.Errorf("cannot fulfill reservation in status %s", r.Status)
	}
	now := time.Now().UTC()
	r.Status = ReservationFulfilled
	r.FulfilledAt = &now
	return nil
}

func (r *Reservation) Cancel() error {
	if r.Status != ReservationReserved {
		return fmt.Errorf("cannot cancel reservation in status %s", r.Status)
	}
	now := time.Now().UTC()
	r.Status = ReservationCanceled
	r.CanceledAt = &now
	return nil
}

func (r *Reservation) Expire() error {
	if r.Status != ReservationReserved {
		return fmt.Errorf("cannot expire reservation in status %s", r.Status)
	}
	r.Status = ReservationExpired
	return nil
}
