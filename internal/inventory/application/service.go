package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/inventory/domain"
)

// Default reorder thresholds for rows created lazily from ProductCreated.
const (
	defaultReorderLevel    = 5
	defaultReorderQuantity = 20
)

// reservationFailure aborts the reservation transaction for a domain
// reason, as opposed to a transient storage error.
type reservationFailure struct {
	reason string
}

func (f *reservationFailure) Error() string { return f.reason }

type Service struct {
	log       *slog.Logger
	repo      InventoryRepository
	publisher EventPublisher
}

func NewService(log *slog.Logger, repo InventoryRepository, publisher EventPublisher) *Service {
	return &Service{log: log, repo: repo, publisher: publisher}
}

// HandleProductCreated creates the ledger row for a new product. The
// row starts with the product's initial stock on hand.
func (s *Service) HandleProductCreated(ctx context.Context, ev contracts.ProductCreated) error {
	item := domain.NewInventoryItem(ev.ProductID, ev.Stock, defaultReorderLevel, defaultReorderQuantity)
	if err := s.repo.CreateItemIfAbsent(ctx, item); err != nil {
		return fmt.Errorf("create inventory item %s: %w", ev.ProductID, err)
	}
	return nil
}

// ReserveForOrder holds inventory for every line item of the order in
// one transaction. Any item failing rolls the whole hold back and
// publishes InventoryReservationFailed; success publishes a single
// InventoryReserved with the full list.
func (s *Service) ReserveForOrder(ctx context.Context, ev contracts.OrderCreated) error {
	err := s.repo.InTx(ctx, func(tx Tx) error {
		existing, err := tx.ReservedByOrder(ctx, ev.OrderID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			s.log.Info("order already has reservations, skipping", "order_id", ev.OrderID)
			return nil
		}

		reserved := make([]contracts.ReservedItem, 0, len(ev.Items))
		var expiresAt time.Time
		for _, item := range ev.Items {
			it, err := tx.ItemForUpdate(ctx, item.ProductID)
			if errors.Is(err, domain.ErrItemNotFound) {
				return &reservationFailure{reason: fmt.Sprintf("no inventory for product %s", item.ProductID)}
			}
			if err != nil {
				return err
			}
			if err := it.Reserve(item.Quantity); err != nil {
				if errors.Is(err, domain.ErrInsufficientInventory) || errors.Is(err, domain.ErrInvalidQuantity) {
					return &reservationFailure{reason: err.Error()}
				}
				return err
			}
			if err := tx.SaveItem(ctx, it); err != nil {
				return err
			}

			res := domain.NewReservation(ev.OrderID, item.ProductID, item.Quantity)
			if err := tx.InsertReservation(ctx, res); err != nil {
				return err
			}
			expiresAt = res.ExpiresAt
			reserved = append(reserved, contracts.ReservedItem{
				ReservationID: res.ID,
				ProductID:     res.ProductID,
				Quantity:      res.Quantity,
			})

			if it.NeedsReorder() {
				s.log.Warn("inventory below reorder level",
					"product_id", it.ProductID, "available", it.QuantityAvailable(), "reorder_quantity", it.ReorderQuantity)
			}
		}
		if len(reserved) == 0 {
			return nil
		}

		event := contracts.InventoryReserved{
			OrderID:    ev.OrderID,
			Items:      reserved,
			ExpiresAt:  expiresAt,
			ReservedAt: time.Now().UTC(),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return tx.StageEvent(ctx, ev.OrderID, contracts.EventInventoryReserved, payload)
	})

	var failure *reservationFailure
	if errors.As(err, &failure) {
		s.log.Warn("inventory reservation failed", "order_id", ev.OrderID, "reason", failure.reason)
		s.publishFailure(ctx, ev.OrderID, failure.reason)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reserve inventory for order %s: %w", ev.OrderID, err)
	}
	return nil
}

func (s *Service) publishFailure(ctx context.Context, orderID, reason string) {
	event := contracts.InventoryReservationFailed{OrderID: orderID, Reason: reason}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, orderID, contracts.EventInventoryReservationFailed, payload); err != nil {
		s.log.Error("publish inventory failure event failed", "order_id", orderID, "err", err)
	}
}

// HandlePaymentProcessed commits every Reserved row for the order:
// on-hand and reserved both decrease and the row becomes Fulfilled.
// Missing rows or items are logged and skipped; an order with no
// Reserved rows is a warned no-op, which makes redelivery harmless.
func (s *Service) HandlePaymentProcessed(ctx context.Context, ev contracts.PaymentProcessed) error {
	return s.repo.InTx(ctx, func(tx Tx) error {
		rows, err := tx.ReservedByOrder(ctx, ev.OrderID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			s.log.Warn("no reservations to fulfill", "order_id", ev.OrderID)
			return nil
		}

		for _, res := range rows {
			it, err := tx.ItemForUpdate(ctx, res.ProductID)
			if errors.Is(err, domain.ErrItemNotFound) {
				s.log.Error("inventory item missing during fulfillment",
					"order_id", ev.OrderID, "product_id", res.ProductID)
				continue
			}
			if err != nil {
				return err
			}
			if err := it.Fulfill(res.Quantity); err != nil {
				s.log.Error("fulfill failed, skipping reservation",
					"order_id", ev.OrderID, "product_id", res.ProductID, "err", err)
				continue
			}
			if err := tx.SaveItem(ctx, it); err != nil {
				return err
			}
			if err := res.Fulfill(); err != nil {
				s.log.Error("reservation state error", "reservation_id", res.ID, "err", err)
				continue
			}
			if err := tx.UpdateReservation(ctx, res); err != nil {
				return err
			}
		}
		s.log.Info("reservations fulfilled", "order_id", ev.OrderID, "count", len(rows))
		return nil
	})
}

// ExpireDue releases holds whose TTL has lapsed without a payment.
// Returns how many reservations were expired.
func (s *Service) ExpireDue(ctx context.Context, limit int) (int, error) {
	expired := 0
	err := s.repo.InTx(ctx, func(tx Tx) error {
		rows, err := tx.DueForExpiry(ctx, time.Now().UTC(), limit)
		if err != nil {
			return err
		}
		for _, res := range rows {
			it, err := tx.ItemForUpdate(ctx, res.ProductID)
			if errors.Is(err, domain.ErrItemNotFound) {
				s.log.Error("inventory item missing during expiry", "product_id", res.ProductID)
				continue
			}
			if err != nil {
				return err
			}
			if err := it.Release(res.Quantity); err != nil {
				s.log.Error("release failed during expiry", "reservation_id", res.ID, "err", err)
				continue
			}
			if err := tx.SaveItem(ctx, it); err != nil {
				return err
			}
			if err := res.Expire(); err != nil {
				continue
			}
			if err := tx.UpdateReservation(ctx, res); err != nil {
				return err
			}
			expired++
			s.log.Info("reservation expired", "reservation_id", res.ID, "order_id", res.OrderID)
		}
		return nil
	})
	return expired, err
}
