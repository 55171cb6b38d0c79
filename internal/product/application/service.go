package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/product/domain"
	"github.com/acmeshop/orderflow/pkg/metrics"
)

type Service struct {
	log       *slog.Logger
	repo      ProductRepository
	publisher EventPublisher
}

func NewService(log *slog.Logger, repo ProductRepository, publisher EventPublisher) *Service {
	return &Service{log: log, repo: repo, publisher: publisher}
}

type CreateProductCommand struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

// CreateProduct seeds the stock ledger and announces the product so the
// inventory service can create its ledger row lazily.
func (s *Service) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	if cmd.Stock < 0 {
		return nil, fmt.Errorf("initial stock must not be negative")
	}
	p := domain.NewProduct(uuid.NewString(), cmd.Name, cmd.Price, cmd.Stock)

	event := contracts.ProductCreated{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.StockQuantity,
		CreatedAt: p.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithEvents(ctx, p, StagedEvent{Type: contracts.EventProductCreated, Payload: payload}); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.Get(ctx, id)
}

// SetActive flips whether the product can be reserved.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if active {
		p.Activate()
	} else {
		p.Deactivate()
	}
	return s.repo.SaveWithEvents(ctx, p)
}

type reservedItem struct {
	productID string
	quantity  int
}

// ReserveForOrder walks the order's items in payload order and reserves
// each against the stock ledger. The first failure short-circuits the
// remaining items, publishes ProductReservationFailed and rolls back
// every reservation already made for this order. Each success records an
// (order, product) reservation row in the same transaction as the stock
// decrement, so a redelivered OrderCreated cannot decrement twice.
func (s *Service) ReserveForOrder(ctx context.Context, ev contracts.OrderCreated) error {
	existing, err := s.repo.ReservationsByOrder(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("reservation lookup for order %s: %w", ev.OrderID, err)
	}
	if len(existing) > 0 {
		s.log.Info("order already has stock reservations, skipping", "order_id", ev.OrderID)
		return nil
	}

	var reserved []reservedItem
	for _, item := range ev.Items {
		p, err := s.repo.Get(ctx, item.ProductID)
		switch {
		case errors.Is(err, domain.ErrProductNotFound):
			return s.abortReservation(ctx, ev.OrderID, item, "product not found", reserved, nil)
		case err != nil:
			// Transient storage failure: tell downstream, then propagate
			// so the broker redelivers.
			return s.abortReservation(ctx, ev.OrderID, item, "stock lookup failed", reserved, err)
		}

		if !p.IsActive {
			return s.abortReservation(ctx, ev.OrderID, item, domain.ErrProductInactive.Error(), reserved, nil)
		}
		if err := p.ReserveStock(item.Quantity); err != nil {
			return s.abortReservation(ctx, ev.OrderID, item, err.Error(), reserved, nil)
		}

		event := contracts.ProductReserved{
			OrderID:    ev.OrderID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			ReservedAt: time.Now().UTC(),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return s.abortReservation(ctx, ev.OrderID, item, "event encoding failed", reserved, err)
		}
		if err := s.repo.SaveWithReservation(ctx, p, ev.OrderID, item.Quantity, StagedEvent{Type: contracts.EventProductReserved, Payload: payload}); err != nil {
			return s.abortReservation(ctx, ev.OrderID, item, "stock persistence failed", reserved, err)
		}

		reserved = append(reserved, reservedItem{productID: item.ProductID, quantity: item.Quantity})
		metrics.StockReservations.WithLabelValues("reserved").Inc()
		s.log.Info("stock reserved", "order_id", ev.OrderID, "product_id", item.ProductID, "quantity", item.Quantity)
	}
	return nil
}

// abortReservation publishes the failure event, rolls back the items
// reserved so far and returns retErr (nil for domain failures, the
// underlying error for transient ones so the message is redelivered).
func (s *Service) abortReservation(ctx context.Context, orderID string, item contracts.OrderItem, reason string, reserved []reservedItem, retErr error) error {
	metrics.StockReservations.WithLabelValues("rejected").Inc()
	s.log.Warn("stock reservation failed",
		"order_id", orderID, "product_id", item.ProductID, "reason", reason, "err", retErr)

	event := contracts.ProductReservationFailed{
		OrderID:           orderID,
		ProductID:         item.ProductID,
		ProductName:       item.ProductName,
		RequestedQuantity: item.Quantity,
		Reason:            reason,
	}
	payload, err := json.Marshal(event)
	if err == nil {
		if err := s.publisher.Publish(ctx, orderID, contracts.EventProductReservationFailed, payload); err != nil {
			s.log.Error("publish reservation failure event failed", "order_id", orderID, "err", err)
		}
	}

	s.rollback(ctx, orderID, reserved)
	return retErr
}

// rollback restores every previously reserved item and releases its
// reservation row. Best effort: a restore failure is counted and
// logged, never retried, and does not stop the loop; the row stays
// behind so a later cancellation can retry it.
func (s *Service) rollback(ctx context.Context, orderID string, reserved []reservedItem) {
	for _, r := range reserved {
		if err := s.restore(ctx, orderID, r.productID, r.quantity); err != nil {
			metrics.StockRestores.WithLabelValues("failed").Inc()
			metrics.StockRestoreFailures.Inc()
			s.log.Error("stock restore failed, manual reconciliation required",
				"order_id", orderID, "product_id", r.productID, "quantity", r.quantity, "err", err)
			continue
		}
		metrics.StockRestores.WithLabelValues("restored").Inc()
		s.log.Info("stock restored", "order_id", orderID, "product_id", r.productID, "quantity", r.quantity)
	}
}

// HandleOrderCancelled restores the stock recorded as reserved for the
// order. Quantities come from the reservation rows rather than the
// event's item list, so any instance can compensate a reservation made
// by another, a redelivered cancellation finds no rows and does nothing,
// and items that never got reserved are never restored. Best effort,
// same as the in-process rollback.
func (s *Service) HandleOrderCancelled(ctx context.Context, ev contracts.OrderCancelled) error {
	reserved, err := s.repo.ReservationsByOrder(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("reservation lookup for order %s: %w", ev.OrderID, err)
	}
	if len(reserved) == 0 {
		s.log.Info("no stock reservations to restore", "order_id", ev.OrderID)
		return nil
	}

	items := make([]reservedItem, 0, len(reserved))
	for productID, quantity := range reserved {
		items = append(items, reservedItem{productID: productID, quantity: quantity})
	}
	s.rollback(ctx, ev.OrderID, items)
	return nil
}

// restore puts the quantity back on the shelf and deletes the order's
// reservation row in the same transaction.
func (s *Service) restore(ctx context.Context, orderID, productID string, quantity int) error {
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return err
	}
	if err := p.RestoreStock(quantity); err != nil {
		return err
	}
	return s.repo.SaveWithRelease(ctx, p, orderID)
}
