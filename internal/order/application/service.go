package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/order/domain"
	"github.com/acmeshop/orderflow/pkg/metrics"
)

type CreateOrderItem struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

type CreateOrderCommand struct {
	CustomerID    string
	CustomerEmail string
	CustomerName  string
	Currency      string
	Items         []CreateOrderItem
}

type Service struct {
	log  *slog.Logger
	repo OrderRepository
	cart CartCache
}

func NewService(log *slog.Logger, repo OrderRepository, cart CartCache) *Service {
	return &Service{log: log, repo: repo, cart: cart}
}

// CreateOrder builds the order in Pending status and stages OrderCreated,
// which kicks off both reservation legs of the saga.
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	o := domain.NewOrder(uuid.NewString(), cmd.CustomerID, cmd.CustomerEmail, cmd.CustomerName, cmd.Currency)
	for _, item := range cmd.Items {
		if err := o.AddItem(item.ProductID, item.ProductName, item.UnitPrice, item.Quantity); err != nil {
			return nil, fmt.Errorf("item %s: %w", item.ProductID, err)
		}
	}

	event := contracts.OrderCreated{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		CustomerEmail: o.CustomerEmail,
		CustomerName:  o.CustomerName,
		Items:         toContractItems(o.Items),
		TotalAmount:   o.TotalAmount,
		Currency:      o.Currency,
		CreatedAt:     o.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithEvents(ctx, o, StagedEvent{Type: contracts.EventOrderCreated, Payload: payload}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.Get(ctx, id)
}

// HandlePaymentProcessed confirms the order. A redelivered event finds
// the order already Confirmed and does nothing.
func (s *Service) HandlePaymentProcessed(ctx context.Context, ev contracts.PaymentProcessed) error {
	o, err := s.repo.Get(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", ev.OrderID, err)
	}
	if !o.Confirm() {
		s.log.Info("payment processed ignored, order not pending",
			"order_id", o.ID, "status", o.Status)
		return nil
	}
	if err := s.repo.SaveWithEvents(ctx, o); err != nil {
		return err
	}
	s.log.Info("order confirmed", "order_id", o.ID)

	// Cart clearing is a low-value side effect: log and move on rather
	// than force a redelivery of the whole event.
	if err := s.cart.ClearCart(ctx, o.CustomerID); err != nil {
		s.log.Warn("cart clear failed", "customer_id", o.CustomerID, "err", err)
	}
	return nil
}

// HandleProductReservationFailed cancels the order and stages
// OrderCancelled with the original item list, so stock compensation can
// run for every item regardless of which ones were actually reserved.
func (s *Service) HandleProductReservationFailed(ctx context.Context, ev contracts.ProductReservationFailed) error {
	o, err := s.repo.Get(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", ev.OrderID, err)
	}
	if !o.CanBeCancelled() {
		s.log.Info("reservation failure ignored, order not cancellable",
			"order_id", o.ID, "status", o.Status)
		return nil
	}

	reason := cancellationReason(ev)
	if err := o.Cancel(reason); err != nil {
		return err
	}

	event := contracts.OrderCancelled{
		OrderID:     o.ID,
		Reason:      reason,
		Items:       toContractItems(o.Items),
		CancelledAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.repo.SaveWithEvents(ctx, o, StagedEvent{Type: contracts.EventOrderCancelled, Payload: payload}); err != nil {
		return err
	}
	metrics.OrdersCancelled.Inc()
	s.log.Info("order cancelled", "order_id", o.ID, "reason", reason)
	return nil
}

// HandlePaymentFailed has no transition in the order lifecycle; the
// payment surfaces its own Failed status.
func (s *Service) HandlePaymentFailed(ctx context.Context, ev contracts.PaymentFailed) error {
	s.log.Warn("payment failed for order", "order_id", ev.OrderID, "reason", ev.Reason)
	return nil
}

// HandleInventoryReservationFailed is observational: inventory holds are
// released by their TTL and the stock ledger is not involved.
func (s *Service) HandleInventoryReservationFailed(ctx context.Context, ev contracts.InventoryReservationFailed) error {
	s.log.Warn("inventory reservation failed for order", "order_id", ev.OrderID, "reason", ev.Reason)
	return nil
}

// CancelOrder is the manual cancellation command from the HTTP surface.
func (s *Service) CancelOrder(ctx context.Context, id, reason string) error {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := o.Cancel(reason); err != nil {
		return err
	}
	event := contracts.OrderCancelled{
		OrderID:     o.ID,
		Reason:      reason,
		Items:       toContractItems(o.Items),
		CancelledAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := s.repo.SaveWithEvents(ctx, o, StagedEvent{Type: contracts.EventOrderCancelled, Payload: payload}); err != nil {
		return err
	}
	metrics.OrdersCancelled.Inc()
	return nil
}

// ShipOrder closes the cancellation window; only confirmed orders ship.
func (s *Service) ShipOrder(ctx context.Context, id string) error {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := o.MarkShipped(); err != nil {
		return err
	}
	if err := s.repo.SaveWithEvents(ctx, o); err != nil {
		return err
	}
	s.log.Info("order shipped", "order_id", o.ID)
	return nil
}

func (s *Service) DeliverOrder(ctx context.Context, id string) error {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := o.MarkDelivered(); err != nil {
		return err
	}
	if err := s.repo.SaveWithEvents(ctx, o); err != nil {
		return err
	}
	s.log.Info("order delivered", "order_id", o.ID)
	return nil
}

func cancellationReason(ev contracts.ProductReservationFailed) string {
	name := ev.ProductName
	if name == "" {
		name = ev.ProductID
	}
	return fmt.Sprintf("reservation failed for %s (requested %d): %s", name, ev.RequestedQuantity, ev.Reason)
}

func toContractItems(items []domain.OrderItem) []contracts.OrderItem {
	out := make([]contracts.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, contracts.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}
	return out
}
