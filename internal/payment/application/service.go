package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/payment/domain"
	"github.com/acmeshop/orderflow/pkg/metrics"
)

type Service struct {
	log     *slog.Logger
	repo    PaymentRepository
	gateway Gateway
}

func NewService(log *slog.Logger, repo PaymentRepository, gateway Gateway) *Service {
	return &Service{log: log, repo: repo, gateway: gateway}
}

// HandleOrderCreated charges the order. Gateway declines end the flow in
// Failed with PaymentFailed staged; only storage errors propagate for
// redelivery.
func (s *Service) HandleOrderCreated(ctx context.Context, ev contracts.OrderCreated) error {
	if _, err := s.repo.GetByOrder(ctx, ev.OrderID); err == nil {
		s.log.Info("order already has a payment, skipping", "order_id", ev.OrderID)
		return nil
	} else if !errors.Is(err, domain.ErrPaymentNotFound) {
		return err
	}

	p, err := s.Process(ctx, ev)
	if err != nil && p == nil {
		return err
	}
	if err != nil {
		s.log.Warn("payment failed", "order_id", ev.OrderID, "payment_id", p.ID, "err", err)
	}
	return nil
}

// Process runs the payment command: persist Pending, create and confirm
// the gateway intent with a persist between each step, then Completed
// with PaymentProcessed staged. Any step failing marks the payment
// Failed, stages PaymentFailed and returns the step's error; staging
// failures are logged and swallowed, never escalated.
func (s *Service) Process(ctx context.Context, ev contracts.OrderCreated) (*domain.Payment, error) {
	money, err := domain.NewMoney(ev.TotalAmount, ev.Currency)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", ev.OrderID, err)
	}

	p := domain.NewPayment(ev.OrderID, ev.CustomerID, money)
	if err := s.repo.SaveWithEvents(ctx, p); err != nil {
		return nil, err
	}

	res, err := s.gateway.CreateIntent(ctx, IntentRequest{
		OrderID:  p.OrderID,
		Amount:   money.Amount,
		Currency: money.Currency,
	})
	if err != nil {
		s.fail(ctx, p, err.Error())
		return p, err
	}

	if err := p.MarkProcessing(res.Reference); err != nil {
		s.fail(ctx, p, err.Error())
		return p, err
	}
	if err := s.repo.SaveWithEvents(ctx, p); err != nil {
		s.fail(ctx, p, "persisting processing status failed")
		return p, err
	}

	if err := s.gateway.ConfirmIntent(ctx, res.Reference); err != nil {
		s.fail(ctx, p, err.Error())
		return p, err
	}

	if err := p.MarkCompleted(); err != nil {
		s.fail(ctx, p, err.Error())
		return p, err
	}
	event := contracts.PaymentProcessed{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		UserID:      p.UserID,
		ExternalRef: p.ExternalRef,
		Amount:      p.Amount.Amount,
		Currency:    p.Amount.Currency,
		Status:      string(p.Status),
		CompletedAt: *p.CompletedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.fail(ctx, p, "event encoding failed")
		return p, err
	}
	if err := s.repo.SaveWithEvents(ctx, p, StagedEvent{Type: contracts.EventPaymentProcessed, Payload: payload}); err != nil {
		return p, err
	}
	metrics.Payments.WithLabelValues("completed").Inc()
	s.log.Info("payment completed", "payment_id", p.ID, "order_id", p.OrderID, "external_ref", p.ExternalRef)
	return p, nil
}

// fail marks the payment Failed and stages PaymentFailed. Nothing here
// returns an error: informing downstream is best effort and must not
// mask the original failure.
func (s *Service) fail(ctx context.Context, p *domain.Payment, reason string) {
	metrics.Payments.WithLabelValues("failed").Inc()
	if err := p.MarkFailed(reason); err != nil {
		s.log.Error("payment state error", "payment_id", p.ID, "err", err)
		return
	}
	event := contracts.PaymentFailed{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		Reason:    reason,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("encode payment failed event", "payment_id", p.ID, "err", err)
		return
	}
	if err := s.repo.SaveWithEvents(ctx, p, StagedEvent{Type: contracts.EventPaymentFailed, Payload: payload}); err != nil {
		s.log.Error("persist failed payment", "payment_id", p.ID, "err", err)
	}
}

// Refund reverses a completed payment. The free-form reason is mapped
// onto the gateway's closed vocabulary before the call.
func (s *Service) Refund(ctx context.Context, paymentID, reason string) error {
	p, err := s.repo.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.ExternalRef == "" {
		return domain.ErrNoExternalRef
	}

	if err := s.gateway.Refund(ctx, p.ExternalRef, classifyRefundReason(reason)); err != nil {
		return fmt.Errorf("gateway refund: %w", err)
	}
	if err := p.MarkRefunded(); err != nil {
		return err
	}
	if err := s.repo.SaveWithEvents(ctx, p); err != nil {
		return err
	}
	metrics.Payments.WithLabelValues("refunded").Inc()
	s.log.Info("payment refunded", "payment_id", p.ID, "order_id", p.OrderID)
	return nil
}

func classifyRefundReason(reason string) string {
	r := strings.ToLower(reason)
	switch {
	case strings.Contains(r, "duplicate"):
		return "duplicate"
	case strings.Contains(r, "fraud"):
		return "fraudulent"
	default:
		return "requested_by_customer"
	}
}
