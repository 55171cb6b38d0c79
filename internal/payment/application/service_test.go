package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/payment/domain"
)

type memPayments struct {
	byID   map[string]*domain.Payment
	events []StagedEvent
}

func newMemPayments() *memPayments {
	return &memPayments{byID: make(map[string]*domain.Payment)}
}

func (r *memPayments) SaveWithEvents(_ context.Context, p *domain.Payment, events ...StagedEvent) error {
	r.byID[p.ID] = p
	r.events = append(r.events, events...)
	return nil
}

func (r *memPayments) Get(_ context.Context, id string) (*domain.Payment, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (r *memPayments) GetByOrder(_ context.Context, orderID string) (*domain.Payment, error) {
	for _, p := range r.byID {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *memPayments) eventTypes() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeGateway struct {
	createErr  error
	confirmErr error
	refundErr  error
	refunds    []string
	intents    int
}

func (g *fakeGateway) CreateIntent(_ context.Context, _ IntentRequest) (IntentResult, error) {
	if g.createErr != nil {
		return IntentResult{}, g.createErr
	}
	g.intents++
	return IntentResult{Reference: "pi_test_1"}, nil
}

func (g *fakeGateway) ConfirmIntent(_ context.Context, _ string) error {
	return g.confirmErr
}

func (g *fakeGateway) Refund(_ context.Context, _, reason string) error {
	if g.refundErr != nil {
		return g.refundErr
	}
	g.refunds = append(g.refunds, reason)
	return nil
}

func (g *fakeGateway) Status(_ context.Context, _ string) (string, error) {
	return "succeeded", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paidOrder() contracts.OrderCreated {
	return contracts.OrderCreated{
		OrderID:     "o1",
		CustomerID:  "c1",
		TotalAmount: decimal.RequireFromString("42.00"),
		Currency:    "USD",
	}
}

func TestHandleOrderCreatedCompletesPayment(t *testing.T) {
	repo := newMemPayments()
	gw := &fakeGateway{}
	svc := NewService(testLogger(), repo, gw)

	require.NoError(t, svc.HandleOrderCreated(context.Background(), paidOrder()))

	p, err := repo.GetByOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, p.Status)
	assert.Equal(t, "pi_test_1", p.ExternalRef)

	require.Equal(t, []string{contracts.EventPaymentProcessed}, repo.eventTypes())
	var ev contracts.PaymentProcessed
	require.NoError(t, json.Unmarshal(repo.events[0].Payload, &ev))
	assert.Equal(t, "o1", ev.OrderID)
	assert.Equal(t, p.ID, ev.PaymentID)
	assert.True(t, ev.Amount.Equal(decimal.RequireFromString("42.00")))
}

func TestHandleOrderCreatedSkipsExistingPayment(t *testing.T) {
	repo := newMemPayments()
	gw := &fakeGateway{}
	svc := NewService(testLogger(), repo, gw)

	require.NoError(t, svc.HandleOrderCreated(context.Background(), paidOrder()))
	require.NoError(t, svc.HandleOrderCreated(context.Background(), paidOrder()))

	assert.Equal(t, 1, gw.intents, "redelivered OrderCreated must not charge twice")
	assert.Len(t, repo.byID, 1)
}

func TestGatewayDeclineEndsInFailed(t *testing.T) {
	repo := newMemPayments()
	gw := &fakeGateway{confirmErr: errors.New("card declined")}
	svc := NewService(testLogger(), repo, gw)

	// A decline is a handled outcome, not a redeliverable error.
	require.NoError(t, svc.HandleOrderCreated(context.Background(), paidOrder()))

	p, err := repo.GetByOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.Status)
	require.NotNil(t, p.FailureReason)
	assert.Equal(t, "card declined", *p.FailureReason)

	require.Equal(t, []string{contracts.EventPaymentFailed}, repo.eventTypes())
	var ev contracts.PaymentFailed
	require.NoError(t, json.Unmarshal(repo.events[0].Payload, &ev))
	assert.Equal(t, "o1", ev.OrderID)
	assert.Equal(t, "card declined", ev.Reason)
}

func TestCreateIntentFailureStagesPaymentFailed(t *testing.T) {
	repo := newMemPayments()
	gw := &fakeGateway{createErr: errors.New("gateway unreachable")}
	svc := NewService(testLogger(), repo, gw)

	require.NoError(t, svc.HandleOrderCreated(context.Background(), paidOrder()))

	p, err := repo.GetByOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, p.Status)
	assert.Equal(t, []string{contracts.EventPaymentFailed}, repo.eventTypes())
}

func TestInvalidAmountPropagatesForRedelivery(t *testing.T) {
	repo := newMemPayments()
	svc := NewService(testLogger(), repo, &fakeGateway{})

	ev := paidOrder()
	ev.TotalAmount = decimal.Zero
	err := svc.HandleOrderCreated(context.Background(), ev)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.Empty(t, repo.byID, "nothing persisted before validation")
}

func TestRefundClassifiesReason(t *testing.T) {
	repo := newMemPayments()
	gw := &fakeGateway{}
	svc := NewService(testLogger(), repo, gw)

	require.NoError(t, svc.HandleOrderCreated(context.Background(), paidOrder()))
	p, err := repo.GetByOrder(context.Background(), "o1")
	require.NoError(t, err)

	require.NoError(t, svc.Refund(context.Background(), p.ID, "Duplicate charge on statement"))
	assert.Equal(t, domain.StatusRefunded, p.Status)
	assert.Equal(t, []string{"duplicate"}, gw.refunds)
}

func TestRefundRequiresCompletedPayment(t *testing.T) {
	repo := newMemPayments()
	gw := &fakeGateway{confirmErr: errors.New("card declined")}
	svc := NewService(testLogger(), repo, gw)

	require.NoError(t, svc.HandleOrderCreated(context.Background(), paidOrder()))
	p, err := repo.GetByOrder(context.Background(), "o1")
	require.NoError(t, err)

	assert.Error(t, svc.Refund(context.Background(), p.ID, "changed my mind"))
	assert.Equal(t, domain.StatusFailed, p.Status)
}

func TestRefundGatewayFailureLeavesCompleted(t *testing.T) {
	repo := newMemPayments()
	gw := &fakeGateway{}
	svc := NewService(testLogger(), repo, gw)

	require.NoError(t, svc.HandleOrderCreated(context.Background(), paidOrder()))
	p, err := repo.GetByOrder(context.Background(), "o1")
	require.NoError(t, err)

	gw.refundErr = errors.New("processor timeout")
	assert.Error(t, svc.Refund(context.Background(), p.ID, "requested"))
	assert.Equal(t, domain.StatusCompleted, p.Status, "refund failure must not move the state machine")
}
