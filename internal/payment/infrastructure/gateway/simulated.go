package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/acmeshop/orderflow/internal/payment/application"
)

type intent struct {
	amount decimal.Decimal
	status string
}

// Simulated is the default in-process gateway adapter. Intents over the
// decline threshold are rejected at the confirm step, which exercises
// the same failure path a real processor produces.
type Simulated struct {
	mu          sync.Mutex
	declineOver decimal.Decimal
	intents     map[string]*intent
}

func NewSimulated(declineOver decimal.Decimal) *Simulated {
	return &Simulated{
		declineOver: declineOver,
		intents:     make(map[string]*intent),
	}
}

func (g *Simulated) CreateIntent(ctx context.Context, req application.IntentRequest) (application.IntentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ref := "pi_" + uuid.NewString()
	g.intents[ref] = &intent{amount: req.Amount, status: "requires_confirmation"}
	return application.IntentResult{Reference: ref}, nil
}

func (g *Simulated) ConfirmIntent(ctx context.Context, reference string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	in, ok := g.intents[reference]
	if !ok {
		return fmt.Errorf("unknown payment intent %s", reference)
	}
	if g.declineOver.IsPositive() && in.amount.GreaterThan(g.declineOver) {
		in.status = "declined"
		return fmt.Errorf("card declined: amount %s over limit", in.amount)
	}
	in.status = "succeeded"
	return nil
}

func (g *Simulated) Refund(ctx context.Context, reference, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	in, ok := g.intents[reference]
	if !ok {
		return fmt.Errorf("unknown payment intent %s", reference)
	}
	if in.status != "succeeded" {
		return fmt.Errorf("cannot refund intent in status %s", in.status)
	}
	in.status = "refunded:" + reason
	return nil
}

func (g *Simulated) Status(ctx context.Context, reference string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	in, ok := g.intents[reference]
	if !ok {
		return "", fmt.Errorf("unknown payment intent %s", reference)
	}
	return in.status, nil
}
