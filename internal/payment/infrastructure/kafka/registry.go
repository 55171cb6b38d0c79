package kafka

import (
	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/payment/application"
	"github.com/acmeshop/orderflow/pkg/saga"
)

// NewRegistry wires the payment service's saga handlers: OrderCreated
// is the charge command.
func NewRegistry(svc *application.Service) *saga.Registry {
	r := saga.NewRegistry()
	r.Register(contracts.EventOrderCreated, saga.Typed(svc.HandleOrderCreated))
	return r
}
