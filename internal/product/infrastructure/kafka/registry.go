package kafka

import (
	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/product/application"
	"github.com/acmeshop/orderflow/pkg/saga"
)

// NewRegistry wires the product service's saga handlers against the
// order topic: reserve on creation, compensate on cancellation.
func NewRegistry(svc *application.Service) *saga.Registry {
	r := saga.NewRegistry()
	r.Register(contracts.EventOrderCreated, saga.Typed(svc.ReserveForOrder))
	r.Register(contracts.EventOrderCancelled, saga.Typed(svc.HandleOrderCancelled))
	return r
}
