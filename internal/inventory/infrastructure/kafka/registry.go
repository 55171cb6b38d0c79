package kafka

import (
	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/inventory/application"
	"github.com/acmeshop/orderflow/pkg/saga"
)

// NewRegistry wires the inventory service's saga handlers: reserve on
// order creation, commit on payment, seed ledger rows on product creation.
func NewRegistry(svc *application.Service) *saga.Registry {
	r := saga.NewRegistry()
	r.Register(contracts.EventOrderCreated, saga.Typed(svc.ReserveForOrder))
	r.Register(contracts.EventPaymentProcessed, saga.Typed(svc.HandlePaymentProcessed))
	r.Register(contracts.EventProductCreated, saga.Typed(svc.HandleProductCreated))
	return r
}
