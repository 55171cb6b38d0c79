package kafka

import (
	"github.com/acmeshop/orderflow/internal/contracts"
	"github.com/acmeshop/orderflow/internal/order/application"
	"github.com/acmeshop/orderflow/pkg/saga"
)

// NewRegistry wires the order service's saga handlers. The same registry
// serves the product, inventory and payment topics.
func NewRegistry(svc *application.Service) *saga.Registry {
	r := saga.NewRegistry()
	r.Register(contracts.EventPaymentProcessed, saga.Typed(svc.HandlePaymentProcessed))
	r.Register(contracts.EventPaymentFailed, saga.Typed(svc.HandlePaymentFailed))
	r.Register(contracts.EventProductReservationFailed, saga.Typed(svc.HandleProductReservationFailed))
	r.Register(contracts.EventInventoryReservationFailed, saga.Typed(svc.HandleInventoryReservationFailed))
	return r
}
