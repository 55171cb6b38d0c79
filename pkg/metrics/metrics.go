package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Saga counters. StockRestoreFailures is the one operators page on:
// compensation is best-effort and a failed restore is not retried, so the
// counter is the only signal that manual reconciliation is needed.
var (
	StockReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_stock_reservations_total",
			Help: "Stock reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	StockRestores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_stock_restores_total",
			Help: "Stock restore (compensation) attempts by outcome",
		},
		[]string{"outcome"},
	)

	StockRestoreFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saga_stock_restore_failures_total",
			Help: "Restores that failed and require manual reconciliation",
		},
	)

	OrdersCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saga_orders_cancelled_total",
			Help: "Orders cancelled by the saga",
		},
	)

	Payments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_payments_total",
			Help: "Payment attempts by outcome",
		},
		[]string{"outcome"},
	)
)
