package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/acmeshop/orderflow/internal/payment/application"
	"github.com/acmeshop/orderflow/internal/payment/domain"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("payment-http"),
	}
}

type refundReq struct {
	Reason string `json:"reason"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/payments/{id}/refund", h.refund)
	return r
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RefundPayment")
	defer span.End()

	var req refundReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	err := h.service.Refund(ctx, chi.URLParam(r, "id"), req.Reason)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, domain.ErrPaymentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrNoExternalRef):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.log.Error("refund failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
