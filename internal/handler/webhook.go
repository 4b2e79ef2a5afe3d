package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/templui/fractional/internal/service"
	"github.com/templui/fractional/internal/service/payment"
)

const maxWebhookBytes = 65536

type WebhookHandler struct {
	revenueService *service.RevenueService
}

func NewWebhookHandler(revenueService *service.RevenueService) *WebhookHandler {
	return &WebhookHandler{revenueService: revenueService}
}

// Revenue receives signed payment events. Events that were verified but
// not imported are acknowledged with 200 so the provider stops retrying.
func (h *WebhookHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		slog.Error("failed to read webhook body", "error", err, "provider", provider)
		fail(w, http.StatusServiceUnavailable, "failed to read body")
		return
	}

	result, err := h.revenueService.HandleWebhook(r.Context(), provider, payload, r.Header)
	if errors.Is(err, payment.ErrInvalidWebhook) {
		slog.Warn("webhook rejected", "error", err, "provider", provider)
		fail(w, http.StatusBadRequest, "webhook rejected")
		return
	}
	if err != nil {
		failErr(w, r, err)
		return
	}

	ok(w, result)
}
