package handler

import (
	"net/http"

	"github.com/templui/fractional/internal/service"
)

type InsightHandler struct {
	insightService *service.InsightService
}

func NewInsightHandler(insightService *service.InsightService) *InsightHandler {
	return &InsightHandler{insightService: insightService}
}

func (h *InsightHandler) Active(w http.ResponseWriter, r *http.Request) {
	insights, err := h.insightService.Active(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, insights)
}

// Generate runs the generator now. A run inside the debounce window is
// reported as debounced rather than failed.
func (h *InsightHandler) Generate(w http.ResponseWriter, r *http.Request) {
	run, err := h.insightService.Generate(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, run)
}

func (h *InsightHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.insightService.Dismiss(r.Context(), userID(r), r.PathValue("id")); err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *InsightHandler) Action(w http.ResponseWriter, r *http.Request) {
	if err := h.insightService.Action(r.Context(), userID(r), r.PathValue("id")); err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, nil)
}
