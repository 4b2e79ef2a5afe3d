package handler

import (
	"net/http"
	"strconv"

	"github.com/templui/fractional/internal/service"
)

type AdvisorHandler struct {
	advisorService *service.AdvisorService
}

func NewAdvisorHandler(advisorService *service.AdvisorService) *AdvisorHandler {
	return &AdvisorHandler{advisorService: advisorService}
}

type askRequest struct {
	Question         string `json:"question"`
	ConversationType string `json:"conversation_type"`
}

// Ask always answers 200 once the question is valid. An unavailable
// provider yields an apology with degraded=true.
func (h *AdvisorHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decode(r, &req); err != nil {
		failErr(w, r, err)
		return
	}

	resp, err := h.advisorService.Ask(r.Context(), userID(r), req.Question, req.ConversationType)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, resp)
}

func (h *AdvisorHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.advisorService.History(r.Context(), userID(r), limit)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, messages)
}

func (h *AdvisorHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.advisorService.ClearHistory(r.Context(), userID(r)); err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, nil)
}
