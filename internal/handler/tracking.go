package handler

import (
	"net/http"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/service"
)

type TrackingHandler struct {
	goalsService    *service.GoalsService
	trackingService *service.TrackingService
}

func NewTrackingHandler(goalsService *service.GoalsService, trackingService *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{
		goalsService:    goalsService,
		trackingService: trackingService,
	}
}

func (h *TrackingHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goalsService.List(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	if goals == nil {
		goals = []*model.MonthlyGoals{}
	}
	ok(w, goals)
}

// Goals returns the month's targets, all zero when none were set.
func (h *TrackingHandler) Goals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.goalsService.ByMonth(r.Context(), userID(r), r.PathValue("month"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, goals)
}

func (h *TrackingHandler) SaveGoals(w http.ResponseWriter, r *http.Request) {
	var goals model.MonthlyGoals
	if err := decode(r, &goals); err != nil {
		failErr(w, r, err)
		return
	}
	goals.Month = r.PathValue("month")

	saved, err := h.goalsService.Save(r.Context(), userID(r), &goals)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, saved)
}

func (h *TrackingHandler) DeleteGoals(w http.ResponseWriter, r *http.Request) {
	if err := h.goalsService.Delete(r.Context(), userID(r), r.PathValue("month")); err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *TrackingHandler) Actuals(w http.ResponseWriter, r *http.Request) {
	actuals, err := h.trackingService.ActualsByDate(r.Context(), userID(r), r.PathValue("date"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, actuals)
}

// SaveActuals answers with the stored record, the updated streak and any
// achievements the save unlocked.
func (h *TrackingHandler) SaveActuals(w http.ResponseWriter, r *http.Request) {
	var actuals model.DailyActuals
	if err := decode(r, &actuals); err != nil {
		failErr(w, r, err)
		return
	}
	actuals.Date = r.PathValue("date")

	result, err := h.trackingService.SaveActuals(r.Context(), userID(r), &actuals)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, result)
}

func (h *TrackingHandler) DeleteActuals(w http.ResponseWriter, r *http.Request) {
	if err := h.trackingService.DeleteActuals(r.Context(), userID(r), r.PathValue("date")); err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *TrackingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.trackingService.Summary(r.Context(), userID(r), r.PathValue("month"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, summary)
}

func (h *TrackingHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	state, err := h.trackingService.Achievements(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, state)
}
