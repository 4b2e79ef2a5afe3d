package handler

import (
	"net/http"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/service"
)

type PipelineHandler struct {
	opportunityService *service.OpportunityService
	contactService     *service.ContactService
}

func NewPipelineHandler(opportunityService *service.OpportunityService, contactService *service.ContactService) *PipelineHandler {
	return &PipelineHandler{
		opportunityService: opportunityService,
		contactService:     contactService,
	}
}

type stageRequest struct {
	Stage       string   `json:"stage"`
	Probability *float64 `json:"probability"`
}

// View returns the month's pipeline summary, health and opportunities.
func (h *PipelineHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.opportunityService.View(r.Context(), userID(r), r.PathValue("month"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, view)
}

func (h *PipelineHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	opps, err := h.opportunityService.List(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	if opps == nil {
		opps = []*model.Opportunity{}
	}
	ok(w, opps)
}

func (h *PipelineHandler) Opportunity(w http.ResponseWriter, r *http.Request) {
	opp, err := h.opportunityService.ByID(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, opp)
}

func (h *PipelineHandler) CreateOpportunity(w http.ResponseWriter, r *http.Request) {
	var opp model.Opportunity
	if err := decode(r, &opp); err != nil {
		failErr(w, r, err)
		return
	}

	saved, err := h.opportunityService.Create(r.Context(), userID(r), &opp)
	if err != nil {
		failErr(w, r, err)
		return
	}
	created(w, saved)
}

func (h *PipelineHandler) UpdateOpportunity(w http.ResponseWriter, r *http.Request) {
	var opp model.Opportunity
	if err := decode(r, &opp); err != nil {
		failErr(w, r, err)
		return
	}

	saved, err := h.opportunityService.Update(r.Context(), userID(r), r.PathValue("id"), &opp)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, saved)
}

// UpdateStage moves an opportunity through the pipeline. Won and lost pin
// the probability.
func (h *PipelineHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := decode(r, &req); err != nil {
		failErr(w, r, err)
		return
	}

	saved, err := h.opportunityService.UpdateStage(r.Context(), userID(r), r.PathValue("id"), req.Stage, req.Probability)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, saved)
}

func (h *PipelineHandler) DeleteOpportunity(w http.ResponseWriter, r *http.Request) {
	if err := h.opportunityService.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *PipelineHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.contactService.List(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	if contacts == nil {
		contacts = []*model.Contact{}
	}
	ok(w, contacts)
}

func (h *PipelineHandler) Contact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.contactService.ByID(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, contact)
}

func (h *PipelineHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	var contact model.Contact
	if err := decode(r, &contact); err != nil {
		failErr(w, r, err)
		return
	}

	saved, err := h.contactService.Create(r.Context(), userID(r), &contact)
	if err != nil {
		failErr(w, r, err)
		return
	}
	created(w, saved)
}

func (h *PipelineHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	var contact model.Contact
	if err := decode(r, &contact); err != nil {
		failErr(w, r, err)
		return
	}

	saved, err := h.contactService.Update(r.Context(), userID(r), r.PathValue("id"), &contact)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, saved)
}

func (h *PipelineHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := h.contactService.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, nil)
}

func (h *PipelineHandler) ReferralStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.contactService.ReferralStats(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	if stats == nil {
		stats = []*model.ReferralStats{}
	}
	ok(w, stats)
}
