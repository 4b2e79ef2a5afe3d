package handler

import (
	"net/http"

	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/service"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.ByUserID(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var profile model.Profile
	if err := decode(r, &profile); err != nil {
		failErr(w, r, err)
		return
	}

	if err := h.profileService.Update(r.Context(), userID(r), &profile); err != nil {
		failErr(w, r, err)
		return
	}

	updated, err := h.profileService.ByUserID(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, updated)
}
