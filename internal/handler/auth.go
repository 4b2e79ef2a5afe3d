package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/templui/fractional/internal/ctxkeys"
	"github.com/templui/fractional/internal/model"
	"github.com/templui/fractional/internal/service"
)

type AuthHandler struct {
	authService    *service.AuthService
	profileService *service.ProfileService
}

func NewAuthHandler(authService *service.AuthService, profileService *service.ProfileService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		profileService: profileService,
	}
}

type session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		failErr(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		failErr(w, r, err)
		return
	}

	h.startSession(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		failErr(w, r, err)
		return
	}

	user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Warn("login failed", "email", req.Email)
		failErr(w, r, err)
		return
	}

	h.startSession(w, r, http.StatusOK, user)
}

// startSession issues a JWT both as cookie (browsers) and in the body
// (bearer clients).
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, expiresAt, err := h.authService.GenerateJWT(user)
	if err != nil {
		failErr(w, r, err)
		return
	}

	h.authService.SetJWTCookie(w, token, expiresAt)
	user.PasswordHash = nil

	slog.Info("user signed in", "user_id", user.ID)
	writeJSON(w, status, Result{Success: true, Data: session{Token: token, ExpiresAt: expiresAt, User: user}})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	ok(w, nil)
}

// Me returns the signed-in user with their business profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	profile, err := h.profileService.ByUserID(r.Context(), user.ID)
	if err != nil {
		failErr(w, r, err)
		return
	}

	ok(w, map[string]any{
		"user":       user,
		"profile":    profile,
		"csrf_token": ctxkeys.CSRFToken(r.Context()),
	})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		failErr(w, r, err)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), userID(r), req.CurrentPassword, req.NewPassword); err != nil {
		failErr(w, r, err)
		return
	}

	ok(w, nil)
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.DeleteAccount(r.Context(), userID(r)); err != nil {
		failErr(w, r, err)
		return
	}

	h.authService.ClearJWTCookie(w)
	ok(w, nil)
}
