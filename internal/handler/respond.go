package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/templui/fractional/internal/ctxkeys"
	"github.com/templui/fractional/internal/export"
	"github.com/templui/fractional/internal/repository"
	"github.com/templui/fractional/internal/service"
	"github.com/templui/fractional/internal/storage"
	"github.com/templui/fractional/internal/validation"
)

const maxBodyBytes = 1 << 20

// Result is the envelope every API response uses.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Result{Success: true, Data: data})
}

func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Result{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Result{Error: message})
}

// failErr maps err onto a status code. Unexpected errors are logged and
// answered without detail.
func failErr(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status >= 500 && status != http.StatusServiceUnavailable {
		attrs := []any{"error", err, "path", r.URL.Path, "request_id", ctxkeys.RequestID(r.Context())}
		if user := ctxkeys.User(r.Context()); user != nil {
			attrs = append(attrs, "user_id", user.ID)
		}
		slog.Error("request failed", attrs...)
	}
	fail(w, status, message)
}

func classify(err error) (int, string) {
	switch {
	case validation.IsValidation(err):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, service.ErrEmailAlreadyExists):
		return http.StatusConflict, err.Error()

	case errors.Is(err, export.ErrSheetsUnauthorized):
		return http.StatusConflict, "google sheets access expired, please reconnect"

	case errors.Is(err, service.ErrSheetsNotConfigured),
		errors.Is(err, storage.ErrNotConfigured):
		return http.StatusServiceUnavailable, err.Error()

	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrGoalsNotFound),
		errors.Is(err, repository.ErrActualsNotFound),
		errors.Is(err, repository.ErrOpportunityNotFound),
		errors.Is(err, repository.ErrContactNotFound),
		errors.Is(err, repository.ErrInsightNotFound),
		errors.Is(err, repository.ErrSheetsNotConnected),
		errors.Is(err, export.ErrSheetsNotFound),
		errors.Is(err, service.ErrUnknownProvider):
		return http.StatusNotFound, err.Error()
	}

	return http.StatusInternalServerError, "something went wrong, please try again"
}

// decode reads a JSON body into v. Unknown fields are rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return validation.Invalid("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// userID returns the authenticated user. Routes are wrapped in RequireAuth.
func userID(r *http.Request) string {
	return ctxkeys.User(r.Context()).ID
}
