package handler

import (
	"encoding/json"
	"net/http"

	"github.com/templui/fractional/internal/service"
	"github.com/templui/fractional/internal/validation"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// connectRequest carries the OAuth token the client obtained from Google.
type connectRequest struct {
	SpreadsheetID string          `json:"spreadsheet_id"`
	Token         json.RawMessage `json:"token"`
}

func (h *ExportHandler) ConnectSheets(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decode(r, &req); err != nil {
		failErr(w, r, err)
		return
	}
	if len(req.Token) == 0 {
		failErr(w, r, validation.Invalid("token", "is required"))
		return
	}

	conn, err := h.exportService.ConnectSheets(r.Context(), userID(r), req.SpreadsheetID, req.Token)
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, conn)
}

func (h *ExportHandler) SheetsStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := h.exportService.SheetsConnection(r.Context(), userID(r))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, conn)
}

func (h *ExportHandler) DisconnectSheets(w http.ResponseWriter, r *http.Request) {
	if err := h.exportService.DisconnectSheets(r.Context(), userID(r)); err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, nil)
}

// ExportSheets writes the month into the connected spreadsheet.
func (h *ExportHandler) ExportSheets(w http.ResponseWriter, r *http.Request) {
	result, err := h.exportService.ExportSheets(r.Context(), userID(r), r.PathValue("month"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, result)
}

// ExportCSV uploads one CSV per table and returns download links.
func (h *ExportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	files, err := h.exportService.ExportCSV(r.Context(), userID(r), r.PathValue("month"))
	if err != nil {
		failErr(w, r, err)
		return
	}
	ok(w, files)
}
