package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hospms/apiserver/internal/services"
	"github.com/hospms/apiserver/types"
)

// FilesHandler serves time-limited access to stored report files.
type FilesHandler struct {
	labReports *services.LabReportService
}

func NewFilesHandler(labReports *services.LabReportService) *FilesHandler {
	return &FilesHandler{labReports: labReports}
}

// FilesRouter registers file access routes on the given router.
func FilesRouter(r chi.Router, labReports *services.LabReportService) {
	handler := NewFilesHandler(labReports)

	r.With(RequireRoles(types.RoleLab, types.RoleDoctor, types.RoleAdmin)).
		Get("/lab-reports/{reportID}", handler.ReportFileURL)
	// Stored keys contain slashes, so the key is matched as a wildcard.
	r.With(RequireRoles(types.RoleAdmin)).
		Get("/*", handler.RedirectToFile)
}

// ReportFileURL returns a presigned URL for a report's file plus the
// patient it belongs to.
func (h *FilesHandler) ReportFileURL(w http.ResponseWriter, r *http.Request) {
	report, url, err := h.labReports.FileURL(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":     url,
		"patient": report.Patient,
	})
}

// RedirectToFile redirects to a presigned URL for an arbitrary key.
func (h *FilesHandler) RedirectToFile(w http.ResponseWriter, r *http.Request) {
	url, err := h.labReports.PresignKey(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
