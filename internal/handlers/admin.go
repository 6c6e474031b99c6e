package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hospms/apiserver/internal/services"
)

// AdminHandler provides the admin dashboard endpoints.
type AdminHandler struct {
	users   *services.UserService
	reports *services.ReportService
}

func NewAdminHandler(users *services.UserService, reports *services.ReportService) *AdminHandler {
	return &AdminHandler{users: users, reports: reports}
}

// AdminRouter registers admin routes on the given router.
func AdminRouter(r chi.Router, users *services.UserService, reports *services.ReportService) {
	handler := NewAdminHandler(users, reports)

	r.Get("/users", handler.ListUsers)
	r.Get("/stats", handler.Stats)
	r.Get("/reports", handler.Reports)
}

// ListUsers pages through accounts, optionally filtered by email or
// name.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r, defaultPageSize)
	q := r.URL.Query().Get("q")

	users, total, err := h.users.Search(r.Context(), q, p.Offset(), p.PageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, p, users, total)
}

// Stats returns the dashboard counts.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Reports returns the activity report for an optional time window.
func (h *AdminHandler) Reports(w http.ResponseWriter, r *http.Request) {
	from, ok := parseTimeParam(w, r, "from", false)
	if !ok {
		return
	}
	to, ok := parseTimeParam(w, r, "to", true)
	if !ok {
		return
	}

	report, err := h.reports.Window(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// parseTimeParam accepts RFC 3339 or a bare date. A bare date used as
// an upper bound covers the whole day.
func parseTimeParam(w http.ResponseWriter, r *http.Request, name string, endOfDay bool) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, true
	}
	writeError(w, http.StatusBadRequest, codeInvalidInput, name+" must be a date or RFC 3339 timestamp")
	return time.Time{}, false
}
