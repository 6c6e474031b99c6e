package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hospms/apiserver/internal/services"
	"github.com/hospms/apiserver/types"
)

const (
	labReportPageSize = 50

	// maxUploadSize caps lab report files at 10 MiB.
	maxUploadSize = 10 << 20
)

// LabHandler provides the laboratory endpoints: patient directory and
// report management.
type LabHandler struct {
	patients   *services.PatientService
	labReports *services.LabReportService
}

func NewLabHandler(patients *services.PatientService, labReports *services.LabReportService) *LabHandler {
	return &LabHandler{patients: patients, labReports: labReports}
}

// LabRouter registers lab routes on the given router.
func LabRouter(r chi.Router, patients *services.PatientService, labReports *services.LabReportService) {
	handler := NewLabHandler(patients, labReports)

	r.Get("/patients", handler.ListPatients)
	r.Get("/reports", handler.ListReports)
	r.Post("/reports", handler.RegisterReport)
	r.Post("/reports/upload", handler.UploadReport)
	r.Get("/patients/{patientID}/reports", handler.PatientReports)
}

// ListPatients returns the minimal patient directory for report intake.
func (h *LabHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patients.ListRefs(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

// ListReports pages through all reports with display fields joined in.
func (h *LabHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r, labReportPageSize)

	reports, total, err := h.labReports.List(r.Context(), p.Offset(), p.PageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, p, reports, total)
}

// RegisterReportRequest records a report whose file already exists in
// storage.
type RegisterReportRequest struct {
	PatientID string `json:"patientId"`
	Type      string `json:"type"`
	FileKey   string `json:"fileKey"`
	FileURL   string `json:"fileUrl"`
	Notes     string `json:"notes"`
}

// RegisterReport records a report from an existing storage key.
func (h *LabHandler) RegisterReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
		return
	}

	var req RegisterReportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := h.labReports.Register(r.Context(), types.LabReport{
		PatientID:    req.PatientID,
		Type:         req.Type,
		FileKey:      req.FileKey,
		FileURL:      req.FileURL,
		Notes:        req.Notes,
		UploadedByID: claims.Subject,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// UploadReport accepts a multipart report file plus its metadata and
// stores both.
func (h *LabHandler) UploadReport(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "file exceeds the 10 MiB limit or the form is malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "file field is required")
		return
	}
	defer file.Close()

	report, err := h.labReports.Upload(r.Context(), types.LabReport{
		PatientID:    r.FormValue("patientId"),
		Type:         r.FormValue("type"),
		Notes:        r.FormValue("notes"),
		UploadedByID: claims.Subject,
	}, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// PatientReports returns a patient's reports with fresh presigned URLs.
func (h *LabHandler) PatientReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.labReports.ListByPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}
