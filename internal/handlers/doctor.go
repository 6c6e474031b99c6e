package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hospms/apiserver/internal/services"
	"github.com/hospms/apiserver/types"
)

const historyPageSize = 50

// DoctorHandler provides the clinical endpoints: dashboard, treatment
// notes, history, and prescriptions.
type DoctorHandler struct {
	doctors       *services.DoctorService
	visits        *services.VisitService
	prescriptions *services.PrescriptionService
	labReports    *services.LabReportService
}

func NewDoctorHandler(doctors *services.DoctorService, visits *services.VisitService, prescriptions *services.PrescriptionService, labReports *services.LabReportService) *DoctorHandler {
	return &DoctorHandler{
		doctors:       doctors,
		visits:        visits,
		prescriptions: prescriptions,
		labReports:    labReports,
	}
}

// DoctorRouter registers doctor routes on the given router.
func DoctorRouter(r chi.Router, doctors *services.DoctorService, visits *services.VisitService, prescriptions *services.PrescriptionService, labReports *services.LabReportService) {
	handler := NewDoctorHandler(doctors, visits, prescriptions, labReports)

	r.Get("/dashboard", handler.Dashboard)
	r.Get("/profile", handler.Profile)
	r.Put("/profile", handler.UpsertProfile)
	r.Post("/visits/{visitID}/notes", handler.AddNote)
	r.Get("/patients/{patientID}/history", handler.PatientHistory)
	r.Get("/patients/{patientID}/lab-reports", handler.PatientLabReports)
	r.Get("/patients/{patientID}/prescriptions", handler.PatientPrescriptions)
	r.Post("/prescriptions", handler.CreatePrescription)
}

// callerDoctorID resolves the doctor profile the request acts as. An
// admin may act as any doctor by passing doctorId; everyone else acts
// as their own profile.
func (h *DoctorHandler) callerDoctorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
		return "", false
	}
	if claims.Role == types.RoleAdmin {
		if id := r.URL.Query().Get("doctorId"); id != "" {
			return id, true
		}
	}
	doctor, err := h.doctors.ProfileByUser(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return "", false
	}
	return doctor.ID, true
}

// Dashboard returns the caller's recent open visits.
func (h *DoctorHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.callerDoctorID(w, r)
	if !ok {
		return
	}

	visits, err := h.visits.Dashboard(r.Context(), doctorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": visits})
}

// Profile returns the caller's doctor profile.
func (h *DoctorHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
		return
	}

	doctor, err := h.doctors.ProfileByUser(r.Context(), claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// UpsertProfileRequest is the profile payload.
type UpsertProfileRequest struct {
	Specialty string `json:"specialty"`
	Notes     string `json:"notes"`
}

// UpsertProfile updates the caller's doctor profile.
func (h *DoctorHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
		return
	}

	var req UpsertProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	doctor, err := h.doctors.UpsertProfile(r.Context(), claims.Subject, req.Specialty, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// AddNoteRequest is the treatment note payload.
type AddNoteRequest struct {
	Content string `json:"content"`
}

// AddNote attaches a treatment note to a visit.
func (h *DoctorHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
		return
	}

	var req AddNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	note, err := h.visits.AddNote(r.Context(), chi.URLParam(r, "visitID"), claims.Subject, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// PatientHistory pages through a patient's visits, optionally filtered
// by reason or diagnosis text and by doctor.
func (h *DoctorHandler) PatientHistory(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r, historyPageSize)
	q := r.URL.Query().Get("q")
	doctorID := r.URL.Query().Get("doctorId")

	visits, total, err := h.visits.History(r.Context(), chi.URLParam(r, "patientID"), q, doctorID, p.Offset(), p.PageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, p, visits, total)
}

// PatientLabReports returns a patient's lab reports.
func (h *DoctorHandler) PatientLabReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.labReports.ListByPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// PatientPrescriptions returns a patient's prescriptions.
func (h *DoctorHandler) PatientPrescriptions(w http.ResponseWriter, r *http.Request) {
	prescriptions, err := h.prescriptions.ListByPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prescriptions": prescriptions})
}

// CreatePrescriptionRequest is the prescription payload.
type CreatePrescriptionRequest struct {
	PatientID  string  `json:"patientId"`
	VisitID    *string `json:"visitId"`
	Medicines  string  `json:"medicines"`
	Diagnosis  string  `json:"diagnosis"`
	Suggestion string  `json:"suggestion"`
}

// CreatePrescription records a prescription written by the caller.
func (h *DoctorHandler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.callerDoctorID(w, r)
	if !ok {
		return
	}

	var req CreatePrescriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rx, err := h.prescriptions.Create(r.Context(), types.Prescription{
		PatientID:  req.PatientID,
		DoctorID:   doctorID,
		VisitID:    req.VisitID,
		Medicines:  req.Medicines,
		Diagnosis:  req.Diagnosis,
		Suggestion: req.Suggestion,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rx)
}
