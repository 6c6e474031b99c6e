package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hospms/apiserver/internal/services"
	"github.com/hospms/apiserver/types"
)

// ReceptionHandler provides the front-desk endpoints: patient registry,
// doctor assignment, and billing.
type ReceptionHandler struct {
	patients *services.PatientService
	visits   *services.VisitService
	doctors  *services.DoctorService
	billing  *services.BillingService
}

func NewReceptionHandler(patients *services.PatientService, visits *services.VisitService, doctors *services.DoctorService, billing *services.BillingService) *ReceptionHandler {
	return &ReceptionHandler{
		patients: patients,
		visits:   visits,
		doctors:  doctors,
		billing:  billing,
	}
}

// ReceptionRouter registers reception routes on the given router.
func ReceptionRouter(r chi.Router, patients *services.PatientService, visits *services.VisitService, doctors *services.DoctorService, billing *services.BillingService) {
	handler := NewReceptionHandler(patients, visits, doctors, billing)

	r.Post("/patients", handler.CreatePatient)
	r.Get("/patients", handler.SearchPatients)
	r.Get("/patients/{patientID}/overview", handler.PatientOverview)
	r.Post("/assign", handler.AssignDoctor)
	r.Get("/doctors", handler.ListDoctors)
	r.Post("/bills", handler.CreateBill)
	r.Get("/bills", handler.ListBills)
	r.Post("/bills/{billID}/payments", handler.RecordPayment)
}

// CreatePatientRequest is the patient registration payload.
type CreatePatientRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Phone       string `json:"phone"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dateOfBirth"`
	Address     string `json:"address"`
}

// CreatePatient registers a patient.
func (h *ReceptionHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if !decodeBody(w, r, &req) {
		return
	}

	patient := types.Patient{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Gender:    req.Gender,
		Address:   req.Address,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "dateOfBirth must be YYYY-MM-DD")
			return
		}
		patient.DateOfBirth = &dob
	}

	created, err := h.patients.Create(r.Context(), patient)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// SearchPatients pages through patients, optionally filtered by name
// or phone.
func (h *ReceptionHandler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r, defaultPageSize)
	q := r.URL.Query().Get("q")

	patients, total, err := h.patients.Search(r.Context(), q, p.Offset(), p.PageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, p, patients, total)
}

// PatientOverview returns the patient with their visits, prescriptions,
// and bills.
func (h *ReceptionHandler) PatientOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.patients.Overview(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// AssignDoctorRequest is the assignment payload.
type AssignDoctorRequest struct {
	PatientID string `json:"patientId"`
	DoctorID  string `json:"doctorId"`
	Reason    string `json:"reason"`
}

// AssignDoctor opens a visit for the patient with the chosen doctor.
func (h *ReceptionHandler) AssignDoctor(w http.ResponseWriter, r *http.Request) {
	var req AssignDoctorRequest
	if !decodeBody(w, r, &req) {
		return
	}

	visit, err := h.visits.Assign(r.Context(), req.PatientID, req.DoctorID, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, visit)
}

// ListDoctors pages through the doctors directory.
func (h *ReceptionHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r, defaultPageSize)
	q := r.URL.Query().Get("q")

	doctors, total, err := h.doctors.List(r.Context(), q, p.Offset(), p.PageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, p, doctors, total)
}

// CreateBillRequest is the billing payload. Line totals are never read
// from it.
type CreateBillRequest struct {
	PatientID string              `json:"patientId"`
	Items     []services.BillLine `json:"items"`
}

// CreateBill issues a bill for a patient.
func (h *ReceptionHandler) CreateBill(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeNotAuthenticated, "not authenticated")
		return
	}

	var req CreateBillRequest
	if !decodeBody(w, r, &req) {
		return
	}

	bill, err := h.billing.Create(r.Context(), req.PatientID, claims.Subject, req.Items)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

// ListBills pages through bills, optionally filtered by patient name.
func (h *ReceptionHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	p := parsePagination(r, defaultPageSize)
	q := r.URL.Query().Get("q")

	bills, total, err := h.billing.List(r.Context(), q, p.Offset(), p.PageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writePage(w, p, bills, total)
}

// RecordPaymentRequest is the payment payload.
type RecordPaymentRequest struct {
	Amount float64 `json:"amount"`
}

// RecordPayment records a payment against a bill.
func (h *ReceptionHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	payment, err := h.billing.Pay(r.Context(), chi.URLParam(r, "billID"), req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}
