package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hospms/apiserver/types"
)

// PatientRepository defines persistence operations for patients.
type PatientRepository interface {
	GetByID(ctx context.Context, id string) (types.Patient, error)
	Create(ctx context.Context, patient types.Patient) (types.Patient, error)
	Search(ctx context.Context, q string, offset, limit int) ([]types.Patient, int, error)
	ListRefs(ctx context.Context) ([]types.PatientRef, error)
}

// PatientOverview bundles everything reception sees about one patient.
type PatientOverview struct {
	Patient       types.Patient        `json:"patient"`
	Visits        []types.Visit        `json:"visits"`
	Prescriptions []types.Prescription `json:"prescriptions"`
	Bills         []types.Bill         `json:"bills"`
}

// PatientService encapsulates the patient registry use-cases.
type PatientService struct {
	repo          PatientRepository
	visits        *VisitService
	prescriptions *PrescriptionService
	billing       *BillingService
}

func NewPatientService(repo PatientRepository, visits *VisitService, prescriptions *PrescriptionService, billing *BillingService) *PatientService {
	return &PatientService{
		repo:          repo,
		visits:        visits,
		prescriptions: prescriptions,
		billing:       billing,
	}
}

func (s *PatientService) Create(ctx context.Context, patient types.Patient) (types.Patient, error) {
	patient.FirstName = strings.TrimSpace(patient.FirstName)
	patient.LastName = strings.TrimSpace(patient.LastName)
	if patient.FirstName == "" || patient.LastName == "" {
		return types.Patient{}, fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	return s.repo.Create(ctx, patient)
}

func (s *PatientService) Search(ctx context.Context, q string, offset, limit int) ([]types.Patient, int, error) {
	return s.repo.Search(ctx, q, offset, limit)
}

func (s *PatientService) ListRefs(ctx context.Context) ([]types.PatientRef, error) {
	return s.repo.ListRefs(ctx)
}

// Overview assembles the patient record with their visits,
// prescriptions, and bills.
func (s *PatientService) Overview(ctx context.Context, patientID string) (PatientOverview, error) {
	patient, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return PatientOverview{}, err
	}
	visits, err := s.visits.ListByPatient(ctx, patientID)
	if err != nil {
		return PatientOverview{}, err
	}
	prescriptions, err := s.prescriptions.ListByPatient(ctx, patientID)
	if err != nil {
		return PatientOverview{}, err
	}
	bills, err := s.billing.ListByPatient(ctx, patientID)
	if err != nil {
		return PatientOverview{}, err
	}
	return PatientOverview{
		Patient:       patient,
		Visits:        visits,
		Prescriptions: prescriptions,
		Bills:         bills,
	}, nil
}
