package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hospms/apiserver/types"
)

// PrescriptionRepository defines persistence operations for prescriptions.
type PrescriptionRepository interface {
	Create(ctx context.Context, rx types.Prescription) (types.Prescription, error)
	ListByPatient(ctx context.Context, patientID string) ([]types.Prescription, error)
}

// PrescriptionService encapsulates prescription use-cases.
type PrescriptionService struct {
	repo PrescriptionRepository
}

func NewPrescriptionService(repo PrescriptionRepository) *PrescriptionService {
	return &PrescriptionService{repo: repo}
}

// Create records a prescription written by a doctor.
func (s *PrescriptionService) Create(ctx context.Context, rx types.Prescription) (types.Prescription, error) {
	if strings.TrimSpace(rx.PatientID) == "" {
		return types.Prescription{}, fmt.Errorf("%w: patientId is required", ErrInvalidInput)
	}
	if strings.TrimSpace(rx.Medicines) == "" {
		return types.Prescription{}, fmt.Errorf("%w: medicines is required", ErrInvalidInput)
	}
	return s.repo.Create(ctx, rx)
}

func (s *PrescriptionService) ListByPatient(ctx context.Context, patientID string) ([]types.Prescription, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
