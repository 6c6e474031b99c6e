package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hospms/apiserver/types"
)

const dashboardVisitLimit = 20

// VisitRepository defines persistence operations for visits and notes.
type VisitRepository interface {
	Create(ctx context.Context, visit types.Visit) (types.Visit, error)
	ListOpenByDoctor(ctx context.Context, doctorID string, limit int) ([]types.Visit, error)
	HistoryByPatient(ctx context.Context, patientID, q, doctorID string, offset, limit int) ([]types.Visit, int, error)
	ListByPatient(ctx context.Context, patientID string) ([]types.Visit, error)
	AddNote(ctx context.Context, note types.TreatmentNote) (types.TreatmentNote, error)
}

// VisitService encapsulates visit use-cases.
type VisitService struct {
	repo VisitRepository
}

func NewVisitService(repo VisitRepository) *VisitService {
	return &VisitService{repo: repo}
}

// Assign opens a visit for the patient with the given doctor.
func (s *VisitService) Assign(ctx context.Context, patientID, doctorID, reason string) (types.Visit, error) {
	if strings.TrimSpace(patientID) == "" || strings.TrimSpace(doctorID) == "" {
		return types.Visit{}, fmt.Errorf("%w: patientId and doctorId are required", ErrInvalidInput)
	}
	return s.repo.Create(ctx, types.Visit{
		PatientID: patientID,
		DoctorID:  doctorID,
		Reason:    reason,
	})
}

// Dashboard returns the doctor's recent open visits.
func (s *VisitService) Dashboard(ctx context.Context, doctorID string) ([]types.Visit, error) {
	return s.repo.ListOpenByDoctor(ctx, doctorID, dashboardVisitLimit)
}

func (s *VisitService) History(ctx context.Context, patientID, q, doctorID string, offset, limit int) ([]types.Visit, int, error) {
	return s.repo.HistoryByPatient(ctx, patientID, q, doctorID, offset, limit)
}

func (s *VisitService) ListByPatient(ctx context.Context, patientID string) ([]types.Visit, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// AddNote records a treatment note against a visit.
func (s *VisitService) AddNote(ctx context.Context, visitID, authorID, content string) (types.TreatmentNote, error) {
	if strings.TrimSpace(content) == "" {
		return types.TreatmentNote{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	return s.repo.AddNote(ctx, types.TreatmentNote{
		VisitID:  visitID,
		AuthorID: authorID,
		Content:  content,
	})
}
