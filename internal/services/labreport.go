package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hospms/apiserver/internal/storage"
	"github.com/hospms/apiserver/types"
)

const labReportPresignTTL = time.Hour

// ErrStorageUnavailable is returned when a file operation is requested
// but no object storage backend is configured.
var ErrStorageUnavailable = errors.New("object storage is not configured")

// LabReportRepository defines persistence operations for lab reports.
type LabReportRepository interface {
	Create(ctx context.Context, report types.LabReport) (types.LabReport, error)
	Get(ctx context.Context, id string) (types.LabReport, error)
	ListByPatient(ctx context.Context, patientID string) ([]types.LabReport, error)
	List(ctx context.Context, offset, limit int) ([]types.LabReport, int, error)
}

// LabReportService encapsulates lab report use-cases. Files live in
// object storage; the service stays usable without one, minus the
// upload and presign paths.
type LabReportService struct {
	repo    LabReportRepository
	storage *storage.Storage
	log     zerolog.Logger
}

func NewLabReportService(repo LabReportRepository, st *storage.Storage, log zerolog.Logger) *LabReportService {
	return &LabReportService{repo: repo, storage: st, log: log}
}

// Register records a report whose file already exists under fileKey.
func (s *LabReportService) Register(ctx context.Context, report types.LabReport) (types.LabReport, error) {
	if strings.TrimSpace(report.PatientID) == "" {
		return types.LabReport{}, fmt.Errorf("%w: patientId is required", ErrInvalidInput)
	}
	if strings.TrimSpace(report.FileKey) == "" {
		return types.LabReport{}, fmt.Errorf("%w: fileKey is required", ErrInvalidInput)
	}
	return s.repo.Create(ctx, report)
}

// Upload stores the file under lab-reports/<uuid><ext> and records the
// report against the patient.
func (s *LabReportService) Upload(ctx context.Context, report types.LabReport, filename string, r io.Reader, size int64, contentType string) (types.LabReport, error) {
	if s.storage == nil {
		return types.LabReport{}, ErrStorageUnavailable
	}
	if strings.TrimSpace(report.PatientID) == "" {
		return types.LabReport{}, fmt.Errorf("%w: patientId is required", ErrInvalidInput)
	}

	key := "lab-reports/" + uuid.NewString() + path.Ext(filename)
	url, err := s.storage.Put(ctx, key, r, size, contentType)
	if err != nil {
		return types.LabReport{}, fmt.Errorf("upload report file: %w", err)
	}

	report.FileKey = key
	report.FileURL = url
	created, err := s.repo.Create(ctx, report)
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.log.Warn().Err(delErr).Str("key", key).Msg("could not remove orphaned report file")
		}
		return types.LabReport{}, err
	}
	return created, nil
}

// Get returns one report with its patient display fields.
func (s *LabReportService) Get(ctx context.Context, id string) (types.LabReport, error) {
	return s.repo.Get(ctx, id)
}

// ListByPatient returns a patient's reports, replacing stored file URLs
// with short-lived presigned ones when storage is configured.
func (s *LabReportService) ListByPatient(ctx context.Context, patientID string) ([]types.LabReport, error) {
	reports, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	s.presignAll(ctx, reports)
	return reports, nil
}

// List pages through all reports with display fields joined in.
func (s *LabReportService) List(ctx context.Context, offset, limit int) ([]types.LabReport, int, error) {
	reports, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	s.presignAll(ctx, reports)
	return reports, total, nil
}

// FileURL returns a presigned URL for a report's file.
func (s *LabReportService) FileURL(ctx context.Context, reportID string) (types.LabReport, string, error) {
	report, err := s.repo.Get(ctx, reportID)
	if err != nil {
		return types.LabReport{}, "", err
	}
	url, err := s.PresignKey(ctx, report.FileKey)
	if err != nil {
		return types.LabReport{}, "", err
	}
	return report, url, nil
}

// PresignKey returns a presigned URL for an arbitrary stored key.
func (s *LabReportService) PresignKey(ctx context.Context, key string) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}
	return s.storage.Presign(ctx, key, labReportPresignTTL)
}

func (s *LabReportService) presignAll(ctx context.Context, reports []types.LabReport) {
	if s.storage == nil {
		return
	}
	for i := range reports {
		if reports[i].FileKey == "" {
			continue
		}
		url, err := s.storage.Presign(ctx, reports[i].FileKey, labReportPresignTTL)
		if err != nil {
			s.log.Warn().Err(err).Str("key", reports[i].FileKey).Msg("could not presign report file")
			continue
		}
		reports[i].FileURL = url
	}
}
