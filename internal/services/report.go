package services

import (
	"context"
	"time"

	"github.com/hospms/apiserver/internal/store"
)

// ReportRepository defines the aggregate queries behind admin surfaces.
type ReportRepository interface {
	Stats(ctx context.Context) (store.Stats, error)
	Window(ctx context.Context, from, to time.Time) (store.Report, error)
}

// ReportService exposes the admin dashboard aggregates.
type ReportService struct {
	repo ReportRepository
}

func NewReportService(repo ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

func (s *ReportService) Stats(ctx context.Context) (store.Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *ReportService) Window(ctx context.Context, from, to time.Time) (store.Report, error) {
	return s.repo.Window(ctx, from, to)
}
