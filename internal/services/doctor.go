package services

import (
	"context"
	"errors"

	"github.com/hospms/apiserver/internal/store"
	"github.com/hospms/apiserver/types"
)

// DoctorRepository defines persistence operations for doctor profiles.
type DoctorRepository interface {
	GetByID(ctx context.Context, id string) (types.Doctor, error)
	GetByUserID(ctx context.Context, userID string) (types.Doctor, error)
	Create(ctx context.Context, userID string) (types.Doctor, error)
	Update(ctx context.Context, id, specialty, notes string) (types.Doctor, error)
	List(ctx context.Context, q string, offset, limit int) ([]types.Doctor, int, error)
}

// ErrDoctorNotFound is returned when a user has no doctor profile.
var ErrDoctorNotFound = errors.New("doctor profile not found")

// DoctorService encapsulates doctor profile use-cases.
type DoctorService struct {
	repo DoctorRepository
}

func NewDoctorService(repo DoctorRepository) *DoctorService {
	return &DoctorService{repo: repo}
}

// ProfileByUser resolves the doctor profile behind a user account.
func (s *DoctorService) ProfileByUser(ctx context.Context, userID string) (types.Doctor, error) {
	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Doctor{}, ErrDoctorNotFound
		}
		return types.Doctor{}, err
	}
	return doctor, nil
}

// Get resolves a profile by its own id.
func (s *DoctorService) Get(ctx context.Context, id string) (types.Doctor, error) {
	doctor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Doctor{}, ErrDoctorNotFound
		}
		return types.Doctor{}, err
	}
	return doctor, nil
}

// UpsertProfile updates the caller's profile, creating it first if
// registration failed to (profile creation there is best-effort).
func (s *DoctorService) UpsertProfile(ctx context.Context, userID, specialty, notes string) (types.Doctor, error) {
	doctor, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.Doctor{}, err
		}
		doctor, err = s.repo.Create(ctx, userID)
		if err != nil {
			return types.Doctor{}, err
		}
	}
	return s.repo.Update(ctx, doctor.ID, specialty, notes)
}

// List returns the assignable doctors directory.
func (s *DoctorService) List(ctx context.Context, q string, offset, limit int) ([]types.Doctor, int, error) {
	return s.repo.List(ctx, q, offset, limit)
}
