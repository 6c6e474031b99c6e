package services

import (
	"context"
	"errors"

	"github.com/hospms/apiserver/internal/store"
	"github.com/hospms/apiserver/types"
)

// UserRepository defines the persistence operations for the user
// administration surface.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	Search(ctx context.Context, q string, offset, limit int) ([]types.User, int, error)
}

// UserService encapsulates user administration use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Search lists accounts for the admin user directory.
func (s *UserService) Search(ctx context.Context, q string, offset, limit int) ([]types.PublicUser, int, error) {
	users, total, err := s.repo.Search(ctx, q, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	public := make([]types.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return public, total, nil
}

// CheckStatus re-reads an account's active and verified flags, for
// routes that must notice deactivation before the token expires.
func (s *UserService) CheckStatus(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if !user.IsActive {
		return ErrAccountDeactivated
	}
	if !user.IsVerified {
		return ErrVerificationRequired
	}
	return nil
}
