package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hospms/apiserver/types"
)

const uniqueViolation = "23505"

const userColumns = `id, email, full_name, role, password_hash, is_active, is_verified, otp, otp_expires_at, created_at, updated_at`

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Role,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsVerified,
		&user.OTP,
		&user.OTPExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts a new account. A unique-email collision surfaces as
// ErrDuplicate so the caller can answer with a conflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (id, email, full_name, role, password_hash, is_active, is_verified, otp, otp_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.FullName,
		user.Role,
		user.PasswordHash,
		user.IsActive,
		user.IsVerified,
		user.OTP,
		user.OTPExpiresAt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return types.User{}, ErrDuplicate
		}
		return types.User{}, err
	}
	return user, nil
}

// SetOTP replaces the outstanding challenge. Code and expiry are
// written as a pair, overwriting any previous challenge.
func (r *UserRepository) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET otp = $1, otp_expires_at = $2, updated_at = now()
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, code, expiresAt, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// MarkVerified flips the account to verified and clears the challenge,
// but only if the stored code still equals the one being redeemed and
// the account is still unverified. A verify that races a resend (or a
// repeat of an already-redeemed code) matches zero rows and reports
// ErrNotFound.
func (r *UserRepository) MarkVerified(ctx context.Context, id, code string) error {
	const query = `
		UPDATE users
		SET is_verified = TRUE, otp = NULL, otp_expires_at = NULL, updated_at = now()
		WHERE id = $1 AND otp = $2 AND is_verified = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, code)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Search lists accounts matching q against email or full name, newest
// first, with the total count for pagination.
func (r *UserRepository) Search(ctx context.Context, q string, offset, limit int) ([]types.User, int, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE $1 = '' OR email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, q, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []types.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT count(*) FROM users
		WHERE $1 = '' OR email ILIKE '%' || $1 || '%' OR full_name ILIKE '%' || $1 || '%'`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
