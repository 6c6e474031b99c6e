package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hospms/apiserver/types"
)

// DoctorRepository handles persistence for doctor profiles.
type DoctorRepository struct {
	db *sql.DB
}

func NewDoctorRepository(db *sql.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

func (r *DoctorRepository) GetByID(ctx context.Context, id string) (types.Doctor, error) {
	const query = `
		SELECT id, user_id, specialty, notes, created_at
		FROM doctors
		WHERE id = $1`
	return r.scanDoctor(r.db.QueryRowContext(ctx, query, id))
}

func (r *DoctorRepository) GetByUserID(ctx context.Context, userID string) (types.Doctor, error) {
	const query = `
		SELECT id, user_id, specialty, notes, created_at
		FROM doctors
		WHERE user_id = $1`
	return r.scanDoctor(r.db.QueryRowContext(ctx, query, userID))
}

// Create adds an empty profile for the given user.
func (r *DoctorRepository) Create(ctx context.Context, userID string) (types.Doctor, error) {
	doctor := types.Doctor{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	const query = `
		INSERT INTO doctors (id, user_id, specialty, notes, created_at)
		VALUES ($1, $2, '', '', $3)`
	if _, err := r.db.ExecContext(ctx, query, doctor.ID, doctor.UserID, doctor.CreatedAt); err != nil {
		return types.Doctor{}, err
	}
	return doctor, nil
}

// Update sets the profile's editable fields.
func (r *DoctorRepository) Update(ctx context.Context, id, specialty, notes string) (types.Doctor, error) {
	const query = `
		UPDATE doctors
		SET specialty = $1, notes = $2
		WHERE id = $3
		RETURNING id, user_id, specialty, notes, created_at`
	return r.scanDoctor(r.db.QueryRowContext(ctx, query, specialty, notes, id))
}

// List returns doctor profiles with their user's display fields joined
// in, ordered by name. Active DOCTOR users missing a profile are
// backfilled first, so every doctor account is always assignable.
func (r *DoctorRepository) List(ctx context.Context, q string, offset, limit int) ([]types.Doctor, int, error) {
	const backfill = `
		INSERT INTO doctors (id, user_id, specialty, notes, created_at)
		SELECT gen_random_uuid(), u.id, '', '', now()
		FROM users u
		WHERE u.role = 'DOCTOR' AND u.is_active
		  AND NOT EXISTS (SELECT 1 FROM doctors d WHERE d.user_id = u.id)`
	if _, err := r.db.ExecContext(ctx, backfill); err != nil {
		return nil, 0, err
	}

	const query = `
		SELECT d.id, d.user_id, d.specialty, d.notes, d.created_at, u.full_name, u.email
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE u.is_active AND ($1 = '' OR u.full_name ILIKE '%' || $1 || '%')
		ORDER BY u.full_name ASC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, q, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	doctors := []types.Doctor{}
	for rows.Next() {
		var d types.Doctor
		if err := rows.Scan(&d.ID, &d.UserID, &d.Specialty, &d.Notes, &d.CreatedAt, &d.FullName, &d.Email); err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT count(*)
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE u.is_active AND ($1 = '' OR u.full_name ILIKE '%' || $1 || '%')`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, err
	}

	return doctors, total, nil
}

func (r *DoctorRepository) scanDoctor(row *sql.Row) (types.Doctor, error) {
	var d types.Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Specialty, &d.Notes, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Doctor{}, ErrNotFound
		}
		return types.Doctor{}, err
	}
	return d, nil
}
