package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hospms/apiserver/types"
)

const patientColumns = `id, first_name, last_name, phone, gender, date_of_birth, address, created_at, updated_at`

// PatientRepository handles persistence for patient records.
type PatientRepository struct {
	db *sql.DB
}

func NewPatientRepository(db *sql.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func scanPatient(row interface{ Scan(...any) error }) (types.Patient, error) {
	var p types.Patient
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Phone,
		&p.Gender,
		&p.DateOfBirth,
		&p.Address,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Patient{}, ErrNotFound
		}
		return types.Patient{}, err
	}
	return p, nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id string) (types.Patient, error) {
	const query = `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	return scanPatient(r.db.QueryRowContext(ctx, query, id))
}

func (r *PatientRepository) Create(ctx context.Context, patient types.Patient) (types.Patient, error) {
	now := time.Now()
	patient.ID = uuid.NewString()
	patient.CreatedAt = now
	patient.UpdatedAt = now

	const query = `
		INSERT INTO patients (id, first_name, last_name, phone, gender, date_of_birth, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		patient.ID,
		patient.FirstName,
		patient.LastName,
		patient.Phone,
		patient.Gender,
		patient.DateOfBirth,
		patient.Address,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return types.Patient{}, err
	}
	return patient, nil
}

// Search lists patients matching q against names or phone, most
// recently updated first.
func (r *PatientRepository) Search(ctx context.Context, q string, offset, limit int) ([]types.Patient, int, error) {
	const query = `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE $1 = ''
		   OR first_name ILIKE '%' || $1 || '%'
		   OR last_name ILIKE '%' || $1 || '%'
		   OR phone ILIKE '%' || $1 || '%'
		ORDER BY updated_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, q, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	patients := []types.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT count(*)
		FROM patients
		WHERE $1 = ''
		   OR first_name ILIKE '%' || $1 || '%'
		   OR last_name ILIKE '%' || $1 || '%'
		   OR phone ILIKE '%' || $1 || '%'`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, err
	}

	return patients, total, nil
}

// ListRefs returns the minimal patient directory ordered by name, for
// surfaces that only need ids and display names.
func (r *PatientRepository) ListRefs(ctx context.Context) ([]types.PatientRef, error) {
	const query = `
		SELECT id, first_name, last_name
		FROM patients
		ORDER BY last_name ASC, first_name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []types.PatientRef{}
	for rows.Next() {
		var ref types.PatientRef
		if err := rows.Scan(&ref.ID, &ref.FirstName, &ref.LastName); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
