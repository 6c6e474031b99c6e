package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hospms/apiserver/types"
)

// VisitRepository handles persistence for visits and treatment notes.
type VisitRepository struct {
	db *sql.DB
}

func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create opens a new visit for the patient with the given doctor.
func (r *VisitRepository) Create(ctx context.Context, visit types.Visit) (types.Visit, error) {
	visit.ID = uuid.NewString()
	visit.Status = types.VisitStatusOpen
	visit.CreatedAt = time.Now()

	const query = `
		INSERT INTO visits (id, patient_id, doctor_id, reason, diagnosis, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		visit.ID,
		visit.PatientID,
		visit.DoctorID,
		visit.Reason,
		visit.Diagnosis,
		visit.Status,
		visit.CreatedAt,
	)
	if err != nil {
		return types.Visit{}, err
	}
	return visit, nil
}

// ListOpenByDoctor returns the doctor's most recent open visits with
// patient display fields joined in.
func (r *VisitRepository) ListOpenByDoctor(ctx context.Context, doctorID string, limit int) ([]types.Visit, error) {
	const query = `
		SELECT v.id, v.patient_id, v.doctor_id, v.reason, v.diagnosis, v.status, v.created_at,
		       p.id, p.first_name, p.last_name
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE v.doctor_id = $1 AND v.status = 'OPEN'
		ORDER BY v.created_at DESC
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, doctorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visits := []types.Visit{}
	for rows.Next() {
		var v types.Visit
		var ref types.PatientRef
		if err := rows.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.Reason, &v.Diagnosis, &v.Status, &v.CreatedAt,
			&ref.ID, &ref.FirstName, &ref.LastName); err != nil {
			return nil, err
		}
		v.Patient = &ref
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// HistoryByPatient pages through a patient's visits, optionally
// filtered by a text match on reason/diagnosis and by doctor.
func (r *VisitRepository) HistoryByPatient(ctx context.Context, patientID, q, doctorID string, offset, limit int) ([]types.Visit, int, error) {
	const query = `
		SELECT id, patient_id, doctor_id, reason, diagnosis, status, created_at
		FROM visits
		WHERE patient_id = $1
		  AND ($2 = '' OR reason ILIKE '%' || $2 || '%' OR diagnosis ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR doctor_id = $3::uuid)
		ORDER BY created_at DESC
		OFFSET $4 LIMIT $5`
	rows, err := r.db.QueryContext(ctx, query, patientID, q, doctorID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	visits := []types.Visit{}
	for rows.Next() {
		var v types.Visit
		if err := rows.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.Reason, &v.Diagnosis, &v.Status, &v.CreatedAt); err != nil {
			return nil, 0, err
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT count(*)
		FROM visits
		WHERE patient_id = $1
		  AND ($2 = '' OR reason ILIKE '%' || $2 || '%' OR diagnosis ILIKE '%' || $2 || '%')
		  AND ($3 = '' OR doctor_id = $3::uuid)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, patientID, q, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	return visits, total, nil
}

// ListByPatient returns every visit of a patient, newest first.
func (r *VisitRepository) ListByPatient(ctx context.Context, patientID string) ([]types.Visit, error) {
	const query = `
		SELECT id, patient_id, doctor_id, reason, diagnosis, status, created_at
		FROM visits
		WHERE patient_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visits := []types.Visit{}
	for rows.Next() {
		var v types.Visit
		if err := rows.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.Reason, &v.Diagnosis, &v.Status, &v.CreatedAt); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// AddNote attaches a treatment note to a visit.
func (r *VisitRepository) AddNote(ctx context.Context, note types.TreatmentNote) (types.TreatmentNote, error) {
	note.ID = uuid.NewString()
	note.CreatedAt = time.Now()

	const query = `
		INSERT INTO treatment_notes (id, visit_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, note.ID, note.VisitID, note.AuthorID, note.Content, note.CreatedAt)
	if err != nil {
		return types.TreatmentNote{}, err
	}
	return note, nil
}
