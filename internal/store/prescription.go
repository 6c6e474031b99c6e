package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hospms/apiserver/types"
)

// PrescriptionRepository handles persistence for prescriptions.
type PrescriptionRepository struct {
	db *sql.DB
}

func NewPrescriptionRepository(db *sql.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

func (r *PrescriptionRepository) Create(ctx context.Context, rx types.Prescription) (types.Prescription, error) {
	rx.ID = uuid.NewString()
	rx.CreatedAt = time.Now()

	const query = `
		INSERT INTO prescriptions (id, patient_id, doctor_id, visit_id, medicines, diagnosis, suggestion, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		rx.ID,
		rx.PatientID,
		rx.DoctorID,
		rx.VisitID,
		rx.Medicines,
		rx.Diagnosis,
		rx.Suggestion,
		rx.CreatedAt,
	)
	if err != nil {
		return types.Prescription{}, err
	}
	return rx, nil
}

func (r *PrescriptionRepository) ListByPatient(ctx context.Context, patientID string) ([]types.Prescription, error) {
	const query = `
		SELECT id, patient_id, doctor_id, visit_id, medicines, diagnosis, suggestion, created_at
		FROM prescriptions
		WHERE patient_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []types.Prescription{}
	for rows.Next() {
		var rx types.Prescription
		if err := rows.Scan(&rx.ID, &rx.PatientID, &rx.DoctorID, &rx.VisitID, &rx.Medicines, &rx.Diagnosis, &rx.Suggestion, &rx.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, rx)
	}
	return items, rows.Err()
}
