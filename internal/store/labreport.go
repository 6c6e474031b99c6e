package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hospms/apiserver/types"
)

// LabReportRepository handles persistence for lab reports.
type LabReportRepository struct {
	db *sql.DB
}

func NewLabReportRepository(db *sql.DB) *LabReportRepository {
	return &LabReportRepository{db: db}
}

func (r *LabReportRepository) Create(ctx context.Context, report types.LabReport) (types.LabReport, error) {
	report.ID = uuid.NewString()
	report.CreatedAt = time.Now()

	const query = `
		INSERT INTO lab_reports (id, patient_id, type, file_key, file_url, notes, uploaded_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		report.ID,
		report.PatientID,
		report.Type,
		report.FileKey,
		report.FileURL,
		report.Notes,
		report.UploadedByID,
		report.CreatedAt,
	)
	if err != nil {
		return types.LabReport{}, err
	}
	return report, nil
}

// Get returns one report with its patient display fields joined in.
func (r *LabReportRepository) Get(ctx context.Context, id string) (types.LabReport, error) {
	const query = `
		SELECT lr.id, lr.patient_id, lr.type, lr.file_key, lr.file_url, lr.notes, lr.uploaded_by_id, lr.created_at,
		       p.id, p.first_name, p.last_name
		FROM lab_reports lr
		JOIN patients p ON p.id = lr.patient_id
		WHERE lr.id = $1`
	var report types.LabReport
	var ref types.PatientRef
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&report.ID,
		&report.PatientID,
		&report.Type,
		&report.FileKey,
		&report.FileURL,
		&report.Notes,
		&report.UploadedByID,
		&report.CreatedAt,
		&ref.ID,
		&ref.FirstName,
		&ref.LastName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LabReport{}, ErrNotFound
		}
		return types.LabReport{}, err
	}
	report.Patient = &ref
	return report, nil
}

func (r *LabReportRepository) ListByPatient(ctx context.Context, patientID string) ([]types.LabReport, error) {
	const query = `
		SELECT id, patient_id, type, file_key, file_url, notes, uploaded_by_id, created_at
		FROM lab_reports
		WHERE patient_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []types.LabReport{}
	for rows.Next() {
		var report types.LabReport
		if err := rows.Scan(&report.ID, &report.PatientID, &report.Type, &report.FileKey, &report.FileURL,
			&report.Notes, &report.UploadedByID, &report.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// List pages through all reports with patient and uploader display
// fields joined in, newest first.
func (r *LabReportRepository) List(ctx context.Context, offset, limit int) ([]types.LabReport, int, error) {
	const query = `
		SELECT lr.id, lr.patient_id, lr.type, lr.file_key, lr.file_url, lr.notes, lr.uploaded_by_id, lr.created_at,
		       p.id, p.first_name, p.last_name,
		       u.id, u.full_name
		FROM lab_reports lr
		JOIN patients p ON p.id = lr.patient_id
		JOIN users u ON u.id = lr.uploaded_by_id
		ORDER BY lr.created_at DESC
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reports := []types.LabReport{}
	for rows.Next() {
		var report types.LabReport
		var patient types.PatientRef
		var uploader types.UserRef
		if err := rows.Scan(&report.ID, &report.PatientID, &report.Type, &report.FileKey, &report.FileURL,
			&report.Notes, &report.UploadedByID, &report.CreatedAt,
			&patient.ID, &patient.FirstName, &patient.LastName,
			&uploader.ID, &uploader.FullName); err != nil {
			return nil, 0, err
		}
		report.Patient = &patient
		report.UploadedBy = &uploader
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM lab_reports`).Scan(&total); err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}
