package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/hospms/apiserver/types"
)

// Stats is the admin dashboard snapshot.
type Stats struct {
	Patients    int `json:"patients"`
	Doctors     int `json:"doctors"`
	VisitsOpen  int `json:"visitsOpen"`
	VisitsTotal int `json:"visitsTotal"`
	BillsDue    int `json:"billsDue"`
	BillsTotal  int `json:"billsTotal"`
}

// Report is the windowed activity report for admins.
type Report struct {
	NewPatients int             `json:"newPatients"`
	Visits      []types.Visit   `json:"visits"`
	Bills       []types.Bill    `json:"bills"`
	Payments    []types.Payment `json:"payments"`
	Revenue     float64         `json:"revenue"`
}

// ReportRepository aggregates counts and windows across the schema for
// the admin surfaces.
type ReportRepository struct {
	db    *sql.DB
	bills *BillRepository
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db, bills: NewBillRepository(db)}
}

// Stats counts the dashboard aggregates in one round trip.
func (r *ReportRepository) Stats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT count(*) FROM patients),
			(SELECT count(*) FROM users WHERE role = 'DOCTOR' AND is_active),
			(SELECT count(*) FROM visits WHERE status = 'OPEN'),
			(SELECT count(*) FROM visits),
			(SELECT count(*) FROM bills WHERE status IN ('DUE', 'PARTIAL')),
			(SELECT count(*) FROM bills)`
	var s Stats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.Patients,
		&s.Doctors,
		&s.VisitsOpen,
		&s.VisitsTotal,
		&s.BillsDue,
		&s.BillsTotal,
	)
	return s, err
}

// Window collects activity between from and to. Zero bounds mean an
// open end on that side.
func (r *ReportRepository) Window(ctx context.Context, from, to time.Time) (Report, error) {
	var report Report

	const patientsQuery = `
		SELECT count(*) FROM patients
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)`
	lo, hi := nullableTime(from), nullableTime(to)
	if err := r.db.QueryRowContext(ctx, patientsQuery, lo, hi).Scan(&report.NewPatients); err != nil {
		return Report{}, err
	}

	const visitsQuery = `
		SELECT v.id, v.patient_id, v.doctor_id, v.reason, v.diagnosis, v.status, v.created_at,
		       p.id, p.first_name, p.last_name
		FROM visits v
		JOIN patients p ON p.id = v.patient_id
		WHERE ($1::timestamptz IS NULL OR v.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR v.created_at <= $2)
		ORDER BY v.created_at DESC`
	rows, err := r.db.QueryContext(ctx, visitsQuery, lo, hi)
	if err != nil {
		return Report{}, err
	}
	defer rows.Close()
	report.Visits = []types.Visit{}
	for rows.Next() {
		var v types.Visit
		var ref types.PatientRef
		if err := rows.Scan(&v.ID, &v.PatientID, &v.DoctorID, &v.Reason, &v.Diagnosis, &v.Status, &v.CreatedAt,
			&ref.ID, &ref.FirstName, &ref.LastName); err != nil {
			return Report{}, err
		}
		v.Patient = &ref
		report.Visits = append(report.Visits, v)
	}
	if err := rows.Err(); err != nil {
		return Report{}, err
	}

	const billsQuery = `
		SELECT b.id, b.patient_id, b.issued_by_id, b.total, b.status, b.created_at,
		       p.id, p.first_name, p.last_name
		FROM bills b
		JOIN patients p ON p.id = b.patient_id
		WHERE ($1::timestamptz IS NULL OR b.created_at >= $1)
		  AND ($2::timestamptz IS NULL OR b.created_at <= $2)
		ORDER BY b.created_at DESC`
	billRows, err := r.db.QueryContext(ctx, billsQuery, lo, hi)
	if err != nil {
		return Report{}, err
	}
	defer billRows.Close()
	report.Bills = []types.Bill{}
	for billRows.Next() {
		var b types.Bill
		var ref types.PatientRef
		if err := billRows.Scan(&b.ID, &b.PatientID, &b.IssuedByID, &b.Total, &b.Status, &b.CreatedAt,
			&ref.ID, &ref.FirstName, &ref.LastName); err != nil {
			return Report{}, err
		}
		b.Patient = &ref
		report.Bills = append(report.Bills, b)
	}
	if err := billRows.Err(); err != nil {
		return Report{}, err
	}
	if err := r.bills.attachItems(ctx, report.Bills); err != nil {
		return Report{}, err
	}

	const paymentsQuery = `
		SELECT id, bill_id, amount, created_at
		FROM payments
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC`
	payRows, err := r.db.QueryContext(ctx, paymentsQuery, lo, hi)
	if err != nil {
		return Report{}, err
	}
	defer payRows.Close()
	report.Payments = []types.Payment{}
	for payRows.Next() {
		var p types.Payment
		if err := payRows.Scan(&p.ID, &p.BillID, &p.Amount, &p.CreatedAt); err != nil {
			return Report{}, err
		}
		report.Revenue += p.Amount
		report.Payments = append(report.Payments, p)
	}
	return report, payRows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
