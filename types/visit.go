package types

import "time"

// Visit statuses. A visit opens when reception assigns a patient to a
// doctor and closes when the doctor is done with it.
const (
	VisitStatusOpen   = "OPEN"
	VisitStatusClosed = "CLOSED"
)

// Visit represents one patient encounter with a doctor.
type Visit struct {
	// ID is the unique identifier of the visit.
	ID string `json:"id" db:"id"`

	// PatientID references the patient being seen.
	PatientID string `json:"patientId" db:"patient_id"`

	// DoctorID references the doctor profile the visit is assigned to.
	DoctorID string `json:"doctorId" db:"doctor_id"`

	// Reason is the complaint recorded at assignment time.
	Reason string `json:"reason" db:"reason"`

	// Diagnosis is filled in by the doctor during the visit.
	Diagnosis string `json:"diagnosis" db:"diagnosis"`

	// Status is OPEN or CLOSED.
	Status string `json:"status" db:"status"`

	// Patient carries the patient's display fields when the visit is
	// loaded with its patient joined in.
	Patient *PatientRef `json:"patient,omitempty" db:"-"`

	// CreatedAt is the timestamp when the visit was opened.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TreatmentNote is a timestamped clinical note attached to a visit.
type TreatmentNote struct {
	// ID is the unique identifier of the note.
	ID string `json:"id" db:"id"`

	// VisitID references the visit the note belongs to.
	VisitID string `json:"visitId" db:"visit_id"`

	// AuthorID references the user who wrote the note.
	AuthorID string `json:"authorId" db:"author_id"`

	// Content is the note body.
	Content string `json:"content" db:"content"`

	// CreatedAt is the timestamp when the note was written.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
