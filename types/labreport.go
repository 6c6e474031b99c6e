package types

import "time"

// LabReport represents a laboratory report attached to a patient.
// The report file itself lives in object storage under FileKey; FileURL
// is a convenience URL that listings replace with a short-lived
// presigned URL when storage is configured.
type LabReport struct {
	// ID is the unique identifier of the report.
	ID string `json:"id" db:"id"`

	// PatientID references the patient the report belongs to.
	PatientID string `json:"patientId" db:"patient_id"`

	// Type is the kind of report (e.g. "BLOOD", "XRAY"), free-form.
	Type string `json:"type" db:"type"`

	// FileKey is the object-storage key of the report file.
	FileKey string `json:"fileKey" db:"file_key"`

	// FileURL is the stored URL of the report file.
	FileURL string `json:"fileUrl" db:"file_url"`

	// Notes holds free-form remarks from the lab technician.
	Notes string `json:"notes" db:"notes"`

	// UploadedByID references the user who uploaded the report.
	UploadedByID string `json:"uploadedById" db:"uploaded_by_id"`

	// Patient and UploadedBy carry display fields when the report is
	// loaded with its relations joined in.
	Patient    *PatientRef `json:"patient,omitempty" db:"-"`
	UploadedBy *UserRef    `json:"uploadedBy,omitempty" db:"-"`

	// CreatedAt is the timestamp when the report was registered.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// UserRef is a minimal user projection embedded in listings.
type UserRef struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}
