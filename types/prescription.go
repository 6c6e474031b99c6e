package types

import "time"

// Prescription represents medicines prescribed to a patient by a
// doctor, optionally tied to a specific visit.
type Prescription struct {
	// ID is the unique identifier of the prescription.
	ID string `json:"id" db:"id"`

	// PatientID references the patient the prescription is for.
	PatientID string `json:"patientId" db:"patient_id"`

	// DoctorID references the prescribing doctor's profile.
	DoctorID string `json:"doctorId" db:"doctor_id"`

	// VisitID references the visit the prescription was written
	// during, if any.
	VisitID *string `json:"visitId" db:"visit_id"`

	// Medicines is the free-form medicines and dosage text.
	Medicines string `json:"medicines" db:"medicines"`

	// Diagnosis is the diagnosis the prescription addresses.
	Diagnosis string `json:"diagnosis" db:"diagnosis"`

	// Suggestion holds follow-up advice for the patient.
	Suggestion string `json:"suggestion" db:"suggestion"`

	// CreatedAt is the timestamp when the prescription was written.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
