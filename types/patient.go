package types

import "time"

// Patient represents a patient record in the hospital registry.
type Patient struct {
	// ID is the unique identifier of the patient.
	ID string `json:"id" db:"id"`

	// FirstName and LastName are the patient's legal name parts.
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`

	// Phone is the patient's contact number, searchable at reception.
	Phone string `json:"phone" db:"phone"`

	// Gender is free-form as captured at registration.
	Gender string `json:"gender" db:"gender"`

	// DateOfBirth is optional; a nil value means it was not captured.
	DateOfBirth *time.Time `json:"dateOfBirth" db:"date_of_birth"`

	// Address is the patient's postal address.
	Address string `json:"address" db:"address"`

	// CreatedAt is the timestamp when the record was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// PatientRef is the minimal patient projection exposed to lab staff
// and embedded in cross-entity listings.
type PatientRef struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
