package types

import "time"

// Bill statuses. Payments move a bill from DUE through PARTIAL to PAID.
const (
	BillStatusDue     = "DUE"
	BillStatusPartial = "PARTIAL"
	BillStatusPaid    = "PAID"
)

// Bill represents an invoice issued to a patient at reception.
type Bill struct {
	// ID is the unique identifier of the bill.
	ID string `json:"id" db:"id"`

	// PatientID references the billed patient.
	PatientID string `json:"patientId" db:"patient_id"`

	// IssuedByID references the user who issued the bill.
	IssuedByID string `json:"issuedById" db:"issued_by_id"`

	// Total is the bill total in the smallest display unit, as the sum
	// of all line totals. Computed server-side, never trusted from the
	// client.
	Total float64 `json:"total" db:"total"`

	// Status is DUE, PARTIAL, or PAID.
	Status string `json:"status" db:"status"`

	// Items are the bill's line items.
	Items []BillItem `json:"items" db:"-"`

	// Patient carries the patient's display fields when the bill is
	// loaded with its patient joined in.
	Patient *PatientRef `json:"patient,omitempty" db:"-"`

	// CreatedAt is the timestamp when the bill was issued.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BillItem is a single line item on a bill.
type BillItem struct {
	// ID is the unique identifier of the line item.
	ID string `json:"id" db:"id"`

	// BillID references the owning bill.
	BillID string `json:"billId" db:"bill_id"`

	// Label describes the billed service or article.
	Label string `json:"label" db:"label"`

	// Quantity is the billed quantity, at least 1.
	Quantity int `json:"quantity" db:"quantity"`

	// UnitPrice is the price per unit.
	UnitPrice float64 `json:"unitPrice" db:"unit_price"`

	// LineTotal is Quantity times UnitPrice, computed server-side.
	LineTotal float64 `json:"lineTotal" db:"line_total"`
}

// Payment records money received against a bill.
type Payment struct {
	// ID is the unique identifier of the payment.
	ID string `json:"id" db:"id"`

	// BillID references the bill the payment applies to.
	BillID string `json:"billId" db:"bill_id"`

	// Amount is the amount received.
	Amount float64 `json:"amount" db:"amount"`

	// CreatedAt is the timestamp when the payment was recorded.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
