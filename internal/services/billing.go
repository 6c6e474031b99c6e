package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hospms/apiserver/types"
)

// BillRepository defines persistence operations for bills and payments.
type BillRepository interface {
	Create(ctx context.Context, bill types.Bill) (types.Bill, error)
	List(ctx context.Context, q string, offset, limit int) ([]types.Bill, int, error)
	ListByPatient(ctx context.Context, patientID string) ([]types.Bill, error)
	RecordPayment(ctx context.Context, billID string, amount float64) (types.Payment, error)
}

// BillLine is one requested line on a new bill. Prices come from the
// client, totals never do.
type BillLine struct {
	Label     string  `json:"label"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// BillingService encapsulates billing use-cases.
type BillingService struct {
	repo BillRepository
}

func NewBillingService(repo BillRepository) *BillingService {
	return &BillingService{repo: repo}
}

// Create issues a bill for the patient. Line totals and the bill total
// are computed here from quantity and unit price.
func (s *BillingService) Create(ctx context.Context, patientID, issuedByID string, lines []BillLine) (types.Bill, error) {
	if strings.TrimSpace(patientID) == "" {
		return types.Bill{}, fmt.Errorf("%w: patientId is required", ErrInvalidInput)
	}
	if len(lines) == 0 {
		return types.Bill{}, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}

	bill := types.Bill{
		PatientID:  patientID,
		IssuedByID: issuedByID,
		Items:      make([]types.BillItem, 0, len(lines)),
	}
	for _, line := range lines {
		label := strings.TrimSpace(line.Label)
		if label == "" {
			return types.Bill{}, fmt.Errorf("%w: item label is required", ErrInvalidInput)
		}
		if line.Quantity < 1 {
			return types.Bill{}, fmt.Errorf("%w: item quantity must be at least 1", ErrInvalidInput)
		}
		if line.UnitPrice < 0 {
			return types.Bill{}, fmt.Errorf("%w: item unit price must not be negative", ErrInvalidInput)
		}
		lineTotal := float64(line.Quantity) * line.UnitPrice
		bill.Items = append(bill.Items, types.BillItem{
			Label:     label,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
		bill.Total += lineTotal
	}

	return s.repo.Create(ctx, bill)
}

func (s *BillingService) List(ctx context.Context, q string, offset, limit int) ([]types.Bill, int, error) {
	return s.repo.List(ctx, q, offset, limit)
}

func (s *BillingService) ListByPatient(ctx context.Context, patientID string) ([]types.Bill, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// Pay records a payment against a bill.
func (s *BillingService) Pay(ctx context.Context, billID string, amount float64) (types.Payment, error) {
	if amount <= 0 {
		return types.Payment{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return s.repo.RecordPayment(ctx, billID, amount)
}
