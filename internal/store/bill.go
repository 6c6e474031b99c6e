package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hospms/apiserver/types"
)

// BillRepository handles persistence for bills, items, and payments.
type BillRepository struct {
	db *sql.DB
}

func NewBillRepository(db *sql.DB) *BillRepository {
	return &BillRepository{db: db}
}

// Create inserts a bill and its line items in one transaction, so a
// bill never exists without its items.
func (r *BillRepository) Create(ctx context.Context, bill types.Bill) (types.Bill, error) {
	bill.ID = uuid.NewString()
	bill.Status = types.BillStatusDue
	bill.CreatedAt = time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Bill{}, err
	}
	defer tx.Rollback()

	const billQuery = `
		INSERT INTO bills (id, patient_id, issued_by_id, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, billQuery, bill.ID, bill.PatientID, bill.IssuedByID, bill.Total, bill.Status, bill.CreatedAt); err != nil {
		return types.Bill{}, err
	}

	const itemQuery = `
		INSERT INTO bill_items (id, bill_id, label, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range bill.Items {
		item := &bill.Items[i]
		item.ID = uuid.NewString()
		item.BillID = bill.ID
		if _, err := tx.ExecContext(ctx, itemQuery, item.ID, item.BillID, item.Label, item.Quantity, item.UnitPrice, item.LineTotal); err != nil {
			return types.Bill{}, fmt.Errorf("insert bill item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Bill{}, err
	}
	return bill, nil
}

// List pages through bills with their patient display fields and items
// joined in, optionally filtered by patient name.
func (r *BillRepository) List(ctx context.Context, q string, offset, limit int) ([]types.Bill, int, error) {
	const query = `
		SELECT b.id, b.patient_id, b.issued_by_id, b.total, b.status, b.created_at,
		       p.id, p.first_name, p.last_name
		FROM bills b
		JOIN patients p ON p.id = b.patient_id
		WHERE $1 = '' OR p.first_name ILIKE '%' || $1 || '%' OR p.last_name ILIKE '%' || $1 || '%'
		ORDER BY b.created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, q, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bills := []types.Bill{}
	for rows.Next() {
		var b types.Bill
		var ref types.PatientRef
		if err := rows.Scan(&b.ID, &b.PatientID, &b.IssuedByID, &b.Total, &b.Status, &b.CreatedAt,
			&ref.ID, &ref.FirstName, &ref.LastName); err != nil {
			return nil, 0, err
		}
		b.Patient = &ref
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachItems(ctx, bills); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT count(*)
		FROM bills b
		JOIN patients p ON p.id = b.patient_id
		WHERE $1 = '' OR p.first_name ILIKE '%' || $1 || '%' OR p.last_name ILIKE '%' || $1 || '%'`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, err
	}

	return bills, total, nil
}

// ListByPatient returns a patient's bills with items, newest first.
func (r *BillRepository) ListByPatient(ctx context.Context, patientID string) ([]types.Bill, error) {
	const query = `
		SELECT id, patient_id, issued_by_id, total, status, created_at
		FROM bills
		WHERE patient_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := []types.Bill{}
	for rows.Next() {
		var b types.Bill
		if err := rows.Scan(&b.ID, &b.PatientID, &b.IssuedByID, &b.Total, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachItems(ctx, bills); err != nil {
		return nil, err
	}
	return bills, nil
}

// RecordPayment inserts a payment and moves the bill's status in the
// same transaction, based on the paid sum against the total.
func (r *BillRepository) RecordPayment(ctx context.Context, billID string, amount float64) (types.Payment, error) {
	payment := types.Payment{
		ID:        uuid.NewString(),
		BillID:    billID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Payment{}, err
	}
	defer tx.Rollback()

	var total float64
	if err := tx.QueryRowContext(ctx, `SELECT total FROM bills WHERE id = $1 FOR UPDATE`, billID).Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Payment{}, ErrNotFound
		}
		return types.Payment{}, err
	}

	const insertQuery = `
		INSERT INTO payments (id, bill_id, amount, created_at)
		VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insertQuery, payment.ID, payment.BillID, payment.Amount, payment.CreatedAt); err != nil {
		return types.Payment{}, err
	}

	var paid float64
	if err := tx.QueryRowContext(ctx, `SELECT coalesce(sum(amount), 0) FROM payments WHERE bill_id = $1`, billID).Scan(&paid); err != nil {
		return types.Payment{}, err
	}
	status := types.BillStatusPartial
	if paid >= total {
		status = types.BillStatusPaid
	}
	if _, err := tx.ExecContext(ctx, `UPDATE bills SET status = $2 WHERE id = $1`, billID, status); err != nil {
		return types.Payment{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Payment{}, err
	}
	return payment, nil
}

func (r *BillRepository) attachItems(ctx context.Context, bills []types.Bill) error {
	if len(bills) == 0 {
		return nil
	}

	index := make(map[string]*types.Bill, len(bills))
	ids := make([]string, 0, len(bills))
	for i := range bills {
		bills[i].Items = []types.BillItem{}
		index[bills[i].ID] = &bills[i]
		ids = append(ids, bills[i].ID)
	}

	const query = `
		SELECT id, bill_id, label, quantity, unit_price, line_total
		FROM bill_items
		WHERE bill_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item types.BillItem
		if err := rows.Scan(&item.ID, &item.BillID, &item.Label, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return err
		}
		if bill, ok := index[item.BillID]; ok {
			bill.Items = append(bill.Items, item)
		}
	}
	return rows.Err()
}
