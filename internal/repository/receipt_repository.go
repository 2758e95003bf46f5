package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/smartpark/internal/model"
)

// ReceiptRepo stores paid rentals in the receipts table.  All timestamps
// are stored in UTC.
type ReceiptRepo struct {
	db *sql.DB
}

// NewReceiptRepo returns a new ReceiptRepo bound to the given database.
func NewReceiptRepo(db *sql.DB) *ReceiptRepo { return &ReceiptRepo{db: db} }

const receiptColumns = `id, number, name, email, plate, model, plaza, spot,
	subtotal_cents, tax_cents, total_cents, payment_ref, paid_at`

// Create inserts rec and fills in its generated ID.  A duplicate receipt
// number yields ErrConflict.
func (r *ReceiptRepo) Create(ctx context.Context, rec *model.Receipt) error {
	const q = `INSERT INTO receipts (number, name, email, plate, model, plaza, spot,
		subtotal_cents, tax_cents, total_cents, payment_ref, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		rec.Number, rec.Name, strings.ToLower(strings.TrimSpace(rec.Email)), rec.Plate, rec.Model,
		rec.Plaza, rec.Spot, rec.SubtotalCents, rec.TaxCents, rec.TotalCents,
		rec.PaymentRef, rec.PaidAt.UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	return nil
}

// LatestByEmail returns the most recent receipt paid with email, or
// ErrNotFound.
func (r *ReceiptRepo) LatestByEmail(ctx context.Context, email string) (*model.Receipt, error) {
	q := `SELECT ` + receiptColumns + ` FROM receipts WHERE email = ? ORDER BY paid_at DESC, id DESC LIMIT 1`
	rec, err := scanReceipt(r.db.QueryRowContext(ctx, q, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns receipts newest first.  A limit of zero or less returns
// every row.
func (r *ReceiptRepo) List(ctx context.Context, limit int) ([]model.Receipt, error) {
	q := `SELECT ` + receiptColumns + ` FROM receipts ORDER BY paid_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Receipt, 0)
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(s rowScanner) (*model.Receipt, error) {
	var rec model.Receipt
	var ref sql.NullString
	if err := s.Scan(&rec.ID, &rec.Number, &rec.Name, &rec.Email, &rec.Plate, &rec.Model,
		&rec.Plaza, &rec.Spot, &rec.SubtotalCents, &rec.TaxCents, &rec.TotalCents,
		&ref, &rec.PaidAt); err != nil {
		return nil, err
	}
	if ref.Valid {
		v := ref.String
		rec.PaymentRef = &v
	}
	return &rec, nil
}
