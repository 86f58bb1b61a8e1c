package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct{ pool *pgxpool.Pool }

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (
  id, tenant_id, client_id, number, total_amount, currency, status, issued_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  total_amount=$5, currency=$6, status=$7, updated_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.TenantID, inv.ClientID, inv.Number, inv.TotalAmount.String(), inv.Currency, inv.Status, inv.IssuedAt, inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// FindByID locks the row when a transaction handle is present so the
// settlement ledger's paid-sum recomputation cannot race a concurrent
// partial payment on the same invoice.
func (r *invoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	q := `SELECT id, tenant_id, client_id, number, total_amount, currency, status, issued_at, updated_at FROM invoices WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}

	inv := &model.Invoice{}
	var total string
	if err := row.Scan(&inv.ID, &inv.TenantID, &inv.ClientID, &inv.Number, &total, &inv.Currency, &inv.Status, &inv.IssuedAt, &inv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	inv.TotalAmount = d
	return inv, nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.InvoiceStatus) error {
	const q = `UPDATE invoices SET status=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) AddPayment(ctx context.Context, tx repository.Tx, p *model.InvoicePayment) error {
	const q = `
INSERT INTO invoice_payments (
  id, invoice_id, settlement_id, vendor_name, external_txn_id, amount, currency, paid_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
);`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.InvoiceID, p.SettlementID, p.VendorName, p.ExternalTxnID, p.Amount.String(), p.Currency, p.PaidAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *invoiceRepo) SumPayments(ctx context.Context, tx repository.Tx, invoiceID string) (decimal.Decimal, error) {
	const q = `SELECT COALESCE(SUM(amount),0)::text FROM invoice_payments WHERE invoice_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, invoiceID)
	if err != nil {
		return decimal.Zero, err
	}

	var sum string
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, domain.ErrReadDatabaseRow
	}
	d, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, domain.ErrReadDatabaseRow
	}
	return d, nil
}
