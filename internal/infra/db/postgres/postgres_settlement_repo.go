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

var _ repository.SettlementRepository = (*settlementRepo)(nil)

type settlementRepo struct{ pool *pgxpool.Pool }

func NewSettlementRepo(pool *pgxpool.Pool) *settlementRepo {
	return &settlementRepo{pool: pool}
}

// Insert relies on the unique index on (vendor_name, external_txn_id).
// A violation maps to domain.ErrDuplicateSettlement so the ledger can take
// the already-settled path without any external locking.
func (r *settlementRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.SettlementRecord) error {
	const q = `
INSERT INTO settlements (
  id, tenant_id, subject_type, subject_id, vendor_name, external_txn_id, amount_settled, currency, amount_flagged, amount_inferred, settled_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
);`

	_, err := execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.TenantID, rec.SubjectType, rec.SubjectID, rec.VendorName, rec.ExternalTxnID,
		rec.AmountSettled.String(), rec.Currency, rec.AmountFlagged, rec.AmountInferred, rec.SettledAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSettlement
		}
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

const settlementCols = `id, tenant_id, subject_type, subject_id, vendor_name, external_txn_id, amount_settled, currency, amount_flagged, amount_inferred, settled_at`

func scanSettlement(row pgx.Row) (*model.SettlementRecord, error) {
	rec := &model.SettlementRecord{}
	var amount string
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.SubjectType, &rec.SubjectID, &rec.VendorName, &rec.ExternalTxnID, &amount, &rec.Currency, &rec.AmountFlagged, &rec.AmountInferred, &rec.SettledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	rec.AmountSettled = d
	return rec, nil
}

func (r *settlementRepo) FindByExternalTxnID(ctx context.Context, tx repository.Tx, vendorName, externalTxnID string) (*model.SettlementRecord, error) {
	q := `SELECT ` + settlementCols + ` FROM settlements WHERE vendor_name=$1 AND external_txn_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, vendorName, externalTxnID)
	if err != nil {
		return nil, err
	}
	return scanSettlement(row)
}

func (r *settlementRepo) ListFlagged(ctx context.Context, tx repository.Tx, tenantID string, limit int) ([]*model.SettlementRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + settlementCols + ` FROM settlements WHERE tenant_id=$1 AND (amount_flagged OR amount_inferred) ORDER BY settled_at DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, tenantID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.SettlementRecord
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
