package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/repository"
)

var _ repository.AttemptRepository = (*attemptRepo)(nil)

type attemptRepo struct{ pool *pgxpool.Pool }

func NewAttemptRepo(pool *pgxpool.Pool) *attemptRepo {
	return &attemptRepo{pool: pool}
}

const attemptCols = `id, tenant_id, subject_type, subject_id, payer_id, vendor_name, reference, external_txn_id, amount, currency, cycle, status, created_at, updated_at`

func (r *attemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.PendingAttempt) error {
	const q = `
INSERT INTO pending_attempts (` + attemptCols + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14
) ON CONFLICT (id) DO UPDATE SET
  external_txn_id=$8, status=$12, updated_at=$14;`

	var cycle *string
	if a.Cycle != nil {
		c := string(*a.Cycle)
		cycle = &c
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.TenantID, a.SubjectType, a.SubjectID, a.PayerID, a.VendorName, a.Reference,
		a.ExternalTxnID, a.Amount.String(), a.Currency, cycle, a.Status, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanAttempt(row pgx.Row) (*model.PendingAttempt, error) {
	a := &model.PendingAttempt{}
	var amount string
	var cycle *string
	if err := row.Scan(&a.ID, &a.TenantID, &a.SubjectType, &a.SubjectID, &a.PayerID, &a.VendorName, &a.Reference, &a.ExternalTxnID, &amount, &a.Currency, &cycle, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	a.Amount = d
	if cycle != nil {
		c := model.BillingCycle(*cycle)
		a.Cycle = &c
	}
	return a, nil
}

func (r *attemptRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.PendingAttempt, error) {
	q := `SELECT ` + attemptCols + ` FROM pending_attempts WHERE reference=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanAttempt(row)
}

func (r *attemptRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus, externalTxnID *string) error {
	const q = `UPDATE pending_attempts SET status=$2, external_txn_id=COALESCE($3, external_txn_id), updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, status, externalTxnID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *attemptRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PendingAttempt, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + attemptCols + ` FROM pending_attempts WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PendingAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *attemptRepo) ExpirePendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time) (int64, error) {
	const q = `UPDATE pending_attempts SET status='expired', updated_at=NOW() WHERE status='pending' AND created_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, olderThan)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}
