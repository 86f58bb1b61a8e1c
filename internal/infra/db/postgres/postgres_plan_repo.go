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

var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planCols = `id, tenant_id, name, monthly_price, yearly_price, currency, active, created_at`

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (` + planCols + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8
) ON CONFLICT (id) DO UPDATE SET
  name=$3, monthly_price=$4, yearly_price=$5, currency=$6, active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.TenantID, p.Name, p.MonthlyPrice.String(), p.YearlyPrice.String(), p.Currency, p.Active, p.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	var monthly, yearly string
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &monthly, &yearly, &p.Currency, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	m, err := decimal.NewFromString(monthly)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	y, err := decimal.NewFromString(yearly)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	p.MonthlyPrice, p.YearlyPrice = m, y
	return p, nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	q := `SELECT ` + planCols + ` FROM plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx, tenantID string) ([]*model.Plan, error) {
	q := `SELECT ` + planCols + ` FROM plans WHERE tenant_id=$1 AND active ORDER BY name;`
	rows, err := queryRows(ctx, r.pool, tx, q, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
