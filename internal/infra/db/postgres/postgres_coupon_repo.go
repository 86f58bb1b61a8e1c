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

var _ repository.CouponRepository = (*couponRepo)(nil)

type couponRepo struct{ pool *pgxpool.Pool }

func NewCouponRepo(pool *pgxpool.Pool) *couponRepo {
	return &couponRepo{pool: pool}
}

func (r *couponRepo) Save(ctx context.Context, tx repository.Tx, c *model.Coupon) error {
	const q = `
INSERT INTO coupons (
  code, tenant_id, percent, expires_at, active, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6
) ON CONFLICT (tenant_id, code) DO UPDATE SET
  percent=$3, expires_at=$4, active=$5;`

	_, err := execSQL(ctx, r.pool, tx, q,
		c.Code, c.TenantID, c.Percent.String(), c.ExpiresAt, c.Active, c.CreatedAt)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *couponRepo) FindByCode(ctx context.Context, tx repository.Tx, tenantID, code string) (*model.Coupon, error) {
	const q = `SELECT code, tenant_id, percent, expires_at, active, created_at FROM coupons WHERE tenant_id=$1 AND code=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, tenantID, code)
	if err != nil {
		return nil, err
	}

	c := &model.Coupon{}
	var percent string
	if err := row.Scan(&c.Code, &c.TenantID, &percent, &c.ExpiresAt, &c.Active, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	d, err := decimal.NewFromString(percent)
	if err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	c.Percent = d
	return c, nil
}
