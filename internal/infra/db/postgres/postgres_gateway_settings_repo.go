package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/repository"
)

var _ repository.GatewaySettingsRepository = (*gatewaySettingsRepo)(nil)

type gatewaySettingsRepo struct{ pool *pgxpool.Pool }

func NewGatewaySettingsRepo(pool *pgxpool.Pool) *gatewaySettingsRepo {
	return &gatewaySettingsRepo{pool: pool}
}

func (r *gatewaySettingsRepo) Save(ctx context.Context, tx repository.Tx, s *model.GatewaySettings) error {
	const q = `
INSERT INTO gateway_settings (
  tenant_id, vendor_name, mode, merchant_id, api_key, api_secret, webhook_secret, enabled, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,NOW()
) ON CONFLICT (tenant_id, vendor_name) DO UPDATE SET
  mode=$3, merchant_id=$4, api_key=$5, api_secret=$6, webhook_secret=$7, enabled=$8, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.TenantID, s.VendorName, s.Mode, s.MerchantID, s.APIKey, s.APISecret, s.WebhookSecret, s.Enabled)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrInvalidExecContext) {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *gatewaySettingsRepo) Find(ctx context.Context, tx repository.Tx, tenantID, vendorName string) (*model.GatewaySettings, error) {
	const q = `SELECT tenant_id, vendor_name, mode, merchant_id, api_key, api_secret, webhook_secret, enabled, updated_at FROM gateway_settings WHERE tenant_id=$1 AND vendor_name=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, tenantID, vendorName)
	if err != nil {
		return nil, err
	}

	s := &model.GatewaySettings{}
	if err := row.Scan(&s.TenantID, &s.VendorName, &s.Mode, &s.MerchantID, &s.APIKey, &s.APISecret, &s.WebhookSecret, &s.Enabled, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
