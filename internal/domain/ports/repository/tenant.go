package repository

import (
	"context"

	"practice-payments/internal/domain/model"
)

type GatewaySettingsRepository interface {
	Save(ctx context.Context, tx Tx, s *model.GatewaySettings) error
	// Find returns domain.ErrNotFound when the tenant never configured the
	// vendor; callers map that to ErrGatewayNotConfigured.
	Find(ctx context.Context, tx Tx, tenantID, vendorName string) (*model.GatewaySettings, error)
}
