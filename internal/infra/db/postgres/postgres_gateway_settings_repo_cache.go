package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/repository"
	"practice-payments/internal/infra/metrics"
	red "practice-payments/internal/infra/redis"
)

var _ repository.GatewaySettingsRepository = (*gatewaySettingsCacheDecorator)(nil)

// gatewaySettingsCacheDecorator is a read-through cache over the settings
// repo. Credentials are read on every initiate and every callback, so the
// hot path should not hit Postgres each time.
type gatewaySettingsCacheDecorator struct {
	inner repository.GatewaySettingsRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewGatewaySettingsCacheDecorator(inner repository.GatewaySettingsRepository, cache red.RedisClient, ttl time.Duration) repository.GatewaySettingsRepository {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &gatewaySettingsCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func settingsKey(tenantID, vendorName string) string {
	return fmt.Sprintf("gwsettings:%s:%s", tenantID, vendorName)
}

func (d *gatewaySettingsCacheDecorator) Find(ctx context.Context, tx repository.Tx, tenantID, vendorName string) (*model.GatewaySettings, error) {
	key := settingsKey(tenantID, vendorName)
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("gateway_settings", "hit")
		var s model.GatewaySettings
		if json.Unmarshal([]byte(val), &s) == nil {
			return &s, nil
		}
	}

	metrics.IncCacheRequest("gateway_settings", "miss")
	s, err := d.inner.Find(ctx, tx, tenantID, vendorName)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(s); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return s, nil
}

// Save invalidates the cached entry before writing through.
func (d *gatewaySettingsCacheDecorator) Save(ctx context.Context, tx repository.Tx, s *model.GatewaySettings) error {
	_ = d.cache.Del(ctx, settingsKey(s.TenantID, s.VendorName))
	return d.inner.Save(ctx, tx, s)
}
