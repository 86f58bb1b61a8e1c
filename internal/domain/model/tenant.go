package model

import "time"

type GatewayMode string

const (
	ModeSandbox GatewayMode = "sandbox"
	ModeLive    GatewayMode = "live"
)

// GatewaySettings holds one tenant's credentials for one vendor.
type GatewaySettings struct {
	TenantID      string
	VendorName    string
	Mode          GatewayMode
	MerchantID    string
	APIKey        string
	APISecret     string
	WebhookSecret string
	Enabled       bool
	UpdatedAt     time.Time
}

// Configured reports whether the vendor can be used by this tenant.
func (s *GatewaySettings) Configured() bool {
	return s != nil && s.Enabled && s.APIKey != ""
}

// TenantContext is threaded explicitly through every adapter and ledger call;
// nothing is inferred from ambient session state.
type TenantContext struct {
	TenantID string
	Settings *GatewaySettings
}
