package adapter

import (
	"context"
	"net/http"

	"practice-payments/internal/domain/model"
)

// InitiateResult is what a vendor adapter returns after creating a checkout
// session. Exactly one of RedirectURL / InlineToken is set depending on how
// the vendor hands control to the payer.
type InitiateResult struct {
	RedirectURL string
	InlineToken string
	// Reference is the internal reference embedded in the vendor request,
	// already persisted on the PendingAttempt by the caller.
	Reference string
	// ExternalID is the vendor-side session/order id when the vendor returns
	// one at initiation time (some only produce it at callback time).
	ExternalID string
}

// GatewayAdapter is the per-vendor strategy. Implementations are stateless;
// all tenant credentials arrive via the TenantContext parameter so adapters
// are testable without a request/session scaffold.
//
// Initiate is NOT idempotent from the adapter's point of view: vendor checkout
// sessions expire, so a user retry must produce a fresh attempt, never replay
// a stale one.
type GatewayAdapter interface {
	Name() string
	Initiate(ctx context.Context, tenant model.TenantContext, req model.ChargeRequest, reference, returnURL, webhookURL string) (*InitiateResult, error)
	// ParseCallback verifies the vendor signature where one exists
	// (domain.ErrInvalidSignature on failure) and normalizes the payload.
	// It never touches storage.
	ParseCallback(ctx context.Context, tenant model.TenantContext, r *http.Request) (*model.NormalizedResult, error)
}

// Registry resolves a vendor name to its registered adapter.
// domain.ErrUnknownGateway for names no adapter was built for.
type Registry interface {
	Resolve(vendorName string) (GatewayAdapter, error)
}

// StatusQuerier is an optional capability for vendors exposing an
// authoritative order/payment-status API. The reconciler prefers it over
// trusting echoed amounts.
type StatusQuerier interface {
	QueryStatus(ctx context.Context, tenant model.TenantContext, reference, externalTxnID string) (*model.NormalizedResult, error)
}
