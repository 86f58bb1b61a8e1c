//go:build !integration

package gateway

import (
	"context"
	"errors"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
)

func paytrTenant() model.TenantContext {
	return model.TenantContext{TenantID: "tenant-1", Settings: &model.GatewaySettings{
		TenantID: "tenant-1", VendorName: "paytr", Mode: model.ModeSandbox,
		MerchantID: "merchant-1", APIKey: "key", APISecret: "callback-secret", Enabled: true,
	}}
}

func signedPayTRForm(secret, reference, status, totalAmount string) url.Values {
	form := url.Values{}
	form.Set("merchant_oid", reference)
	form.Set("status", status)
	form.Set("total_amount", totalAmount)
	form.Set("currency", "TRY")
	form.Set("hash", hmacSHA256Base64(secret, reference+secret+status+totalAmount))
	return form
}

func TestPayTRAdapter_ParseCallback(t *testing.T) {
	ctx := context.Background()
	a := NewPayTRAdapter(nil)
	tenant := paytrTenant()
	reference := "plan_11111111_1700000000_01NONCE"

	post := func(form url.Values) *model.NormalizedResult {
		t.Helper()
		r := httptest.NewRequest("POST", "/payments/paytr/callback", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		res, err := a.ParseCallback(ctx, tenant, r)
		if err != nil {
			t.Fatalf("ParseCallback: %v", err)
		}
		return res
	}

	t.Run("valid success callback normalizes amount to major units", func(t *testing.T) {
		form := signedPayTRForm("callback-secret", reference, "success", "4990")
		form.Set("payment_id", "ptr-777")

		res := post(form)
		if res.Status != model.CallbackSuccess {
			t.Errorf("expected success, got %s", res.Status)
		}
		if res.ExternalTxnID != "ptr-777" {
			t.Errorf("expected payment id, got %q", res.ExternalTxnID)
		}
		if !res.PaidAmount.Equal(decimal.RequireFromString("49.90")) {
			t.Errorf("expected 49.90, got %s", res.PaidAmount)
		}
		if res.Reference != reference {
			t.Errorf("expected echoed reference, got %q", res.Reference)
		}
	})

	t.Run("missing payment id falls back to the reference as idempotency key", func(t *testing.T) {
		res := post(signedPayTRForm("callback-secret", reference, "success", "4990"))
		if res.ExternalTxnID != reference {
			t.Errorf("expected reference fallback, got %q", res.ExternalTxnID)
		}
	})

	t.Run("failed status maps to failure", func(t *testing.T) {
		res := post(signedPayTRForm("callback-secret", reference, "failed", "4990"))
		if res.Status != model.CallbackFailure {
			t.Errorf("expected failure, got %s", res.Status)
		}
	})

	t.Run("tampered amount is rejected", func(t *testing.T) {
		form := signedPayTRForm("callback-secret", reference, "success", "4990")
		form.Set("total_amount", "1")

		r := httptest.NewRequest("POST", "/payments/paytr/callback", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, err := a.ParseCallback(ctx, tenant, r)
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("hash signed with the wrong secret is rejected", func(t *testing.T) {
		form := signedPayTRForm("other-secret", reference, "success", "4990")

		r := httptest.NewRequest("POST", "/payments/paytr/callback", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, err := a.ParseCallback(ctx, tenant, r)
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("unconfigured tenant is rejected", func(t *testing.T) {
		bare := model.TenantContext{TenantID: "tenant-1", Settings: &model.GatewaySettings{}}
		r := httptest.NewRequest("POST", "/payments/paytr/callback", strings.NewReader(""))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		_, err := a.ParseCallback(ctx, bare, r)
		if !errors.Is(err, domain.ErrGatewayNotConfigured) {
			t.Errorf("expected ErrGatewayNotConfigured, got %v", err)
		}
	})
}
