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

func payfastTenant() model.TenantContext {
	return model.TenantContext{TenantID: "tenant-1", Settings: &model.GatewaySettings{
		TenantID: "tenant-1", VendorName: "payfast", Mode: model.ModeSandbox,
		MerchantID: "10000100", APIKey: "merchant-key", APISecret: "passphrase", Enabled: true,
	}}
}

func signedPayfastForm(passphrase string, fields map[string]string) url.Values {
	form := url.Values{}
	for k, v := range fields {
		form.Set(k, v)
	}
	form.Set("signature", payfastSignature(fields, passphrase))
	return form
}

func TestPayfastAdapter_ParseCallback(t *testing.T) {
	ctx := context.Background()
	a := NewPayfastAdapter()
	tenant := payfastTenant()
	reference := "invoice_22222222_1700000000_01NONCE"

	parse := func(t *testing.T, form url.Values) (*model.NormalizedResult, error) {
		t.Helper()
		r := httptest.NewRequest("POST", "/payments/payfast/callback", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return a.ParseCallback(ctx, tenant, r)
	}

	t.Run("complete notification with amount settles normally", func(t *testing.T) {
		res, err := parse(t, signedPayfastForm("passphrase", map[string]string{
			"m_payment_id":   reference,
			"pf_payment_id":  "pf-42",
			"payment_status": "COMPLETE",
			"amount_gross":   "80.00",
			"currency_code":  "ZAR",
		}))
		if err != nil {
			t.Fatalf("ParseCallback: %v", err)
		}
		if res.Status != model.CallbackSuccess {
			t.Errorf("expected success, got %s", res.Status)
		}
		if res.AmountInferred {
			t.Error("amount was present; expected no inferred marker")
		}
		if !res.PaidAmount.Equal(decimal.RequireFromString("80.00")) {
			t.Errorf("expected 80.00, got %s", res.PaidAmount)
		}
	})

	t.Run("notification without amount_gross marks the amount inferred", func(t *testing.T) {
		res, err := parse(t, signedPayfastForm("passphrase", map[string]string{
			"m_payment_id":   reference,
			"pf_payment_id":  "pf-43",
			"payment_status": "COMPLETE",
		}))
		if err != nil {
			t.Fatalf("ParseCallback: %v", err)
		}
		if !res.AmountInferred {
			t.Error("expected AmountInferred=true when the payload omits the amount")
		}
		if !res.PaidAmount.IsZero() {
			t.Errorf("expected zero amount, got %s", res.PaidAmount)
		}
	})

	t.Run("cancelled maps to failure", func(t *testing.T) {
		res, err := parse(t, signedPayfastForm("passphrase", map[string]string{
			"m_payment_id":   reference,
			"payment_status": "CANCELLED",
		}))
		if err != nil {
			t.Fatalf("ParseCallback: %v", err)
		}
		if res.Status != model.CallbackFailure {
			t.Errorf("expected failure, got %s", res.Status)
		}
	})

	t.Run("tampered field is rejected", func(t *testing.T) {
		form := signedPayfastForm("passphrase", map[string]string{
			"m_payment_id":   reference,
			"payment_status": "COMPLETE",
			"amount_gross":   "80.00",
		})
		form.Set("amount_gross", "0.01")

		_, err := parse(t, form)
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("wrong passphrase is rejected", func(t *testing.T) {
		_, err := parse(t, signedPayfastForm("not-the-passphrase", map[string]string{
			"m_payment_id":   reference,
			"payment_status": "COMPLETE",
		}))
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})
}

func TestPayfastAdapter_Initiate(t *testing.T) {
	ctx := context.Background()
	a := NewPayfastAdapter()

	req := model.ChargeRequest{
		SubjectType: model.SubjectInvoice,
		SubjectID:   "inv-1",
		Amount:      decimal.RequireFromString("80.00"),
		Currency:    "ZAR",
		Description: "invoice inv-1",
	}

	t.Run("builds a signed sandbox redirect", func(t *testing.T) {
		res, err := a.Initiate(ctx, payfastTenant(), req, "ref-1", "https://app.example/ret", "https://app.example/hook")
		if err != nil {
			t.Fatalf("Initiate: %v", err)
		}
		u, err := url.Parse(res.RedirectURL)
		if err != nil {
			t.Fatalf("parse redirect: %v", err)
		}
		if u.Host != "sandbox.payfast.co.za" {
			t.Errorf("expected sandbox host, got %s", u.Host)
		}
		q := u.Query()
		if q.Get("m_payment_id") != "ref-1" || q.Get("amount") != "80.00" {
			t.Errorf("unexpected params: %v", q)
		}
		if q.Get("signature") == "" {
			t.Error("expected a signature parameter")
		}
	})

	t.Run("missing merchant credentials are rejected", func(t *testing.T) {
		bare := model.TenantContext{TenantID: "tenant-1", Settings: &model.GatewaySettings{Enabled: true}}
		_, err := a.Initiate(ctx, bare, req, "ref-1", "https://app.example/ret", "https://app.example/hook")
		if !errors.Is(err, domain.ErrGatewayNotConfigured) {
			t.Errorf("expected ErrGatewayNotConfigured, got %v", err)
		}
	})
}
