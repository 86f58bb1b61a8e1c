package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/adapter"
)

var _ adapter.GatewayAdapter = (*PayfastAdapter)(nil)

// PayfastAdapter builds a signed redirect to the Payfast process page; no
// outbound API call happens at initiation. The ITN callback signs its fields
// with MD5 over the sorted parameter string plus the passphrase. Some ITN
// variants omit amount_gross, in which case the settled amount has to be
// inferred from the attempt behind the echoed reference.
type PayfastAdapter struct {
	liveURL    string
	sandboxURL string
}

func NewPayfastAdapter() *PayfastAdapter {
	return &PayfastAdapter{
		liveURL:    "https://www.payfast.co.za/eng/process",
		sandboxURL: "https://sandbox.payfast.co.za/eng/process",
	}
}

func (a *PayfastAdapter) Name() string { return "payfast" }

func (a *PayfastAdapter) Initiate(ctx context.Context, tenant model.TenantContext, req model.ChargeRequest, reference, returnURL, webhookURL string) (*adapter.InitiateResult, error) {
	s := tenant.Settings
	if !s.Configured() || s.MerchantID == "" {
		return nil, domain.ErrGatewayNotConfigured
	}

	params := map[string]string{
		"merchant_id":  s.MerchantID,
		"merchant_key": s.APIKey,
		"return_url":   returnURL,
		"cancel_url":   returnURL,
		"notify_url":   webhookURL,
		"m_payment_id": reference,
		"amount":       req.Amount.StringFixed(2),
		"item_name":    req.Description,
	}
	params["signature"] = payfastSignature(params, s.APISecret)

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	base := a.liveURL
	if s.Mode == model.ModeSandbox {
		base = a.sandboxURL
	}

	return &adapter.InitiateResult{
		RedirectURL: base + "?" + q.Encode(),
		Reference:   reference,
	}, nil
}

func (a *PayfastAdapter) ParseCallback(ctx context.Context, tenant model.TenantContext, r *http.Request) (*model.NormalizedResult, error) {
	s := tenant.Settings
	if !s.Configured() {
		return nil, domain.ErrGatewayNotConfigured
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: parse form: %v", domain.ErrGatewayRequest, err)
	}

	fields := map[string]string{}
	for k := range r.Form {
		if k == "signature" {
			continue
		}
		fields[k] = r.Form.Get(k)
	}
	if !signatureEqual(payfastSignature(fields, s.APISecret), r.Form.Get("signature")) {
		return nil, domain.ErrInvalidSignature
	}

	res := &model.NormalizedResult{
		VendorName:    a.Name(),
		Reference:     r.Form.Get("m_payment_id"),
		ExternalTxnID: r.Form.Get("pf_payment_id"),
		Currency:      r.Form.Get("currency_code"),
	}

	switch strings.ToUpper(r.Form.Get("payment_status")) {
	case "COMPLETE":
		res.Status = model.CallbackSuccess
	case "FAILED", "CANCELLED":
		res.Status = model.CallbackFailure
	default:
		res.Status = model.CallbackPending
	}

	if gross := r.Form.Get("amount_gross"); gross != "" {
		if amt, err := decimal.NewFromString(gross); err == nil {
			res.PaidAmount = amt
		} else {
			res.AmountInferred = true
		}
	} else {
		res.AmountInferred = true
	}
	return res, nil
}

// payfastSignature is MD5 over the alphabetically sorted, URL-encoded
// parameter string with the passphrase appended.
func payfastSignature(params map[string]string, passphrase string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	if passphrase != "" {
		b.WriteString("&passphrase=")
		b.WriteString(url.QueryEscape(passphrase))
	}
	return md5Hex(b.String())
}
