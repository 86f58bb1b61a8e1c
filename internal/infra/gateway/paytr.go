package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/adapter"
	"practice-payments/internal/infra/metrics"
)

var _ adapter.GatewayAdapter = (*PayTRAdapter)(nil)

// PayTRAdapter drives the PayTR hosted checkout. Callbacks carry an
// HMAC-SHA256 hash over (merchant_oid + secret + status + total_amount); the
// amount arrives in minor units (kuruş).
type PayTRAdapter struct {
	baseURL string
	client  *http.Client
}

func NewPayTRAdapter(client *http.Client) *PayTRAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PayTRAdapter{baseURL: "https://www.paytr.com", client: client}
}

func (a *PayTRAdapter) Name() string { return "paytr" }

type paytrTokenResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

func (a *PayTRAdapter) Initiate(ctx context.Context, tenant model.TenantContext, req model.ChargeRequest, reference, returnURL, webhookURL string) (*adapter.InitiateResult, error) {
	s := tenant.Settings
	if !s.Configured() || s.APISecret == "" {
		return nil, domain.ErrGatewayNotConfigured
	}

	// PayTR wants the amount as integer minor units.
	minor := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).String()
	token := hmacSHA256Base64(s.APISecret, s.MerchantID+reference+minor+req.Currency)

	form := url.Values{}
	form.Set("merchant_id", s.MerchantID)
	form.Set("merchant_oid", reference)
	form.Set("payment_amount", minor)
	form.Set("currency", req.Currency)
	form.Set("merchant_ok_url", returnURL)
	form.Set("merchant_fail_url", returnURL)
	form.Set("callback_url", webhookURL)
	form.Set("paytr_token", token)
	if s.Mode == model.ModeSandbox {
		form.Set("test_mode", "1")
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/odeme/api/get-token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrGatewayUnavailable
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.ObserveGatewayRequest(a.Name(), "initiate", time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrGatewayRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrGatewayRequest, resp.StatusCode)
	}

	var tr paytrTokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", domain.ErrGatewayRequest, err)
	}
	if tr.Status != "success" || tr.Token == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayRequest, tr.Reason)
	}

	return &adapter.InitiateResult{
		RedirectURL: fmt.Sprintf("%s/odeme/guvenli/%s", a.baseURL, tr.Token),
		Reference:   reference,
	}, nil
}

func (a *PayTRAdapter) ParseCallback(ctx context.Context, tenant model.TenantContext, r *http.Request) (*model.NormalizedResult, error) {
	s := tenant.Settings
	if !s.Configured() || s.APISecret == "" {
		return nil, domain.ErrGatewayNotConfigured
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: parse form: %v", domain.ErrGatewayRequest, err)
	}

	reference := r.Form.Get("merchant_oid")
	status := r.Form.Get("status")
	totalAmount := r.Form.Get("total_amount")
	hash := r.Form.Get("hash")

	expected := hmacSHA256Base64(s.APISecret, reference+s.APISecret+status+totalAmount)
	if !signatureEqual(expected, hash) {
		return nil, domain.ErrInvalidSignature
	}

	res := &model.NormalizedResult{
		VendorName: a.Name(),
		Reference:  reference,
		Currency:   r.Form.Get("currency"),
	}
	if id := r.Form.Get("payment_id"); id != "" {
		res.ExternalTxnID = id
	} else {
		// PayTR only echoes merchant_oid on some flows; one id per checkout
		// attempt keeps the idempotency key stable across redirect+webhook.
		res.ExternalTxnID = reference
	}

	switch status {
	case "success":
		res.Status = model.CallbackSuccess
	case "failed":
		res.Status = model.CallbackFailure
	default:
		res.Status = model.CallbackPending
	}

	if minor, err := decimal.NewFromString(totalAmount); err == nil {
		res.PaidAmount = minor.Div(decimal.NewFromInt(100))
	} else if res.Status == model.CallbackSuccess {
		res.AmountInferred = true
	}
	return res, nil
}
