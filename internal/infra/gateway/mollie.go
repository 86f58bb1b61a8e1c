package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/adapter"
	"practice-payments/internal/infra/metrics"
)

var (
	_ adapter.GatewayAdapter = (*MollieAdapter)(nil)
	_ adapter.StatusQuerier  = (*MollieAdapter)(nil)
)

// MollieAdapter integrates the Mollie Payments API. Mollie webhooks carry
// only a payment id and no signature, so every callback is resolved against
// the vendor's payment-status endpoint instead of trusting the payload.
type MollieAdapter struct {
	baseURL string
	client  *http.Client
}

func NewMollieAdapter(client *http.Client) *MollieAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &MollieAdapter{baseURL: "https://api.mollie.com/v2", client: client}
}

func (a *MollieAdapter) Name() string { return "mollie" }

type molliePaymentRequest struct {
	Amount      mollieAmount      `json:"amount"`
	Description string            `json:"description"`
	RedirectURL string            `json:"redirectUrl"`
	WebhookURL  string            `json:"webhookUrl,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type mollieAmount struct {
	Currency string `json:"currency"`
	Value    string `json:"value"` // "10.00"
}

type molliePaymentResponse struct {
	ID       string            `json:"id"`
	Status   string            `json:"status"`
	Amount   mollieAmount      `json:"amount"`
	Metadata map[string]string `json:"metadata"`
	Links    struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

func (a *MollieAdapter) Initiate(ctx context.Context, tenant model.TenantContext, req model.ChargeRequest, reference, returnURL, webhookURL string) (*adapter.InitiateResult, error) {
	s := tenant.Settings
	if !s.Configured() {
		return nil, domain.ErrGatewayNotConfigured
	}

	payload := molliePaymentRequest{
		Amount:      mollieAmount{Currency: req.Currency, Value: req.Amount.StringFixed(2)},
		Description: req.Description,
		// The browser return carries no vendor data, so the reference rides
		// along as a query parameter.
		RedirectURL: withRefParam(returnURL, reference),
		WebhookURL:  webhookURL,
		Metadata:    map[string]string{"reference": reference},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	pr, err := a.do(ctx, s, http.MethodPost, "/payments", body, "initiate")
	if err != nil {
		return nil, err
	}
	if pr.ID == "" || pr.Links.Checkout.Href == "" {
		return nil, fmt.Errorf("%w: missing checkout link", domain.ErrGatewayRequest)
	}

	return &adapter.InitiateResult{
		RedirectURL: pr.Links.Checkout.Href,
		Reference:   reference,
		ExternalID:  pr.ID,
	}, nil
}

// ParseCallback handles both entry points. The webhook POSTs id=tr_xxx and is
// resolved via QueryStatus. The browser return carries only our ?ref= query
// parameter, which yields a pending result the webhook or reconciler will
// finalize.
func (a *MollieAdapter) ParseCallback(ctx context.Context, tenant model.TenantContext, r *http.Request) (*model.NormalizedResult, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: parse form: %v", domain.ErrGatewayRequest, err)
	}
	if id := r.Form.Get("id"); id != "" {
		return a.QueryStatus(ctx, tenant, "", id)
	}
	if ref := r.Form.Get("ref"); ref != "" {
		return &model.NormalizedResult{
			VendorName: a.Name(),
			Reference:  ref,
			Status:     model.CallbackPending,
		}, nil
	}
	return nil, fmt.Errorf("%w: missing payment id", domain.ErrGatewayRequest)
}

// QueryStatus fetches the authoritative payment state from the vendor.
func (a *MollieAdapter) QueryStatus(ctx context.Context, tenant model.TenantContext, reference, externalTxnID string) (*model.NormalizedResult, error) {
	s := tenant.Settings
	if !s.Configured() {
		return nil, domain.ErrGatewayNotConfigured
	}

	pr, err := a.do(ctx, s, http.MethodGet, "/payments/"+externalTxnID, nil, "status")
	if err != nil {
		return nil, err
	}

	res := &model.NormalizedResult{
		VendorName:    a.Name(),
		ExternalTxnID: pr.ID,
		Reference:     pr.Metadata["reference"],
		Currency:      pr.Amount.Currency,
	}
	if res.Reference == "" {
		res.Reference = reference
	}
	if amt, aerr := decimal.NewFromString(pr.Amount.Value); aerr == nil {
		res.PaidAmount = amt
	}

	switch pr.Status {
	case "paid":
		res.Status = model.CallbackSuccess
	case "failed", "canceled", "expired":
		res.Status = model.CallbackFailure
	default: // open, pending, authorized
		res.Status = model.CallbackPending
	}
	return res, nil
}

func withRefParam(rawURL, reference string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("ref", reference)
	u.RawQuery = q.Encode()
	return u.String()
}

func (a *MollieAdapter) do(ctx context.Context, s *model.GatewaySettings, method, path string, body []byte, op string) (*molliePaymentResponse, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrGatewayUnavailable
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.ObserveGatewayRequest(a.Name(), op, time.Since(start))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrGatewayRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGatewayRequest, resp.StatusCode, string(raw))
	}

	var pr molliePaymentResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %v", domain.ErrGatewayRequest, err)
	}
	return &pr, nil
}
