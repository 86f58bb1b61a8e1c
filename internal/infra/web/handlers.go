package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/repository"
	"practice-payments/internal/infra/metrics"
	"practice-payments/internal/usecase"
)

// errScopeMismatch rejects a pay-token request whose echoed reference names a
// different invoice than the token was minted for.
var errScopeMismatch = errors.New("pay token does not cover this payment")

type checkoutRequest struct {
	TenantID   string `json:"tenant_id"`
	PlanID     string `json:"plan_id"`
	PayerID    string `json:"payer_id"`
	Cycle      string `json:"billing_cycle"`
	CouponCode string `json:"coupon_code"`
}

type checkoutResponse struct {
	AttemptID   string `json:"attempt_id"`
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url,omitempty"`
	InlineToken string `json:"inline_token,omitempty"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// handleCheckout starts a plan subscription payment for an authenticated
// payer and returns the vendor redirect.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	vendor := chi.URLParam(r, "vendor")

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.TenantID == "" || req.PlanID == "" || req.PayerID == "" {
		http.Error(w, "tenant_id, plan_id and payer_id are required", http.StatusBadRequest)
		return
	}

	in := usecase.InitiateInput{
		TenantID:    req.TenantID,
		VendorName:  vendor,
		SubjectType: model.SubjectPlan,
		SubjectID:   req.PlanID,
		PayerID:     &req.PayerID,
		ReturnURL:   s.callbackURL(vendor, "success", "tenant", req.TenantID),
		WebhookURL:  s.callbackURL(vendor, "callback", "tenant", req.TenantID),
		Description: fmt.Sprintf("subscription %s", req.PlanID),
	}
	if req.CouponCode != "" {
		in.CouponCode = &req.CouponCode
	}
	if req.Cycle != "" {
		cycle, err := model.ParseBillingCycle(req.Cycle)
		if err != nil {
			http.Error(w, "unknown billing_cycle", http.StatusBadRequest)
			return
		}
		in.Cycle = &cycle
	}

	s.initiate(w, r, in)
}

type invoiceCheckoutRequest struct {
	Token string `json:"token"`
}

// handleInvoiceCheckout starts a guest invoice payment. The pay token is the
// only credential; it pins tenant and invoice.
func (s *Server) handleInvoiceCheckout(w http.ResponseWriter, r *http.Request) {
	vendor := chi.URLParam(r, "vendor")

	var req invoiceCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	claims, err := s.tokens.Parse(req.Token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	in := usecase.InitiateInput{
		TenantID:    claims.TenantID,
		VendorName:  vendor,
		SubjectType: model.SubjectInvoice,
		SubjectID:   claims.InvoiceID,
		ReturnURL:   s.callbackURL(vendor, "invoice/success", "token", req.Token),
		WebhookURL:  s.callbackURL(vendor, "invoice/callback", "token", req.Token),
		Description: fmt.Sprintf("invoice %s", claims.InvoiceID),
	}

	s.initiate(w, r, in)
}

func (s *Server) initiate(w http.ResponseWriter, r *http.Request, in usecase.InitiateInput) {
	out, err := s.checkoutUC.Initiate(r.Context(), in)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		AttemptID:   out.Attempt.ID,
		Reference:   out.Attempt.Reference,
		RedirectURL: out.RedirectURL,
		InlineToken: out.InlineToken,
		Amount:      out.Attempt.Amount.String(),
		Currency:    out.Attempt.Currency,
	})
}

// handleSuccess is the browser-redirect reconciliation entry point for plan
// payments. Whatever the vendor appended is parsed and settled; the payer is
// then bounced to the result page. Settlement here never depends on the
// webhook having arrived first.
func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	vendor := chi.URLParam(r, "vendor")
	tenantID := r.URL.Query().Get("tenant")

	status := s.settleFromRequest(r, vendor, tenantID, nil, "redirect")
	http.Redirect(w, r, s.baseURL+"/payments/result?status="+url.QueryEscape(status), http.StatusFound)
}

// handleWebhook is the server-to-server reconciliation entry point for plan
// payments. Vendors retry until they see the literal "OK" body.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	vendor := chi.URLParam(r, "vendor")
	tenantID := r.URL.Query().Get("tenant")

	s.respondWebhook(w, r, vendor, tenantID, nil)
}

func (s *Server) handleInvoiceSuccess(w http.ResponseWriter, r *http.Request) {
	vendor := chi.URLParam(r, "vendor")
	claims, err := s.tokens.Parse(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status := s.settleFromRequest(r, vendor, claims.TenantID, claims, "redirect")
	http.Redirect(w, r, s.baseURL+"/payments/result?status="+url.QueryEscape(status), http.StatusFound)
}

func (s *Server) handleInvoiceWebhook(w http.ResponseWriter, r *http.Request) {
	vendor := chi.URLParam(r, "vendor")
	claims, err := s.tokens.Parse(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	s.respondWebhook(w, r, vendor, claims.TenantID, claims)
}

// settleFromRequest runs the parse-then-settle pipeline for the browser path
// and maps the outcome to a display status. Browser returns are best-effort:
// vendors that append nothing leave the payment pending for the webhook or
// the reconciler.
func (s *Server) settleFromRequest(r *http.Request, vendor, tenantID string, scope *PayClaims, path string) string {
	ctx, cancel := context.WithTimeout(r.Context(), s.callbackTimeout)
	defer cancel()

	res, tenant, err := s.parseCallback(ctx, vendor, tenantID, scope, path, r)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, errScopeMismatch):
			return "rejected"
		case errors.Is(err, domain.ErrGatewayRequest):
			return "pending"
		default:
			s.log.Error().Err(err).Str("vendor", vendor).Msg("redirect callback parse failed")
			return "error"
		}
	}

	out, err := s.settlementUC.Settle(ctx, tenant, res)
	if err != nil {
		s.log.Error().Err(err).Str("vendor", vendor).Str("reference", res.Reference).Msg("redirect settlement failed")
		return "error"
	}

	switch {
	case out.Applied || out.AlreadySettled:
		return "confirmed"
	case res.Status == model.CallbackFailure:
		return "failed"
	default:
		return "pending"
	}
}

// respondWebhook runs the same pipeline for the webhook path with the strict
// contract vendors expect: "OK" on anything recorded, 400 on anything the
// vendor should not retry, 500 on transient faults so it does retry.
func (s *Server) respondWebhook(w http.ResponseWriter, r *http.Request, vendor, tenantID string, scope *PayClaims) {
	ctx, cancel := context.WithTimeout(r.Context(), s.callbackTimeout)
	defer cancel()

	res, tenant, err := s.parseCallback(ctx, vendor, tenantID, scope, "webhook", r)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSignature):
			http.Error(w, "invalid signature", http.StatusBadRequest)
		case errors.Is(err, errScopeMismatch):
			http.Error(w, "forbidden", http.StatusForbidden)
		case errors.Is(err, domain.ErrGatewayRequest), errors.Is(err, domain.ErrUnknownGateway), errors.Is(err, domain.ErrGatewayNotConfigured):
			http.Error(w, "bad request", http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	if _, err := s.settlementUC.Settle(ctx, tenant, res); err != nil {
		if errors.Is(err, domain.ErrSubjectNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		s.log.Error().Err(err).Str("vendor", vendor).Str("reference", res.Reference).Msg("webhook settlement failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) parseCallback(ctx context.Context, vendor, tenantID string, scope *PayClaims, path string, r *http.Request) (*model.NormalizedResult, model.TenantContext, error) {
	ad, err := s.registry.Resolve(vendor)
	if err != nil {
		return nil, model.TenantContext{}, err
	}
	tenant, err := s.tenantContext(ctx, tenantID, vendor)
	if err != nil {
		return nil, model.TenantContext{}, err
	}

	res, err := ad.ParseCallback(ctx, tenant, r)
	if err != nil {
		metrics.IncGatewayCallback(vendor, path, "rejected")
		return nil, tenant, err
	}
	metrics.IncGatewayCallback(vendor, path, string(res.Status))

	if scope != nil {
		st, subjectID, _, _, perr := model.ParseReference(res.Reference)
		if perr != nil || st != model.SubjectInvoice || subjectID != scope.InvoiceID {
			return nil, tenant, errScopeMismatch
		}
	}
	return res, tenant, nil
}

func (s *Server) tenantContext(ctx context.Context, tenantID, vendorName string) (model.TenantContext, error) {
	set, err := s.settings.Find(ctx, repository.NoTX, tenantID, vendorName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.TenantContext{}, domain.ErrGatewayNotConfigured
		}
		return model.TenantContext{}, err
	}
	return model.TenantContext{TenantID: tenantID, Settings: set}, nil
}

// ===== Admin surface =====

func (s *Server) handleAttemptLookup(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	att, err := s.attempts.FindByReference(r.Context(), repository.NoTX, reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Failed to look up attempt", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, att)
}

func (s *Server) handleFlaggedSettlements(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant")
	if tenantID == "" {
		http.Error(w, "tenant is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	recs, err := s.settlements.ListFlagged(r.Context(), repository.NoTX, tenantID, limit)
	if err != nil {
		http.Error(w, "Failed to list flagged settlements", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.SettlementRecord `json:"data"`
	}{Data: recs})
}

type payLinkRequest struct {
	TenantID string `json:"tenant_id"`
}

// handlePayLink mints a guest pay token for a payable invoice.
func (s *Server) handlePayLink(w http.ResponseWriter, r *http.Request) {
	invoiceID := chi.URLParam(r, "invoiceID")

	var req payLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TenantID == "" {
		http.Error(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	inv, err := s.invoices.FindByID(r.Context(), repository.NoTX, invoiceID)
	if err != nil || inv.TenantID != req.TenantID {
		http.NotFound(w, r)
		return
	}
	if !inv.Payable() {
		http.Error(w, "invoice is not payable", http.StatusConflict)
		return
	}

	token, err := s.tokens.Mint(inv.TenantID, inv.ID)
	if err != nil {
		http.Error(w, "Failed to mint pay token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		PayToken string `json:"pay_token"`
	}{PayToken: token})
}

// ===== helpers =====

func (s *Server) callbackURL(vendor, leaf, param, value string) string {
	return fmt.Sprintf("%s/payments/%s/%s?%s=%s", s.baseURL, vendor, leaf, param, url.QueryEscape(value))
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnsupportedBillingCycle):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSubjectNotFound), errors.Is(err, domain.ErrUnknownGateway):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrSubjectInactive), errors.Is(err, domain.ErrCheckoutInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrGatewayNotConfigured):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrGatewayUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var resultPage = template.Must(template.New("result").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Payment {{.Title}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020} .wait{color:#92660a}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{.Class}}">{{.Heading}}</h2>
  <p>{{.Msg}}</p>
</div>
</body>
</html>`))

func (s *Server) handleResultPage(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Title, Class, Heading, Msg string
	}
	switch r.URL.Query().Get("status") {
	case "confirmed":
		data = struct{ Title, Class, Heading, Msg string }{
			"Successful", "ok", "Payment Successful",
			"Your payment has been confirmed. A receipt will follow shortly.",
		}
	case "pending":
		data = struct{ Title, Class, Heading, Msg string }{
			"Processing", "wait", "Payment Processing",
			"Your payment is being confirmed with the provider. This page is safe to close.",
		}
	case "failed", "rejected":
		data = struct{ Title, Class, Heading, Msg string }{
			"Failed", "fail", "Payment Not Completed",
			"The payment was not completed. No charge has been applied.",
		}
	default:
		data = struct{ Title, Class, Heading, Msg string }{
			"Result", "wait", "Payment Result Unknown",
			"We could not determine the payment outcome yet. If you were charged, it will be reconciled automatically.",
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = resultPage.Execute(w, data)
}
