// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/adapter"
	"practice-payments/internal/domain/ports/repository"
	"practice-payments/internal/infra/metrics"
)

// Locker guards against double-submission (user double-clicks "pay").
// Implemented over Redis SetNX.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

type InitiateInput struct {
	TenantID    string
	VendorName  string
	SubjectType model.SubjectType
	SubjectID   string
	PayerID     *string // nil for guest invoice payments
	CouponCode  *string
	Cycle       *model.BillingCycle
	ReturnURL   string
	WebhookURL  string
	Description string
}

type InitiateOutput struct {
	Attempt     *model.PendingAttempt
	RedirectURL string
	InlineToken string
}

// CheckoutUseCase starts a payment: resolves the price, registers the
// PendingAttempt before the outbound vendor call, and hands back the vendor
// redirect. Retries always mint a fresh attempt; vendor checkout sessions
// expire and must never be replayed.
type CheckoutUseCase interface {
	Initiate(ctx context.Context, in InitiateInput) (*InitiateOutput, error)
}

var _ CheckoutUseCase = (*checkoutUC)(nil)

type checkoutUC struct {
	pricing         PricingUseCase
	attempts        repository.AttemptRepository
	settings        repository.GatewaySettingsRepository
	registry        adapter.Registry
	locker          Locker
	lockTTL         time.Duration
	initiateTimeout time.Duration
	log             *zerolog.Logger
}

func NewCheckoutUseCase(
	pricing PricingUseCase,
	attempts repository.AttemptRepository,
	settings repository.GatewaySettingsRepository,
	registry adapter.Registry,
	locker Locker,
	lockTTL, initiateTimeout time.Duration,
	logger *zerolog.Logger,
) CheckoutUseCase {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	if initiateTimeout <= 0 {
		initiateTimeout = 30 * time.Second
	}
	return &checkoutUC{
		pricing:         pricing,
		attempts:        attempts,
		settings:        settings,
		registry:        registry,
		locker:          locker,
		lockTTL:         lockTTL,
		initiateTimeout: initiateTimeout,
		log:             logger,
	}
}

func (u *checkoutUC) Initiate(ctx context.Context, in InitiateInput) (*InitiateOutput, error) {
	if in.TenantID == "" || in.VendorName == "" || in.SubjectID == "" {
		return nil, domain.ErrInvalidArgument
	}

	lockKey := fmt.Sprintf("checkout:%s:%s:%s", in.TenantID, in.SubjectType, in.SubjectID)
	token, err := u.locker.TryLock(ctx, lockKey, u.lockTTL)
	if err != nil {
		return nil, domain.ErrCheckoutInProgress
	}
	defer func() { _ = u.locker.Unlock(ctx, lockKey, token) }()

	tenant, err := u.tenantContext(ctx, in.TenantID, in.VendorName)
	if err != nil {
		return nil, err
	}

	ad, err := u.registry.Resolve(in.VendorName)
	if err != nil {
		return nil, err
	}

	amount, currency, err := u.pricing.Resolve(ctx, in.TenantID, in.SubjectType, in.SubjectID, in.CouponCode, in.Cycle)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	attemptID := ulid.Make().String()
	reference := model.EncodeReference(in.SubjectType, in.SubjectID, now, attemptID)

	req := model.ChargeRequest{
		SubjectType: in.SubjectType,
		SubjectID:   in.SubjectID,
		PayerID:     in.PayerID,
		Amount:      amount,
		Currency:    currency,
		Cycle:       in.Cycle,
		CouponCode:  in.CouponCode,
		Description: in.Description,
		CreatedAt:   now,
	}

	// The attempt is persisted before the vendor call so a reconciliation
	// anchor exists even if the process dies mid-initiate or the browser
	// never comes back.
	att := &model.PendingAttempt{
		ID:          attemptID,
		TenantID:    in.TenantID,
		SubjectType: in.SubjectType,
		SubjectID:   in.SubjectID,
		PayerID:     in.PayerID,
		VendorName:  in.VendorName,
		Reference:   reference,
		Amount:      amount,
		Currency:    currency,
		Cycle:       in.Cycle,
		Status:      model.AttemptStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.attempts.Save(ctx, repository.NoTX, att); err != nil {
		return nil, err
	}
	metrics.IncAttempt(in.VendorName, string(in.SubjectType))

	callCtx, cancel := context.WithTimeout(ctx, u.initiateTimeout)
	defer cancel()
	res, err := ad.Initiate(callCtx, tenant, req, reference, in.ReturnURL, in.WebhookURL)
	if err != nil {
		metrics.IncGatewayInitiate(in.VendorName, "error")
		_ = u.attempts.UpdateStatus(ctx, repository.NoTX, att.ID, model.AttemptStatusFailed, nil)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.ErrGatewayUnavailable
		}
		return nil, err
	}
	metrics.IncGatewayInitiate(in.VendorName, "ok")

	if res.ExternalID != "" {
		ext := res.ExternalID
		att.ExternalTxnID = &ext
		if err := u.attempts.UpdateStatus(ctx, repository.NoTX, att.ID, model.AttemptStatusPending, &ext); err != nil {
			u.log.Warn().Err(err).Str("attempt", att.ID).Msg("failed to record vendor session id on attempt")
		}
	}

	return &InitiateOutput{Attempt: att, RedirectURL: res.RedirectURL, InlineToken: res.InlineToken}, nil
}

func (u *checkoutUC) tenantContext(ctx context.Context, tenantID, vendorName string) (model.TenantContext, error) {
	s, err := u.settings.Find(ctx, repository.NoTX, tenantID, vendorName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return model.TenantContext{}, domain.ErrGatewayNotConfigured
		}
		return model.TenantContext{}, err
	}
	if !s.Configured() {
		return model.TenantContext{}, domain.ErrGatewayNotConfigured
	}
	return model.TenantContext{TenantID: tenantID, Settings: s}, nil
}
