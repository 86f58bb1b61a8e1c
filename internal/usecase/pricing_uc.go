// File: internal/usecase/pricing_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/repository"
)

// PricingUseCase computes the final charge amount for a subject. It is a pure
// read: no rounding to vendor minor units happens here (that is the gateway
// adapter's job), and no state is mutated.
type PricingUseCase interface {
	// Resolve returns the precise decimal amount and currency to charge.
	// An unknown, expired or inactive coupon is silently ignored and the
	// base price is returned. A cycle the subject does not support fails
	// with domain.ErrUnsupportedBillingCycle.
	Resolve(ctx context.Context, tenantID string, st model.SubjectType, subjectID string, couponCode *string, cycle *model.BillingCycle) (decimal.Decimal, string, error)
}

var _ PricingUseCase = (*pricingUC)(nil)

type pricingUC struct {
	plans    repository.PlanRepository
	invoices repository.InvoiceRepository
	coupons  repository.CouponRepository
	log      *zerolog.Logger
}

func NewPricingUseCase(
	plans repository.PlanRepository,
	invoices repository.InvoiceRepository,
	coupons repository.CouponRepository,
	logger *zerolog.Logger,
) PricingUseCase {
	return &pricingUC{plans: plans, invoices: invoices, coupons: coupons, log: logger}
}

func (p *pricingUC) Resolve(ctx context.Context, tenantID string, st model.SubjectType, subjectID string, couponCode *string, cycle *model.BillingCycle) (decimal.Decimal, string, error) {
	switch st {
	case model.SubjectPlan:
		return p.resolvePlan(ctx, tenantID, subjectID, couponCode, cycle)
	case model.SubjectInvoice:
		return p.resolveInvoice(ctx, tenantID, subjectID, cycle)
	}
	return decimal.Zero, "", domain.ErrInvalidArgument
}

func (p *pricingUC) resolvePlan(ctx context.Context, tenantID, planID string, couponCode *string, cycle *model.BillingCycle) (decimal.Decimal, string, error) {
	if cycle == nil {
		return decimal.Zero, "", domain.ErrUnsupportedBillingCycle
	}
	plan, err := p.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, "", domain.ErrSubjectNotFound
		}
		return decimal.Zero, "", err
	}
	if plan.TenantID != tenantID || !plan.Active {
		return decimal.Zero, "", domain.ErrSubjectInactive
	}

	base, err := plan.PriceFor(*cycle)
	if err != nil {
		return decimal.Zero, "", err
	}
	return p.applyCoupon(ctx, tenantID, base, couponCode), plan.Currency, nil
}

// resolveInvoice charges the outstanding balance. Coupons do not apply to
// issued invoices; their totals are already final.
func (p *pricingUC) resolveInvoice(ctx context.Context, tenantID, invoiceID string, cycle *model.BillingCycle) (decimal.Decimal, string, error) {
	if cycle != nil {
		return decimal.Zero, "", domain.ErrUnsupportedBillingCycle
	}
	inv, err := p.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return decimal.Zero, "", domain.ErrSubjectNotFound
		}
		return decimal.Zero, "", err
	}
	if inv.TenantID != tenantID || !inv.Payable() {
		return decimal.Zero, "", domain.ErrSubjectInactive
	}

	paid, err := p.invoices.SumPayments(ctx, repository.NoTX, inv.ID)
	if err != nil {
		return decimal.Zero, "", err
	}
	outstanding := inv.TotalAmount.Sub(paid)
	if !outstanding.IsPositive() {
		return decimal.Zero, "", domain.ErrSubjectInactive
	}
	return outstanding, inv.Currency, nil
}

// applyCoupon applies a usable coupon or falls back to the base price.
func (p *pricingUC) applyCoupon(ctx context.Context, tenantID string, base decimal.Decimal, couponCode *string) decimal.Decimal {
	if couponCode == nil || strings.TrimSpace(*couponCode) == "" {
		return base
	}
	code := strings.TrimSpace(*couponCode)
	c, err := p.coupons.FindByCode(ctx, repository.NoTX, tenantID, code)
	if err != nil || !c.Usable(time.Now()) {
		if p.log != nil {
			p.log.Debug().Str("coupon", code).Msg("coupon not applicable, using base price")
		}
		return base
	}
	return c.Apply(base)
}
