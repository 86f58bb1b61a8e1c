package model

import (
	"time"

	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
)

// Plan is a purchasable subscription tier. A zero yearly price means the plan
// is sold monthly only.
type Plan struct {
	ID           string
	TenantID     string
	Name         string
	MonthlyPrice decimal.Decimal
	YearlyPrice  decimal.Decimal
	Currency     string
	Active       bool
	CreatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// PriceFor returns the base price for the requested cycle.
func (p *Plan) PriceFor(cycle BillingCycle) (decimal.Decimal, error) {
	switch cycle {
	case CycleMonthly:
		if p.MonthlyPrice.IsPositive() {
			return p.MonthlyPrice, nil
		}
	case CycleYearly:
		if p.YearlyPrice.IsPositive() {
			return p.YearlyPrice, nil
		}
	}
	return decimal.Zero, domain.ErrUnsupportedBillingCycle
}

// Duration returns how long a settled subscription for the cycle lasts.
func (p *Plan) Duration(cycle BillingCycle) time.Duration {
	if cycle == CycleYearly {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}

// NewPlan validates and constructs a plan.
func NewPlan(id, tenantID, name, currency string, monthly, yearly decimal.Decimal) (*Plan, error) {
	if id == "" || tenantID == "" || name == "" || currency == "" || !monthly.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:           id,
		TenantID:     tenantID,
		Name:         name,
		MonthlyPrice: monthly,
		YearlyPrice:  yearly,
		Currency:     currency,
		Active:       true,
		CreatedAt:    time.Now(),
	}, nil
}
