package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Coupon applies a percentage discount to a plan checkout. Invoice totals
// are issued amounts and are never discounted at payment time.
type Coupon struct {
	Code      string
	TenantID  string
	Percent   decimal.Decimal // 0 < Percent <= 100
	ExpiresAt *time.Time      // nil = never expires
	Active    bool
	CreatedAt time.Time
}

// Usable reports whether the coupon may be applied at the given time.
func (c *Coupon) Usable(now time.Time) bool {
	if c == nil || !c.Active {
		return false
	}
	if !c.Percent.IsPositive() || c.Percent.GreaterThan(decimal.NewFromInt(100)) {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	return true
}

// Apply returns the discounted amount. Caller must check Usable first.
func (c *Coupon) Apply(amount decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(100).Sub(c.Percent).Div(decimal.NewFromInt(100))
	return amount.Mul(factor)
}
