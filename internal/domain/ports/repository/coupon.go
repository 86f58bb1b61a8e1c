package repository

import (
	"context"

	"practice-payments/internal/domain/model"
)

type CouponRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Coupon) error
	// FindByCode returns domain.ErrNotFound for unknown codes; the pricing
	// resolver treats that as "no discount", not an error.
	FindByCode(ctx context.Context, tx Tx, tenantID, code string) (*model.Coupon, error)
}
