package repository

import (
	"context"
	"time"

	"practice-payments/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// ActivatePlan sets plan_id and plan_expires_at in one statement.
	ActivatePlan(ctx context.Context, tx Tx, userID, planID string, expiresAt time.Time) error
}
