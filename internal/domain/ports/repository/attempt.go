package repository

import (
	"context"
	"time"

	"practice-payments/internal/domain/model"
)

type AttemptRepository interface {
	Save(ctx context.Context, tx Tx, a *model.PendingAttempt) error
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.PendingAttempt, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.AttemptStatus, externalTxnID *string) error
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PendingAttempt, error)
	ExpirePendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time) (int64, error)
}
