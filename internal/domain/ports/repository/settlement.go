package repository

import (
	"context"

	"practice-payments/internal/domain/model"
)

type SettlementRepository interface {
	// Insert writes the record, relying on the unique index on
	// (vendor_name, external_txn_id). A violation is surfaced as
	// domain.ErrDuplicateSettlement; that error is the synchronization
	// primitive for concurrent redirect/webhook races.
	Insert(ctx context.Context, tx Tx, rec *model.SettlementRecord) error
	FindByExternalTxnID(ctx context.Context, tx Tx, vendorName, externalTxnID string) (*model.SettlementRecord, error)
	ListFlagged(ctx context.Context, tx Tx, tenantID string, limit int) ([]*model.SettlementRecord, error)
}
