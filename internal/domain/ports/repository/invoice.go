package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"practice-payments/internal/domain/model"
)

type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	// FindByID locks the row (FOR UPDATE) when called inside a transaction so
	// two concurrent partial payments cannot race the paid-sum recomputation.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.InvoiceStatus) error
	AddPayment(ctx context.Context, tx Tx, p *model.InvoicePayment) error
	// SumPayments returns the cumulative settled amount for the invoice. It
	// must be read inside the same transaction as the settlement insert.
	SumPayments(ctx context.Context, tx Tx, invoiceID string) (decimal.Decimal, error)
}
