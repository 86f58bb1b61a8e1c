package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPartial InvoiceStatus = "partial" // some payments received, below total
	InvoiceStatusPaid    InvoiceStatus = "paid"    // cumulative payments >= total; never reverts
)

// Invoice is a billable document issued by a tenant to a client.
type Invoice struct {
	ID          string
	TenantID    string
	ClientID    string
	Number      string
	TotalAmount decimal.Decimal
	Currency    string
	Status      InvoiceStatus
	IssuedAt    time.Time
	UpdatedAt   time.Time
}

func (i *Invoice) IsZero() bool { return i == nil || i.ID == "" }

// Payable reports whether the invoice can still accept payments.
func (i *Invoice) Payable() bool {
	return i != nil && (i.Status == InvoiceStatusSent || i.Status == InvoiceStatusPartial)
}

// StatusFor derives the invoice status from the cumulative paid sum.
// Paid is monotonic: once reached it is never computed back down.
func (i *Invoice) StatusFor(paidSum decimal.Decimal) InvoiceStatus {
	if i.Status == InvoiceStatusPaid || paidSum.GreaterThanOrEqual(i.TotalAmount) {
		return InvoiceStatusPaid
	}
	if paidSum.IsPositive() {
		return InvoiceStatusPartial
	}
	return i.Status
}

// InvoicePayment is one settled (possibly partial) payment against an invoice.
type InvoicePayment struct {
	ID            string
	InvoiceID     string
	SettlementID  string
	VendorName    string
	ExternalTxnID string
	Amount        decimal.Decimal
	Currency      string
	PaidAt        time.Time
}
