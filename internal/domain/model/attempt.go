package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AttemptStatus string

const (
	AttemptStatusPending   AttemptStatus = "pending"   // created before redirecting the payer
	AttemptStatusConfirmed AttemptStatus = "confirmed" // a settlement was recorded for it
	AttemptStatusFailed    AttemptStatus = "failed"    // vendor reported failure/cancel
	AttemptStatusExpired   AttemptStatus = "expired"   // payer never returned; housekeeping
)

// PendingAttempt is the provisional record written before the outbound vendor
// call, so a reconciliation anchor exists even if the browser never returns.
type PendingAttempt struct {
	ID            string // ULID; doubles as the nonce inside Reference
	TenantID      string
	SubjectType   SubjectType
	SubjectID     string
	PayerID       *string
	VendorName    string
	Reference     string // internal reference embedded in the vendor request
	ExternalTxnID *string
	Amount        decimal.Decimal
	Currency      string
	Cycle         *BillingCycle
	Status        AttemptStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Open reports whether the attempt can still transition.
func (a *PendingAttempt) Open() bool {
	return a != nil && a.Status == AttemptStatusPending
}
