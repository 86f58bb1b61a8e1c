package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CallbackStatus is the normalized outcome a gateway adapter extracts from a
// vendor redirect or webhook payload.
type CallbackStatus string

const (
	CallbackSuccess CallbackStatus = "success"
	CallbackFailure CallbackStatus = "failure"
	CallbackPending CallbackStatus = "pending"
)

// NormalizedResult is the vendor-independent shape both reconciliation entry
// points (success redirect and webhook) hand to the settlement ledger.
type NormalizedResult struct {
	VendorName    string
	ExternalTxnID string
	Reference     string // internal reference echoed by the vendor
	PaidAmount    decimal.Decimal
	Currency      string
	Status        CallbackStatus
	// AmountInferred marks that PaidAmount was recovered from the internal
	// reference rather than the vendor payload; such settlements are logged
	// at lower confidence.
	AmountInferred bool
}

// SettlementRecord is the durable proof-of-payment. The unique key
// (vendor_name, external_txn_id) is the idempotency guard: at most one record
// and one side-effect application per vendor transaction.
type SettlementRecord struct {
	ID             string
	TenantID       string
	SubjectType    SubjectType
	SubjectID      string
	VendorName     string
	ExternalTxnID  string
	AmountSettled  decimal.Decimal
	Currency       string
	AmountFlagged  bool // settled amount differed from the requested amount beyond tolerance
	AmountInferred bool
	SettledAt      time.Time
}
