package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
)

// SubjectType identifies what a charge pays for.
type SubjectType string

const (
	SubjectPlan    SubjectType = "plan"
	SubjectInvoice SubjectType = "invoice"
)

// BillingCycle for plan subscriptions. Invoices carry no cycle.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

func ParseBillingCycle(s string) (BillingCycle, error) {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(s))) {
	case CycleMonthly:
		return CycleMonthly, nil
	case CycleYearly:
		return CycleYearly, nil
	}
	return "", domain.ErrUnsupportedBillingCycle
}

// ChargeRequest captures one checkout attempt. It is built once by the
// checkout use case and never mutated afterwards.
type ChargeRequest struct {
	SubjectType SubjectType
	SubjectID   string
	PayerID     *string // nil for guest invoice payments
	Amount      decimal.Decimal
	Currency    string
	Cycle       *BillingCycle // nil for invoices
	CouponCode  *string
	Description string
	CreatedAt   time.Time
}

// EncodeReference builds the internal reference embedded in vendor requests:
// {subjectType}_{subjectID}_{unixTimestamp}_{nonce}. Callbacks that do not
// echo our IDs can still recover the subject from this string.
func EncodeReference(st SubjectType, subjectID string, at time.Time, nonce string) string {
	return fmt.Sprintf("%s_%s_%d_%s", st, subjectID, at.Unix(), nonce)
}

// ParseReference is the inverse of EncodeReference. Subject IDs are UUIDs and
// never contain underscores, so splitting on "_" is unambiguous.
func ParseReference(ref string) (st SubjectType, subjectID string, at time.Time, nonce string, err error) {
	parts := strings.Split(ref, "_")
	if len(parts) != 4 {
		return "", "", time.Time{}, "", domain.ErrInvalidArgument
	}
	switch SubjectType(parts[0]) {
	case SubjectPlan, SubjectInvoice:
		st = SubjectType(parts[0])
	default:
		return "", "", time.Time{}, "", domain.ErrInvalidArgument
	}
	unix, perr := strconv.ParseInt(parts[2], 10, 64)
	if perr != nil {
		return "", "", time.Time{}, "", domain.ErrInvalidArgument
	}
	return st, parts[1], time.Unix(unix, 0), parts[3], nil
}
