// File: internal/usecase/settlement_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/repository"
	"practice-payments/internal/infra/metrics"
)

// SettleOutcome reports what the ledger did with a normalized result.
// AlreadySettled is a successful no-op, not an error: redirect and webhook
// races must both observe a "success" outcome.
type SettleOutcome struct {
	Applied        bool
	AlreadySettled bool
	Record         *model.SettlementRecord
}

// SettlementUseCase is the single entry point both reconciliation paths
// (browser redirect and vendor webhook) converge on. No other component
// writes settlement or subscription-activation state.
type SettlementUseCase interface {
	Settle(ctx context.Context, tenant model.TenantContext, res *model.NormalizedResult) (*SettleOutcome, error)
}

var _ SettlementUseCase = (*settlementUC)(nil)

type settlementUC struct {
	attempts    repository.AttemptRepository
	settlements repository.SettlementRepository
	invoices    repository.InvoiceRepository
	plans       repository.PlanRepository
	users       repository.UserRepository
	tm          repository.TransactionManager
	tolerance   decimal.Decimal
	log         *zerolog.Logger
}

func NewSettlementUseCase(
	attempts repository.AttemptRepository,
	settlements repository.SettlementRepository,
	invoices repository.InvoiceRepository,
	plans repository.PlanRepository,
	users repository.UserRepository,
	tm repository.TransactionManager,
	tolerance decimal.Decimal,
	logger *zerolog.Logger,
) SettlementUseCase {
	return &settlementUC{
		attempts:    attempts,
		settlements: settlements,
		invoices:    invoices,
		plans:       plans,
		users:       users,
		tm:          tm,
		tolerance:   tolerance,
		log:         logger,
	}
}

// Settle applies the idempotent insert-then-apply protocol. The unique index
// on (vendor_name, external_txn_id) is the synchronization primitive: two
// concurrent calls for the same transaction race on the insert, exactly one
// wins, the other takes the AlreadySettled path. Insert and side effect share
// one transaction, so a side-effect failure leaves no settlement behind.
func (u *settlementUC) Settle(ctx context.Context, tenant model.TenantContext, res *model.NormalizedResult) (*SettleOutcome, error) {
	if res == nil || res.VendorName == "" {
		return nil, domain.ErrInvalidArgument
	}

	att := u.lookupAttempt(ctx, tenant, res.Reference)

	if res.Status != model.CallbackSuccess {
		return u.recordNonSuccess(ctx, att, res)
	}
	if res.ExternalTxnID == "" {
		return nil, domain.ErrInvalidArgument
	}

	st, subjectID, err := u.resolveSubject(att, res)
	if err != nil {
		return nil, err
	}

	amount, inferred := u.settledAmount(att, res)
	flagged := false
	if att != nil && amount.Sub(att.Amount).Abs().GreaterThan(u.tolerance) {
		// Vendor is the source of truth for what was captured, but a
		// mismatch beyond rounding slack needs a human look.
		flagged = true
	}

	rec := &model.SettlementRecord{
		ID:             uuid.NewString(),
		TenantID:       tenant.TenantID,
		SubjectType:    st,
		SubjectID:      subjectID,
		VendorName:     res.VendorName,
		ExternalTxnID:  res.ExternalTxnID,
		AmountSettled:  amount,
		Currency:       res.Currency,
		AmountFlagged:  flagged,
		AmountInferred: inferred,
		SettledAt:      time.Now(),
	}

	out := &SettleOutcome{Record: rec}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.settlements.Insert(ctx, tx, rec); err != nil {
			// A unique violation aborts the transaction, so the duplicate
			// path must roll back out of here and be mapped below.
			return err
		}
		if err := u.applyEffect(ctx, tx, tenant, att, rec); err != nil {
			return err
		}
		if att != nil && att.Open() {
			ext := res.ExternalTxnID
			if err := u.attempts.UpdateStatus(ctx, tx, att.ID, model.AttemptStatusConfirmed, &ext); err != nil {
				return err
			}
		}
		out.Applied = true
		return nil
	})
	if errors.Is(err, domain.ErrDuplicateSettlement) {
		// Effects stay applied exactly once; the earlier settlement won.
		out.AlreadySettled = true
		out.Record = nil
	} else if err != nil {
		metrics.IncSettlement(res.VendorName, "rejected")
		return nil, err
	}

	u.publish(tenant, res, rec, out)
	return out, nil
}

// lookupAttempt finds the pending attempt for the echoed reference, enforcing
// tenant isolation. A missing attempt is tolerated: webhooks can outlive
// attempt housekeeping, and the reference alone still names the subject.
func (u *settlementUC) lookupAttempt(ctx context.Context, tenant model.TenantContext, reference string) *model.PendingAttempt {
	if reference == "" {
		return nil
	}
	att, err := u.attempts.FindByReference(ctx, repository.NoTX, reference)
	if err != nil {
		return nil
	}
	if att.TenantID != tenant.TenantID {
		return nil
	}
	return att
}

func (u *settlementUC) resolveSubject(att *model.PendingAttempt, res *model.NormalizedResult) (model.SubjectType, string, error) {
	if att != nil {
		return att.SubjectType, att.SubjectID, nil
	}
	st, subjectID, _, _, err := model.ParseReference(res.Reference)
	if err != nil {
		return "", "", domain.ErrSubjectNotFound
	}
	return st, subjectID, nil
}

// settledAmount prefers the vendor-reported amount. When the adapter could
// only infer (no amount in the payload), fall back to the attempt's requested
// amount and keep the lower-confidence marker.
func (u *settlementUC) settledAmount(att *model.PendingAttempt, res *model.NormalizedResult) (decimal.Decimal, bool) {
	if res.AmountInferred && res.PaidAmount.IsZero() && att != nil {
		return att.Amount, true
	}
	return res.PaidAmount, res.AmountInferred
}

func (u *settlementUC) recordNonSuccess(ctx context.Context, att *model.PendingAttempt, res *model.NormalizedResult) (*SettleOutcome, error) {
	if att != nil && att.Open() {
		status := model.AttemptStatusPending
		if res.Status == model.CallbackFailure {
			status = model.AttemptStatusFailed
		}
		var ext *string
		if res.ExternalTxnID != "" {
			ext = &res.ExternalTxnID
		}
		if err := u.attempts.UpdateStatus(ctx, repository.NoTX, att.ID, status, ext); err != nil {
			return nil, err
		}
	}
	return &SettleOutcome{}, nil
}

func (u *settlementUC) applyEffect(ctx context.Context, tx repository.Tx, tenant model.TenantContext, att *model.PendingAttempt, rec *model.SettlementRecord) error {
	switch rec.SubjectType {
	case model.SubjectPlan:
		return u.activatePlan(ctx, tx, att, rec)
	case model.SubjectInvoice:
		return u.applyInvoicePayment(ctx, tx, tenant, rec)
	}
	return domain.ErrInvalidArgument
}

func (u *settlementUC) activatePlan(ctx context.Context, tx repository.Tx, att *model.PendingAttempt, rec *model.SettlementRecord) error {
	if att == nil || att.PayerID == nil {
		// Plan activation needs a payer; guest settlement of a plan has no
		// one to activate.
		return domain.ErrSubjectNotFound
	}
	plan, err := u.plans.FindByID(ctx, tx, rec.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrSubjectNotFound
		}
		return err
	}
	cycle := model.CycleMonthly
	if att.Cycle != nil {
		cycle = *att.Cycle
	}
	expiresAt := rec.SettledAt.Add(plan.Duration(cycle))
	return u.users.ActivatePlan(ctx, tx, *att.PayerID, plan.ID, expiresAt)
}

func (u *settlementUC) applyInvoicePayment(ctx context.Context, tx repository.Tx, tenant model.TenantContext, rec *model.SettlementRecord) error {
	inv, err := u.invoices.FindByID(ctx, tx, rec.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrSubjectNotFound
		}
		return err
	}
	if inv.TenantID != tenant.TenantID {
		return domain.ErrSubjectNotFound
	}

	payment := &model.InvoicePayment{
		ID:            uuid.NewString(),
		InvoiceID:     inv.ID,
		SettlementID:  rec.ID,
		VendorName:    rec.VendorName,
		ExternalTxnID: rec.ExternalTxnID,
		Amount:        rec.AmountSettled,
		Currency:      rec.Currency,
		PaidAt:        rec.SettledAt,
	}
	if err := u.invoices.AddPayment(ctx, tx, payment); err != nil {
		return err
	}

	// Recompute from the actual payment rows inside the same transaction as
	// the settlement insert, never from the requested amount. This is what
	// keeps two concurrent partial payments from losing an update.
	sum, err := u.invoices.SumPayments(ctx, tx, inv.ID)
	if err != nil {
		return err
	}
	if next := inv.StatusFor(sum); next != inv.Status {
		return u.invoices.UpdateStatus(ctx, tx, inv.ID, next)
	}
	return nil
}

func (u *settlementUC) publish(tenant model.TenantContext, res *model.NormalizedResult, rec *model.SettlementRecord, out *SettleOutcome) {
	if out.AlreadySettled {
		metrics.IncSettlement(res.VendorName, "duplicate")
		metrics.IncDuplicateSettlement(res.VendorName)
		u.log.Debug().
			Str("vendor", res.VendorName).
			Str("external_txn_id", res.ExternalTxnID).
			Msg("duplicate settlement ignored")
		return
	}

	metrics.IncSettlement(res.VendorName, "applied")
	amt, _ := rec.AmountSettled.Float64()
	metrics.AddSettlementRevenue(rec.Currency, amt)

	level := zerolog.InfoLevel
	if rec.AmountFlagged || rec.AmountInferred {
		level = zerolog.WarnLevel
	}
	if rec.AmountFlagged {
		metrics.IncFlaggedSettlement(rec.VendorName, "amount_mismatch")
	}
	if rec.AmountInferred {
		metrics.IncFlaggedSettlement(rec.VendorName, "amount_inferred")
	}
	ev := u.log.WithLevel(level).
		Bool("amount_flagged", rec.AmountFlagged).
		Bool("amount_inferred", rec.AmountInferred)
	ev.
		Str("tenant_id", tenant.TenantID).
		Str("vendor", rec.VendorName).
		Str("subject_type", string(rec.SubjectType)).
		Str("subject_id", rec.SubjectID).
		Str("external_txn_id", rec.ExternalTxnID).
		Str("amount", rec.AmountSettled.String()).
		Msg("settlement applied")
}
