package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"practice-payments/internal/domain"
	"practice-payments/internal/domain/model"
	"practice-payments/internal/domain/ports/adapter"
	"practice-payments/internal/domain/ports/repository"
	"practice-payments/internal/infra/metrics"
	"practice-payments/internal/usecase"
)

// AttemptReconciler periodically scans stale pending attempts and tries to
// finalize them through the settlement ledger. This covers payers who never
// came back from the vendor page and webhooks that were lost. Vendors without
// a status API are left for their webhook retries; attempts past the expiry
// horizon are closed as expired.
type AttemptReconciler struct {
	settleUC usecase.SettlementUseCase
	attempts repository.AttemptRepository
	settings repository.GatewaySettingsRepository
	registry adapter.Registry

	interval    time.Duration
	staleAfter  time.Duration
	expireAfter time.Duration
	log         *zerolog.Logger
}

func NewAttemptReconciler(
	settleUC usecase.SettlementUseCase,
	attempts repository.AttemptRepository,
	settings repository.GatewaySettingsRepository,
	registry adapter.Registry,
	interval, staleAfter, expireAfter time.Duration,
	logger *zerolog.Logger,
) *AttemptReconciler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if expireAfter <= 0 {
		expireAfter = 24 * time.Hour
	}
	return &AttemptReconciler{
		settleUC:    settleUC,
		attempts:    attempts,
		settings:    settings,
		registry:    registry,
		interval:    interval,
		staleAfter:  staleAfter,
		expireAfter: expireAfter,
		log:         logger,
	}
}

func (w *AttemptReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *AttemptReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.attempts.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list pending attempts failed")
		return
	}

	for _, att := range pending {
		w.reconcile(ctx, att)
	}

	expired, err := w.attempts.ExpirePendingOlderThan(ctx, repository.NoTX, time.Now().Add(-w.expireAfter))
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: expire pending attempts failed")
		return
	}
	if expired > 0 {
		metrics.AddExpiredAttempts(expired)
		w.log.Info().Int64("count", expired).Msg("reconciler: expired stale attempts")
	}
}

func (w *AttemptReconciler) reconcile(ctx context.Context, att *model.PendingAttempt) {
	ad, err := w.registry.Resolve(att.VendorName)
	if err != nil {
		return
	}
	querier, ok := ad.(adapter.StatusQuerier)
	if !ok {
		return
	}
	if att.ExternalTxnID == nil || *att.ExternalTxnID == "" {
		// Nothing to ask the vendor about; expiry will reap it.
		return
	}

	set, err := w.settings.Find(ctx, repository.NoTX, att.TenantID, att.VendorName)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			w.log.Error().Err(err).Str("attempt", att.ID).Msg("reconciler: load gateway settings failed")
		}
		return
	}
	tenant := model.TenantContext{TenantID: att.TenantID, Settings: set}

	res, err := querier.QueryStatus(ctx, tenant, att.Reference, *att.ExternalTxnID)
	if err != nil {
		w.log.Warn().Err(err).Str("attempt", att.ID).Str("vendor", att.VendorName).Msg("reconciler: vendor status query failed")
		return
	}

	out, err := w.settleUC.Settle(ctx, tenant, res)
	if err != nil {
		w.log.Error().Err(err).Str("attempt", att.ID).Str("vendor", att.VendorName).Msg("reconciler: settlement failed")
		return
	}
	if out.Applied {
		w.log.Info().Str("attempt", att.ID).Str("vendor", att.VendorName).Msg("reconciler: settled stale attempt")
	}
}
