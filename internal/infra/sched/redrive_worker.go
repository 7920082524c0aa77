package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"karaoke-subscription/internal/domain/ports/repository"
	"karaoke-subscription/internal/usecase"
)

// RedriveWorker periodically scans for payment event claims stuck in
// processing and re-runs the reconciler tail for them. This covers crashes
// between the durable claim and the activation commit; the reconciler's
// conditional processed-mark keeps the redrive exactly-once.
type RedriveWorker struct {
	uc         usecase.ReconcileUseCase
	events     repository.PaymentEventRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a processing claim must be to redrive
	log        *zerolog.Logger
}

func NewRedriveWorker(uc usecase.ReconcileUseCase, events repository.PaymentEventRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *RedriveWorker {
	compLog := logger.With().Str("component", "RedriveWorker").Logger()
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &RedriveWorker{uc: uc, events: events, interval: interval, staleAfter: staleAfter, log: &compLog}
}

func (w *RedriveWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting redrive worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping redrive worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *RedriveWorker) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.events.ListStaleProcessing(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale claims failed")
		return
	}
	for _, ev := range stale {
		if err := w.uc.Redrive(ctx, ev); err != nil {
			w.log.Error().Err(err).Str("payment_id", ev.GatewayPaymentID).Msg("redrive failed; will retry next scan")
			continue
		}
		w.log.Info().Str("payment_id", ev.GatewayPaymentID).Msg("stale claim redriven")
	}
}
