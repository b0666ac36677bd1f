package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"glyph-dict-activation/internal/infra/metrics"
	"glyph-dict-activation/internal/usecase"
)

// StatsWorker periodically samples entitlement totals into the gauges.
// Expiry itself stays a derived state computed at read time; this worker
// only observes, it never mutates the store.
type StatsWorker struct {
	interval  time.Duration
	reporting *usecase.ReportingUseCase
	log       *zerolog.Logger
}

func NewStatsWorker(interval time.Duration, reporting *usecase.ReportingUseCase, logger *zerolog.Logger) *StatsWorker {
	statsLog := logger.With().Str("component", "StatsWorker").Logger()
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatsWorker{
		interval:  interval,
		reporting: reporting,
		log:       &statsLog,
	}
}

func (w *StatsWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting stats worker")
	w.sample(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stats worker")
			return ctx.Err()
		case <-ticker.C:
			w.sample(ctx)
		}
	}
}

func (w *StatsWorker) sample(ctx context.Context) {
	ov, err := w.reporting.Overview(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("stats worker sample error")
		return
	}
	metrics.SetEntitlementTotals(ov.CodesUnused, ov.CodesUsed, ov.BindingsActive, ov.BindingsExpired)
	w.log.Trace().
		Int("codes_unused", ov.CodesUnused).
		Int("codes_used", ov.CodesUsed).
		Int("bindings_active", ov.BindingsActive).
		Int("bindings_expired", ov.BindingsExpired).
		Msg("entitlement totals sampled")
}
