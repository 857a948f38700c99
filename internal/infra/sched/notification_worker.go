package sched

import (
	"context"
	"errors"
	"time"

	"instagram-unfollower-bot/internal/infra/logging"
	"instagram-unfollower-bot/internal/infra/metrics"
	"instagram-unfollower-bot/internal/usecase"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// RestDuration is how long to sleep after a cycle that took elapsed:
// whatever is left of period, but never less than minRest.
func RestDuration(period, minRest, elapsed time.Duration) time.Duration {
	if rest := period - elapsed; rest > minRest {
		return rest
	}
	return minRest
}

// NotificationWorker runs notification cycles forever, spacing cycle starts
// by period and resting at least minRest after each one.
type NotificationWorker struct {
	period  time.Duration
	minRest time.Duration
	notifUC usecase.NotificationUseCase
	clock   usecase.Clock
	log     *zerolog.Logger
}

func NewNotificationWorker(period, minRest time.Duration, notifUC usecase.NotificationUseCase, clock usecase.Clock, logger *zerolog.Logger) *NotificationWorker {
	if clock == nil {
		clock = usecase.SystemClock()
	}
	compLog := logger.With().Str("component", "NotificationWorker").Logger()
	return &NotificationWorker{
		period:  period,
		minRest: minRest,
		notifUC: notifUC,
		clock:   clock,
		log:     &compLog,
	}
}

// Run blocks until ctx is cancelled. The first cycle starts immediately.
func (w *NotificationWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("period", w.period).Dur("min_rest", w.minRest).Msg("Starting notification worker")
	for {
		rest := w.runCycle(ctx)
		if err := w.clock.Sleep(ctx, rest); err != nil {
			w.log.Info().Msg("Stopping notification worker")
			return err
		}
	}
}

// runCycle runs one cycle and returns the rest that should follow it.
func (w *NotificationWorker) runCycle(ctx context.Context) time.Duration {
	cycleID := ulid.Make().String()
	ctx = logging.WithCycleID(ctx, cycleID)
	log := logging.With(ctx, w.log)

	start := w.clock.Now()
	report, err := w.notifUC.RunCycle(ctx)
	elapsed := w.clock.Now().Sub(start)
	rest := RestDuration(w.period, w.minRest, elapsed)

	metrics.AddNotifierOutcomes(report.Notified, report.Unchanged, report.Skipped, report.Failed)
	metrics.ObserveNotifierCycle(elapsed, rest)

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		metrics.IncNotifierCycle("cancelled")
		log.Info().Dur("elapsed", elapsed).Msg("notification cycle interrupted")
	case err != nil:
		metrics.IncNotifierCycle("error")
		log.Error().Err(err).Dur("elapsed", elapsed).Dur("rest", rest).Msg("notification cycle failed")
	default:
		metrics.IncNotifierCycle("ok")
		log.Info().
			Int("subscribers", report.Subscribers).
			Int("notified", report.Notified).
			Int("unchanged", report.Unchanged).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Dur("elapsed", elapsed).
			Dur("rest", rest).
			Msg("notification cycle finished")
	}
	return rest
}
