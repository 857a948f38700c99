package usecase

import (
	"context"
	"errors"
	"time"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	ucport "instagram-unfollower-bot/internal/domain/ports/usecase"
	"instagram-unfollower-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// Localizer picks the translation function for a subscriber.
type Localizer interface {
	For(ctx context.Context, subscriberID int64) model.TranslateFn
}

// NotificationUseCase runs one pass over every subscriber with notifications on.
type NotificationUseCase interface {
	ucport.CycleRunner
}

// NotificationConfig holds the pacing and rendering knobs of a cycle.
type NotificationConfig struct {
	SubscriberDelay time.Duration
	ReportCap       int
}

type outcome int

const (
	outcomeNotified outcome = iota
	outcomeUnchanged
	outcomeSkipped
	outcomeFailed
)

type notificationUC struct {
	store     UnfollowerStore
	tracker   Tracker
	bot       adapter.TelegramBotAdapter
	localizer Localizer
	clock     Clock
	cfg       NotificationConfig
	log       *zerolog.Logger
}

func NewNotificationUseCase(store UnfollowerStore, tracker Tracker, bot adapter.TelegramBotAdapter, localizer Localizer, clock Clock, cfg NotificationConfig, logger *zerolog.Logger) *notificationUC {
	if clock == nil {
		clock = SystemClock()
	}
	l := logger.With().Str("component", "notification_uc").Logger()
	return &notificationUC{
		store:     store,
		tracker:   tracker,
		bot:       bot,
		localizer: localizer,
		clock:     clock,
		cfg:       cfg,
		log:       &l,
	}
}

// RunCycle notifies every subscriber listed at cycle start. Per-subscriber
// failures are logged and counted, never returned. The returned error is set
// only when the subscriber list cannot be read or ctx is cancelled.
func (n *notificationUC) RunCycle(ctx context.Context) (ucport.CycleReport, error) {
	defer logging.TraceDuration(n.log, "NotificationUC.RunCycle")()

	var report ucport.CycleReport
	ids, err := n.store.ListSubscribedIDs(ctx)
	if err != nil {
		return report, err
	}
	report.Subscribers = len(ids)

	for idx, tgID := range ids {
		if idx > 0 {
			if err := n.clock.Sleep(ctx, n.cfg.SubscriberDelay); err != nil {
				return report, err
			}
		}

		switch n.notifyOne(ctx, tgID) {
		case outcomeNotified:
			report.Notified++
		case outcomeUnchanged:
			report.Unchanged++
		case outcomeSkipped:
			report.Skipped++
		default:
			report.Failed++
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (n *notificationUC) notifyOne(ctx context.Context, tgID int64) outcome {
	log := n.log.With().Int64("tg_id", tgID).Logger()

	accountID, ok, err := n.store.LinkedAccount(ctx, tgID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load linked account")
		return outcomeFailed
	}
	if !ok {
		log.Warn().Msg("subscriber has notifications on but no linked account")
		return outcomeSkipped
	}
	log = log.With().Int64("account_id", int64(accountID)).Logger()

	d, err := n.tracker.Detect(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUpstream) {
			log.Warn().Err(err).Msg("inspection failed, skipping subscriber")
			return outcomeSkipped
		}
		log.Error().Err(err).Msg("detection failed")
		return outcomeFailed
	}

	if d.New.Len() == 0 {
		log.Info().Msg("no new unfollowers")
		return outcomeUnchanged
	}

	t := n.localizer.For(ctx, tgID)
	err = n.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:            tgID,
		Text:              RenderReport(KeyReportNewTitle, d.New, d.Profiles, n.cfg.ReportCap, t),
		ParseMode:         adapter.ParseModeHTML,
		DisableWebPreview: true,
		Buttons:           ShowAllButtons(t),
	})
	if err != nil {
		// The baseline stays put so the next cycle reports the same accounts.
		log.Error().Err(err).Msg("failed to deliver report")
		return outcomeFailed
	}

	if err := n.tracker.Commit(ctx, d); err != nil {
		log.Error().Err(err).Msg("report delivered but baseline not advanced")
		return outcomeFailed
	}
	log.Info().Int("new_unfollowers", d.New.Len()).Msg("subscriber notified")
	return outcomeNotified
}
