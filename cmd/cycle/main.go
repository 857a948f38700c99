package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"instagram-unfollower-bot/internal/config"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/infra/adapters/instagram"
	tele "instagram-unfollower-bot/internal/infra/adapters/telegram"
	pg "instagram-unfollower-bot/internal/infra/db/postgres"
	"instagram-unfollower-bot/internal/infra/i18n"
	"instagram-unfollower-bot/internal/infra/logging"
	"instagram-unfollower-bot/internal/usecase"
)

// cycle runs a single notification pass and exits. Meant for cron-driven
// deployments that do not keep the bot process running.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	dryRun := flag.Bool("dry-run", false, "log reports instead of sending them")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfgPath, *dryRun); err != nil {
		log.Fatalf("cycle: %v", err)
	}
}

func run(ctx context.Context, cfgPath string, dryRun bool) error {
	cfg, err := config.LoadConfig(cfgPath, false)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, false)

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	igClient, err := instagram.NewClient(cfg.Instagram, logger)
	if err != nil {
		return fmt.Errorf("instagram: %w", err)
	}

	clock := usecase.SystemClock()
	store := usecase.NewUnfollowerStore(pg.NewPostgresSubscriberRepo(pool), pg.NewPostgresUnfollowerRepo(pool), pg.NewTxManager(pool), logger)
	inspector := usecase.NewInspector(igClient, clock, cfg.Notifier.CallDelay, logger)
	tracker := usecase.NewTracker(inspector, store, logger)

	bundle, err := i18n.NewBundle(i18n.LocalesFS, cfg.I18n.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}

	var delivery adapter.TelegramBotAdapter
	if dryRun {
		delivery = tele.NewNoopBotAdapter(logger)
	} else {
		sender, err := tele.NewSender(&cfg.Bot, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		delivery = sender
	}

	notifUC := usecase.NewNotificationUseCase(store, tracker, delivery, i18n.NewLocalizer(bundle, store), clock, usecase.NotificationConfig{
		SubscriberDelay: cfg.Notifier.SubscriberDelay,
		ReportCap:       cfg.Notifier.ReportCap,
	}, logger)

	report, err := notifUC.RunCycle(ctx)
	fmt.Printf("subscribers=%d notified=%d unchanged=%d skipped=%d failed=%d\n",
		report.Subscribers, report.Notified, report.Unchanged, report.Skipped, report.Failed)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
