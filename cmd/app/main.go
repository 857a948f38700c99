// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"instagram-unfollower-bot/internal/application"
	"instagram-unfollower-bot/internal/config"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/domain/ports/repository"
	"instagram-unfollower-bot/internal/infra/adapters/instagram"
	tele "instagram-unfollower-bot/internal/infra/adapters/telegram"
	"instagram-unfollower-bot/internal/infra/api"
	pg "instagram-unfollower-bot/internal/infra/db/postgres"
	"instagram-unfollower-bot/internal/infra/i18n"
	"instagram-unfollower-bot/internal/infra/logging"
	"instagram-unfollower-bot/internal/infra/metrics"
	red "instagram-unfollower-bot/internal/infra/redis"
	"instagram-unfollower-bot/internal/infra/sched"
	"instagram-unfollower-bot/internal/infra/worker"
	"instagram-unfollower-bot/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted secrets)")
	dryRun := flag.Bool("dry-run", false, "log notifications instead of sending them; no polling")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		bootLog := logging.New(config.LogConfig{Format: "console"}, true)
		bootLog.Fatal().Err(err).Str("path", *cfgPath).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().
		Str("version", version).
		Str("bot_token", logging.Redact(cfg.Bot.Token, cfg.Runtime.Dev)).
		Str("instagram_user", cfg.Instagram.Username).
		Bool("dry_run", *dryRun).
		Msg("starting")

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("schema")
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second)

	// ---- Redis (optional) ----
	var (
		rateLimiter red.Limiter = red.AllowAll{}
		subRepo     repository.SubscriberRepository
	)
	subRepo = pg.NewPostgresSubscriberRepo(pool)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		rateLimiter = red.NewRateLimiter(redisClient)
		subRepo = pg.NewSubscriberRepoCacheDecorator(subRepo, redisClient, cfg.Redis.TTL, logger)
	} else {
		logger.Warn().Msg("redis.url not set; rate limiting and caching disabled")
	}

	// ---- Repositories ----
	unfRepo := pg.NewPostgresUnfollowerRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Instagram ----
	igClient, err := instagram.NewClient(cfg.Instagram, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("instagram client")
	}

	// ---- Use cases ----
	clock := usecase.SystemClock()
	store := usecase.NewUnfollowerStore(subRepo, unfRepo, txm, logger)
	inspector := usecase.NewInspector(igClient, clock, cfg.Notifier.CallDelay, logger)
	tracker := usecase.NewTracker(inspector, store, logger)
	accountUC := usecase.NewAccountUseCase(inspector, store, tracker, logger)

	// ---- i18n ----
	bundle, err := i18n.NewBundle(i18n.LocalesFS, cfg.I18n.DefaultLanguage)
	if err != nil {
		logger.Fatal().Err(err).Msg("i18n")
	}
	localizer := i18n.NewLocalizer(bundle, store)

	// ---- Facade ----
	facade := application.NewBotFacade(accountUC, localizer, cfg.Notifier.ReportCap)

	// ---- Job pool for long inspections ----
	jobs := worker.NewPool(cfg.Bot.JobPool, logger)
	jobs.Start(ctx)
	defer jobs.Stop()

	// ---- Telegram ----
	var delivery adapter.TelegramBotAdapter
	if *dryRun {
		delivery = tele.NewNoopBotAdapter(logger)
	} else {
		botAdapter, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, cfg.RateLimit, facade, rateLimiter, jobs, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		if strings.ToLower(cfg.Bot.Mode) != "polling" {
			logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot.mode not implemented; falling back to polling")
		}
		go func() {
			if err := botAdapter.StartPolling(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
		delivery = botAdapter
	}

	// ---- Notification worker ----
	if cfg.Notifier.IsEnabled() {
		notifUC := usecase.NewNotificationUseCase(store, tracker, delivery, localizer, clock, usecase.NotificationConfig{
			SubscriberDelay: cfg.Notifier.SubscriberDelay,
			ReportCap:       cfg.Notifier.ReportCap,
		}, logger)
		notifier := sched.NewNotificationWorker(cfg.Notifier.Period, cfg.Notifier.MinRest, notifUC, clock, logger)
		go func() { _ = notifier.Run(ctx) }()
	} else {
		logger.Info().Msg("notifier disabled")
	}

	// ---- Admin API ----
	var adminSrv *api.Server
	if cfg.Admin.Port > 0 {
		adminSrv = api.NewServer(accountUC, cfg.Admin.APIKey, cfg.Admin.TokenTTL, logger)
		go func() {
			if err := adminSrv.Start(cfg.Admin.Port); err != nil {
				logger.Error().Err(err).Msg("admin API stopped")
			}
		}()
	}

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	if adminSrv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := adminSrv.Shutdown(shCtx); err != nil {
			logger.Warn().Err(err).Msg("admin API shutdown")
		}
	}
}
