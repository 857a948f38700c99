package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"instagram-unfollower-bot/internal/application"
	"instagram-unfollower-bot/internal/config"
	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/infra/logging"
	"instagram-unfollower-bot/internal/infra/metrics"
	red "instagram-unfollower-bot/internal/infra/redis"
	"instagram-unfollower-bot/internal/infra/worker"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

// botClient is the part of *tgbotapi.BotAPI the adapter uses.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RealTelegramBotAdapter uses tgbotapi to poll updates and delegates to BotFacade.
type RealTelegramBotAdapter struct {
	bot         botClient
	cfg         *config.BotConfig
	rateCfg     config.RateLimitConfig
	facade      *application.BotFacade
	rateLimiter red.Limiter
	jobs        *worker.Pool
	log         *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, rateCfg config.RateLimitConfig, facade *application.BotFacade, rateLimiter red.Limiter, jobs *worker.Pool, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newAdapter(bot, cfg, rateCfg, facade, rateLimiter, jobs, logger)
}

// NewSender builds a delivery-only adapter for one-shot runs. It cannot poll.
func NewSender(cfg *config.BotConfig, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "telegram_sender").Logger()
	return &RealTelegramBotAdapter{bot: bot, cfg: cfg, rateLimiter: red.AllowAll{}, log: &l}, nil
}

func newAdapter(bot botClient, cfg *config.BotConfig, rateCfg config.RateLimitConfig, facade *application.BotFacade, rateLimiter red.Limiter, jobs *worker.Pool, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if facade == nil {
		return nil, errors.New("bot facade is nil")
	}
	if jobs == nil {
		return nil, errors.New("job pool is nil")
	}
	if rateLimiter == nil {
		rateLimiter = red.AllowAll{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	l := logger.With().Str("component", "telegram_bot").Logger()
	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		rateCfg:       rateCfg,
		facade:        facade,
		rateLimiter:   rateLimiter,
		jobs:          jobs,
		log:           &l,
		updateWorkers: workers,
	}, nil
}

// StartPolling blocks until ctx is cancelled, fanning updates out to workers.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("adapter has no facade; built with NewSender")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel

	if err := r.SetMenuCommands(); err != nil {
		r.log.Warn().Err(err).Msg("failed to set menu commands")
	}

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case up, ok := <-updateChan:
					if !ok {
						return
					}
					r.dispatch(ctx, id, up)
				}
			}
		}(i)
	}

	r.log.Info().Int("workers", r.updateWorkers).Msg("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			close(updateChan)
			wg.Wait()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				close(updateChan)
				wg.Wait()
				return nil
			}
			select {
			case updateChan <- up:
			case <-ctx.Done():
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

// dispatch tags the update with a trace id and routes it.
func (r *RealTelegramBotAdapter) dispatch(ctx context.Context, workerID int, up tgbotapi.Update) {
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	if from := up.SentFrom(); from != nil {
		ctx = logging.WithTgID(ctx, from.ID)
	}
	if err := r.handleUpdate(ctx, up); err != nil {
		logging.With(ctx, r.log).Error().Err(err).Int("worker", workerID).Msg("update handling failed")
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return r.handleQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return nil
	}
	return r.handleMessage(ctx, update.Message)
}

// allow applies the per-user command limit. Limiter errors let the request through.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, tgID int64, action string) bool {
	ok, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(tgID, action), r.rateCfg.Commands, r.rateCfg.Window)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		metrics.IncRateLimitTriggered()
	}
	return ok
}

// SendMessage implements the delivery port.
func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	_, err := r.send(ctx, p)
	return err
}

func (r *RealTelegramBotAdapter) send(ctx context.Context, p adapter.SendMessageParams) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	msg := tgbotapi.NewMessage(p.ChatID, p.Text)
	msg.ParseMode = p.ParseMode
	msg.DisableWebPagePreview = p.DisableWebPreview
	msg.ReplyToMessageID = p.ReplyToMessageID
	if kb := keyboard(p.Buttons); kb != nil {
		msg.ReplyMarkup = *kb
	}

	sent, err := r.bot.Send(msg)
	metrics.IncMessageSent(err == nil)
	if err != nil {
		return 0, fmt.Errorf("send to %d: %w: %w", p.ChatID, domain.ErrDelivery, err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text of a message sent earlier.
func (r *RealTelegramBotAdapter) EditMessage(ctx context.Context, p adapter.EditMessageParams) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	edit := tgbotapi.NewEditMessageText(p.ChatID, p.MessageID, p.Text)
	edit.ParseMode = p.ParseMode
	edit.DisableWebPagePreview = p.DisableWebPreview
	if _, err := r.bot.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit %d/%d: %w: %w", p.ChatID, p.MessageID, domain.ErrDelivery, err)
	}
	return nil
}

// reply sends a facade reply as HTML and commits it once delivered.
func (r *RealTelegramBotAdapter) reply(ctx context.Context, chatID int64, rep application.Reply) error {
	_, err := r.send(ctx, adapter.SendMessageParams{
		ChatID:            chatID,
		Text:              rep.Text,
		ParseMode:         adapter.ParseModeHTML,
		DisableWebPreview: true,
		Buttons:           rep.Buttons,
	})
	if err != nil {
		return err
	}
	return r.commit(ctx, rep)
}

func (r *RealTelegramBotAdapter) commit(ctx context.Context, rep application.Reply) error {
	if rep.Commit == nil {
		return nil
	}
	if err := rep.Commit(ctx); err != nil {
		return fmt.Errorf("commit baseline: %w", err)
	}
	return nil
}

// SetMenuCommands publishes the command list shown by Telegram clients.
func (r *RealTelegramBotAdapter) SetMenuCommands() error {
	cmds := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "unfollowers", Description: "Who stopped following you back"},
		tgbotapi.BotCommand{Command: "start_notifying", Description: "Daily report about new unfollowers"},
		tgbotapi.BotCommand{Command: "stop_notifying", Description: "Stop the daily report"},
		tgbotapi.BotCommand{Command: "language", Description: "Change the language"},
		tgbotapi.BotCommand{Command: "help", Description: "How to use the bot"},
	)
	_, err := r.bot.Request(cmds)
	return err
}

// keyboard builds an inline keyboard. Buttons open URL when set, otherwise
// send Data, falling back to Text as callback data. Returns nil for no rows.
func keyboard(rows [][]adapter.InlineButton) *tgbotapi.InlineKeyboardMarkup {
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				line = append(line, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				line = append(line, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				line = append(line, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		kbRows = append(kbRows, line)
	}
	if len(kbRows) == 0 {
		return nil
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	return &markup
}
