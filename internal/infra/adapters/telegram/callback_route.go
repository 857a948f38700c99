package telegram

import (
	"context"
	"errors"
	"strings"

	"instagram-unfollower-bot/internal/application"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/infra/logging"
	"instagram-unfollower-bot/internal/usecase"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type cbHandler func(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64) error

// cbRoutes maps callback data to handlers.
func (r *RealTelegramBotAdapter) cbRoutes() map[string]cbHandler {
	return map[string]cbHandler{
		usecase.ShowAllCallback: r.showAllCBRoute,
	}
}

func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if query == nil || query.From == nil {
		return errors.New("invalid callback query")
	}

	// Stop the client spinner when we return.
	defer func() { _, _ = r.bot.Request(tgbotapi.NewCallback(query.ID, "")) }()

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}

	data := strings.TrimSpace(query.Data)
	if !r.allow(ctx, query.From.ID, "cb:"+data) {
		t := r.facade.Localizer.ForClient(ctx, query.From.ID, query.From.LanguageCode)
		return r.reply(ctx, chatID, application.Reply{Text: t("rate_limited")})
	}

	if fn, ok := r.cbRoutes()[data]; ok {
		return fn(ctx, query, chatID)
	}
	return errors.New("unknown callback data: " + data)
}

// showAllCBRoute posts a placeholder and runs the full inspection on the job
// pool, then edits the placeholder with the result.
func (r *RealTelegramBotAdapter) showAllCBRoute(ctx context.Context, query *tgbotapi.CallbackQuery, chatID int64) error {
	req := application.Request{TgID: query.From.ID, ClientLang: query.From.LanguageCode}
	t := r.facade.Localizer.ForClient(ctx, req.TgID, req.ClientLang)

	msgID, err := r.send(ctx, adapter.SendMessageParams{ChatID: chatID, Text: t("checking")})
	if err != nil {
		return err
	}

	// The job outlives the update handler, so it keeps only the ids of ctx.
	jobCtx := context.WithoutCancel(ctx)
	err = r.jobs.Submit(func(poolCtx context.Context) error {
		ctx, cancel := context.WithCancel(jobCtx)
		defer cancel()
		stop := context.AfterFunc(poolCtx, cancel)
		defer stop()
		return r.finishShowAll(ctx, req, chatID, msgID)
	})
	if err != nil {
		return r.EditMessage(ctx, adapter.EditMessageParams{ChatID: chatID, MessageID: msgID, Text: t("rate_limited")})
	}
	return nil
}

func (r *RealTelegramBotAdapter) finishShowAll(ctx context.Context, req application.Request, chatID int64, msgID int) error {
	log := logging.With(ctx, r.log)
	rep, err := r.facade.HandleShowAll(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("show all failed")
	}

	err = r.EditMessage(ctx, adapter.EditMessageParams{
		ChatID:            chatID,
		MessageID:         msgID,
		Text:              rep.Text,
		ParseMode:         adapter.ParseModeHTML,
		DisableWebPreview: true,
	})
	if err != nil {
		// e.g. the placeholder was deleted; fall back to a new message
		log.Warn().Err(err).Msg("edit failed, sending a new message")
		return r.reply(ctx, chatID, rep)
	}
	return r.commit(ctx, rep)
}
