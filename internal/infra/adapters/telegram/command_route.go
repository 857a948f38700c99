package telegram

import (
	"context"
	"strings"

	"instagram-unfollower-bot/internal/application"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/infra/logging"
	"instagram-unfollower-bot/internal/infra/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type commandHandler func(ctx context.Context, message *tgbotapi.Message) error

// commandRoutes defines all available bot commands and their handlers.
func (r *RealTelegramBotAdapter) commandRoutes() map[string]commandHandler {
	return map[string]commandHandler{
		"start":           r.handleStartCommand,
		"help":            r.handleHelpCommand,
		"unfollowers":     r.handleUnfollowersCommand,
		"start_notifying": r.notifyCommand(true),
		"stop_notifying":  r.notifyCommand(false),
		"language":        r.handleLanguageCommand,
	}
}

func request(message *tgbotapi.Message) application.Request {
	return application.Request{TgID: message.From.ID, ClientLang: message.From.LanguageCode}
}

// handleMessage routes commands, and treats any other text as an account handle.
func (r *RealTelegramBotAdapter) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	action := "text"
	if message.IsCommand() {
		action = message.Command()
	}
	metrics.IncTelegramCommand(action)

	if !r.allow(ctx, message.From.ID, action) {
		t := r.facade.Localizer.ForClient(ctx, message.From.ID, message.From.LanguageCode)
		return r.reply(ctx, message.Chat.ID, application.Reply{Text: t("rate_limited")})
	}

	if !message.IsCommand() {
		if strings.TrimSpace(message.Text) == "" {
			return nil
		}
		return r.handleTextMessage(ctx, message)
	}
	if fn, ok := r.commandRoutes()[message.Command()]; ok {
		return fn(ctx, message)
	}
	return r.reply(ctx, message.Chat.ID, r.facade.HandleUnknown(ctx, request(message)))
}

func (r *RealTelegramBotAdapter) handleStartCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.reply(ctx, message.Chat.ID, r.facade.HandleStart(ctx, request(message)))
}

func (r *RealTelegramBotAdapter) handleHelpCommand(ctx context.Context, message *tgbotapi.Message) error {
	return r.reply(ctx, message.Chat.ID, r.facade.HandleHelp(ctx, request(message)))
}

func (r *RealTelegramBotAdapter) handleTextMessage(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := r.facade.HandleText(ctx, request(message), message.Text)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("link account failed")
	} else if rep.Linked {
		metrics.IncAccountsLinked()
	}
	return r.reply(ctx, message.Chat.ID, rep)
}

// handleUnfollowersCommand inspects the linked account. The baseline advances
// only after the report was delivered.
func (r *RealTelegramBotAdapter) handleUnfollowersCommand(ctx context.Context, message *tgbotapi.Message) error {
	req := request(message)
	t := r.facade.Localizer.ForClient(ctx, req.TgID, req.ClientLang)
	if err := r.SendMessage(ctx, adapter.SendMessageParams{ChatID: message.Chat.ID, Text: t("checking")}); err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("failed to send checking notice")
	}

	rep, err := r.facade.HandleUnfollowers(ctx, req)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("unfollowers check failed")
	}
	return r.reply(ctx, message.Chat.ID, rep)
}

func (r *RealTelegramBotAdapter) notifyCommand(on bool) commandHandler {
	return func(ctx context.Context, message *tgbotapi.Message) error {
		rep, err := r.facade.HandleNotifications(ctx, request(message), on)
		if err != nil {
			logging.With(ctx, r.log).Error().Err(err).Bool("on", on).Msg("toggle notifications failed")
		}
		return r.reply(ctx, message.Chat.ID, rep)
	}
}

func (r *RealTelegramBotAdapter) handleLanguageCommand(ctx context.Context, message *tgbotapi.Message) error {
	rep, err := r.facade.HandleLanguage(ctx, request(message), message.CommandArguments())
	if err != nil {
		logging.With(ctx, r.log).Error().Err(err).Msg("set language failed")
	}
	return r.reply(ctx, message.Chat.ID, rep)
}
