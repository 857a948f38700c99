package telegram

import (
	"context"

	"instagram-unfollower-bot/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter implements adapter.TelegramBotAdapter for local/dev runs.
// It logs messages instead of sending them.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "noop_telegram").Logger()
	return &NoopBotAdapter{log: &l}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", p.ChatID).Int("button_rows", len(p.Buttons)).Str("text", p.Text).Msg("send")
	return nil
}

func (b *NoopBotAdapter) EditMessage(ctx context.Context, p adapter.EditMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", p.ChatID).Int("message_id", p.MessageID).Str("text", p.Text).Msg("edit")
	return nil
}
