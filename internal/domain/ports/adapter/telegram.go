// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

type InlineButton struct {
	Text string
	Data string
	URL  string
}

// ParseMode values understood by the delivery adapter.
const (
	ParseModeNone = ""
	ParseModeHTML = "HTML"
)

type SendMessageParams struct {
	ChatID            int64
	Text              string
	ParseMode         string
	DisableWebPreview bool
	// Buttons is an inline keyboard, one slice per row.
	Buttons [][]InlineButton
	// ReplyToMessageID, when set, sends the message as a reply.
	ReplyToMessageID int
}

type EditMessageParams struct {
	ChatID            int64
	MessageID         int
	Text              string
	ParseMode         string
	DisableWebPreview bool
}

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
	EditMessage(ctx context.Context, params EditMessageParams) error
}
