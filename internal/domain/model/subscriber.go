package model

import (
	"time"

	"instagram-unfollower-bot/internal/domain"
)

// Subscriber is a Telegram user of the bot. It is created the first time the user
// links an Instagram account and is never hard-deleted.
type Subscriber struct {
	TelegramID    int64
	LinkedAccount *AccountID // nil until the user registers an account
	IsNotified    bool
	Language      string // empty means "use the client language"
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewSubscriber(tgID int64, account AccountID) (*Subscriber, error) {
	if tgID <= 0 || account <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscriber{
		TelegramID:    tgID,
		LinkedAccount: &account,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *Subscriber) IsZero() bool { return s == nil || s.TelegramID == 0 }

// HasLinkedAccount reports whether an Instagram account is registered.
func (s *Subscriber) HasLinkedAccount() bool {
	return s != nil && s.LinkedAccount != nil && *s.LinkedAccount > 0
}

// TranslateFn renders a localized message for a key.
type TranslateFn func(key string, args ...any) string
