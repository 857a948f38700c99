package repository

import (
	"context"

	"instagram-unfollower-bot/internal/domain/model"
)

// -----------------------------
// Subscribers
// -----------------------------

type SubscriberRepository interface {
	// FindByTelegramID returns domain.ErrNotFound when the subscriber does not exist.
	FindByTelegramID(ctx context.Context, tx Tx, tgID int64) (*model.Subscriber, error)
	// UpsertLinkedAccount creates the subscriber or replaces its linked account.
	UpsertLinkedAccount(ctx context.Context, tx Tx, tgID int64, account model.AccountID) error
	SetNotified(ctx context.Context, tx Tx, tgID int64, on bool) error
	SetLanguage(ctx context.Context, tx Tx, tgID int64, lang string) error
	// ListNotifiedIDs returns ids of subscribers with notifications on, ascending.
	ListNotifiedIDs(ctx context.Context, tx Tx) ([]int64, error)
	CountSubscribers(ctx context.Context, tx Tx) (total int, notified int, err error)
}
