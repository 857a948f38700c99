package usecase

import (
	"context"
	"strings"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase exposes the operations behind interactive bot commands.
type AccountUseCase interface {
	LinkAccount(ctx context.Context, tgID int64, handle string) (model.AccountID, error)
	SetNotifications(ctx context.Context, tgID int64, on bool) (bool, error)
	// CheckNew inspects the linked account and diffs against the baseline.
	CheckNew(ctx context.Context, tgID int64) (*Detection, error)
	// CheckAll inspects the linked account and reports every current unfollower.
	CheckAll(ctx context.Context, tgID int64) (*Detection, error)
	// Acknowledge advances the baseline after the result reached the user.
	Acknowledge(ctx context.Context, d *Detection) error
	SetLanguage(ctx context.Context, tgID int64, lang string) (bool, error)
	Language(ctx context.Context, tgID int64) (string, error)
	Stats(ctx context.Context) (total int, notified int, err error)
}

type accountUC struct {
	inspector Inspector
	store     UnfollowerStore
	tracker   Tracker
	log       *zerolog.Logger
}

func NewAccountUseCase(inspector Inspector, store UnfollowerStore, tracker Tracker, logger *zerolog.Logger) *accountUC {
	return &accountUC{inspector: inspector, store: store, tracker: tracker, log: logger}
}

func (a *accountUC) LinkAccount(ctx context.Context, tgID int64, handle string) (model.AccountID, error) {
	defer logging.TraceDuration(a.log, "AccountUC.LinkAccount")()

	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if tgID <= 0 || handle == "" {
		return 0, domain.ErrInvalidArgument
	}
	id, err := a.inspector.ResolveAccountID(ctx, handle)
	if err != nil {
		return 0, err
	}
	if err := a.store.SetLinkedAccount(ctx, tgID, id); err != nil {
		return 0, err
	}
	a.log.Info().Int64("tg_id", tgID).Int64("account_id", int64(id)).Msg("account linked")
	return id, nil
}

func (a *accountUC) SetNotifications(ctx context.Context, tgID int64, on bool) (bool, error) {
	defer logging.TraceDuration(a.log, "AccountUC.SetNotifications")()
	return a.store.SetSubscribed(ctx, tgID, on)
}

func (a *accountUC) CheckNew(ctx context.Context, tgID int64) (*Detection, error) {
	defer logging.TraceDuration(a.log, "AccountUC.CheckNew")()

	accountID, err := a.linked(ctx, tgID)
	if err != nil {
		return nil, err
	}
	return a.tracker.Detect(ctx, accountID)
}

func (a *accountUC) CheckAll(ctx context.Context, tgID int64) (*Detection, error) {
	defer logging.TraceDuration(a.log, "AccountUC.CheckAll")()

	accountID, err := a.linked(ctx, tgID)
	if err != nil {
		return nil, err
	}
	current, profiles, err := a.inspector.Inspect(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Detection{AccountID: accountID, New: current, Current: current, Profiles: profiles}, nil
}

func (a *accountUC) Acknowledge(ctx context.Context, d *Detection) error {
	defer logging.TraceDuration(a.log, "AccountUC.Acknowledge")()
	return a.tracker.Commit(ctx, d)
}

func (a *accountUC) SetLanguage(ctx context.Context, tgID int64, lang string) (bool, error) {
	return a.store.SetLanguage(ctx, tgID, strings.ToLower(strings.TrimSpace(lang)))
}

func (a *accountUC) Language(ctx context.Context, tgID int64) (string, error) {
	return a.store.Language(ctx, tgID)
}

func (a *accountUC) Stats(ctx context.Context) (int, int, error) {
	return a.store.Stats(ctx)
}

func (a *accountUC) linked(ctx context.Context, tgID int64) (model.AccountID, error) {
	accountID, ok, err := a.store.LinkedAccount(ctx, tgID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrNoLinkedAccount
	}
	return accountID, nil
}
