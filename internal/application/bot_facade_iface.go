package application

import (
	"context"

	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/usecase"
)

// ---- small interfaces to decouple the facade from concrete implementations ----

type AccountUseCaseIface interface {
	LinkAccount(ctx context.Context, tgID int64, handle string) (model.AccountID, error)
	SetNotifications(ctx context.Context, tgID int64, on bool) (bool, error)
	CheckNew(ctx context.Context, tgID int64) (*usecase.Detection, error)
	CheckAll(ctx context.Context, tgID int64) (*usecase.Detection, error)
	Acknowledge(ctx context.Context, d *usecase.Detection) error
	SetLanguage(ctx context.Context, tgID int64, lang string) (bool, error)
}

type LocalizerIface interface {
	ForClient(ctx context.Context, tgID int64, clientLang string) model.TranslateFn
	Languages() []string
}
