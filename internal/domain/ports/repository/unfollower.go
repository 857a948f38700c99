package repository

import (
	"context"

	"instagram-unfollower-bot/internal/domain/model"
)

// -----------------------------
// Unfollower snapshots
// -----------------------------

type UnfollowerRepository interface {
	ListByAccount(ctx context.Context, tx Tx, account model.AccountID) ([]model.AccountID, error)
	DeleteByAccount(ctx context.Context, tx Tx, account model.AccountID) error
	InsertMany(ctx context.Context, tx Tx, account model.AccountID, ids []model.AccountID) error
}
