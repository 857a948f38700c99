package usecase

import (
	"context"
	"fmt"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ Tracker = (*tracker)(nil)

// Detection is the outcome of one inspection of one account.
type Detection struct {
	AccountID model.AccountID
	// New holds the unfollowers absent from the stored baseline.
	New model.IDSet
	// Current is the full unfollower set; it becomes the baseline on Commit.
	Current  model.IDSet
	Profiles []model.FollowingProfile
}

// Tracker pairs an inspection with the stored baseline. Detect never writes;
// Commit is called once the caller has delivered the result.
type Tracker interface {
	Detect(ctx context.Context, accountID model.AccountID) (*Detection, error)
	Commit(ctx context.Context, d *Detection) error
}

type tracker struct {
	inspector Inspector
	store     UnfollowerStore
	log       *zerolog.Logger
}

func NewTracker(inspector Inspector, store UnfollowerStore, logger *zerolog.Logger) *tracker {
	return &tracker{inspector: inspector, store: store, log: logger}
}

func (t *tracker) Detect(ctx context.Context, accountID model.AccountID) (*Detection, error) {
	defer logging.TraceDuration(t.log, "Tracker.Detect")()

	known, err := t.store.KnownUnfollowers(ctx, accountID)
	if err != nil {
		return nil, err
	}
	current, profiles, err := t.inspector.Inspect(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Detection{
		AccountID: accountID,
		New:       model.DiffNew(known, current),
		Current:   current,
		Profiles:  profiles,
	}, nil
}

func (t *tracker) Commit(ctx context.Context, d *Detection) error {
	defer logging.TraceDuration(t.log, "Tracker.Commit")()

	if d == nil || d.AccountID <= 0 {
		return fmt.Errorf("commit detection: %w", domain.ErrInvalidArgument)
	}
	return t.store.ReplaceKnownUnfollowers(ctx, d.AccountID, d.Current)
}
