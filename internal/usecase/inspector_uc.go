package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ Inspector = (*inspector)(nil)

// Inspector reads the follow graph and derives the current unfollower set.
// It holds no persisted state.
type Inspector interface {
	ResolveAccountID(ctx context.Context, handle string) (model.AccountID, error)
	// Inspect returns followings minus followers, together with the followings
	// so that display names resolve without another round trip.
	Inspect(ctx context.Context, id model.AccountID) (model.IDSet, []model.FollowingProfile, error)
}

type inspector struct {
	client    adapter.SocialNetworkClient
	clock     Clock
	callDelay time.Duration
	log       *zerolog.Logger
}

func NewInspector(client adapter.SocialNetworkClient, clock Clock, callDelay time.Duration, logger *zerolog.Logger) *inspector {
	if clock == nil {
		clock = SystemClock()
	}
	l := logger.With().Str("component", "inspector").Logger()
	return &inspector{client: client, clock: clock, callDelay: callDelay, log: &l}
}

func (i *inspector) ResolveAccountID(ctx context.Context, handle string) (model.AccountID, error) {
	defer logging.TraceDuration(i.log, "Inspector.ResolveAccountID")()

	if handle == "" {
		return 0, domain.ErrInvalidArgument
	}
	if err := i.client.EnsureAuthenticated(ctx); err != nil {
		return 0, upstreamErr("authenticate", err)
	}
	id, err := i.client.ResolveHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
		return 0, upstreamErr("resolve handle", err)
	}
	return id, nil
}

func (i *inspector) Inspect(ctx context.Context, id model.AccountID) (model.IDSet, []model.FollowingProfile, error) {
	defer logging.TraceDuration(i.log, "Inspector.Inspect")()

	// Sessions may expire during the long sleeps between cycles.
	if err := i.client.EnsureAuthenticated(ctx); err != nil {
		return nil, nil, upstreamErr("authenticate", err)
	}

	if err := i.clock.Sleep(ctx, i.callDelay); err != nil {
		return nil, nil, err
	}
	followers, err := i.client.Followers(ctx, id)
	if err != nil {
		return nil, nil, upstreamErr("fetch followers", err)
	}

	if err := i.clock.Sleep(ctx, i.callDelay); err != nil {
		return nil, nil, err
	}
	followings, err := i.client.Followings(ctx, id)
	if err != nil {
		return nil, nil, upstreamErr("fetch followings", err)
	}

	unfollowers := model.Unfollowers(followers, followings)
	i.log.Debug().
		Int64("account_id", int64(id)).
		Int("followers", len(followers)).
		Int("followings", len(followings)).
		Int("unfollowers", unfollowers.Len()).
		Msg("inspected account")
	return unfollowers, followings, nil
}

// upstreamErr classifies a client failure as domain.ErrUpstream unless it
// already carries a domain classification or is a cancellation.
func upstreamErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstream, err)
	}
}
