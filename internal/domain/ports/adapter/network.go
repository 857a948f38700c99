package adapter

import (
	"context"

	"instagram-unfollower-bot/internal/domain/model"
)

// SocialNetworkClient reads the follow graph of the tracked social network.
//
// Failures of transport, authentication or rate limiting are wrapped with
// domain.ErrUpstream. An unknown handle yields domain.ErrNotFound.
type SocialNetworkClient interface {
	// EnsureAuthenticated logs in when no valid session is held. Idempotent.
	EnsureAuthenticated(ctx context.Context) error
	ResolveHandle(ctx context.Context, handle string) (model.AccountID, error)
	// Followers and Followings return complete lists; pagination is internal.
	Followers(ctx context.Context, id model.AccountID) ([]model.FollowingProfile, error)
	Followings(ctx context.Context, id model.AccountID) ([]model.FollowingProfile, error)
}
