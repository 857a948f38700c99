//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
)

func TestInspector_Inspect(t *testing.T) {
	ctx := context.Background()

	t.Run("should return followings minus followers", func(t *testing.T) {
		// --- Arrange ---
		env := newTestEnv()
		env.client.SetGraph(42, []model.AccountID{1, 2}, []model.AccountID{2, 3, 4})

		// --- Act ---
		unf, profiles, err := env.inspector.Inspect(ctx, 42)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !unf.Equal(model.NewIDSet(3, 4)) {
			t.Errorf("expected {3,4}, got %v", unf.Sorted())
		}
		if len(profiles) != 3 {
			t.Errorf("expected the 3 followings to be returned, got %d", len(profiles))
		}
		if env.client.Calls.Auth != 1 {
			t.Errorf("expected one authentication check, got %d", env.client.Calls.Auth)
		}
	})

	t.Run("should wait the call delay before each fetch", func(t *testing.T) {
		env := newTestEnv()
		env.client.SetGraph(42, nil, nil)

		if _, _, err := env.inspector.Inspect(ctx, 42); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(env.clock.Slept) != 2 {
			t.Fatalf("expected 2 sleeps, got %d", len(env.clock.Slept))
		}
		for _, d := range env.clock.Slept {
			if d != time.Second {
				t.Errorf("expected 1s call delay, got %v", d)
			}
		}
	})

	t.Run("should be idempotent for an unchanged graph", func(t *testing.T) {
		env := newTestEnv()
		env.client.SetGraph(42, []model.AccountID{1}, []model.AccountID{1, 5, 6})

		first, _, err1 := env.inspector.Inspect(ctx, 42)
		second, _, err2 := env.inspector.Inspect(ctx, 42)
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected errors: %v, %v", err1, err2)
		}
		if !first.Equal(second) {
			t.Errorf("expected equal results, got %v and %v", first.Sorted(), second.Sorted())
		}
	})

	t.Run("should classify client failures as upstream errors", func(t *testing.T) {
		env := newTestEnv()
		env.client.FollowersErr = errors.New("connection reset")

		_, _, err := env.inspector.Inspect(ctx, 42)
		if !errors.Is(err, domain.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("should classify authentication failures as upstream errors", func(t *testing.T) {
		env := newTestEnv()
		env.client.AuthErr = errors.New("checkpoint required")

		_, _, err := env.inspector.Inspect(ctx, 42)
		if !errors.Is(err, domain.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
		if env.client.Calls.Followers != 0 {
			t.Error("expected no fetch after a failed login")
		}
	})

	t.Run("should stop when the context is cancelled", func(t *testing.T) {
		env := newTestEnv()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := env.inspector.Inspect(cctx, 42)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestInspector_ResolveAccountID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.client.Handles["some.user"] = 777

	t.Run("should resolve a known handle", func(t *testing.T) {
		id, err := env.inspector.ResolveAccountID(ctx, "some.user")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != 777 {
			t.Errorf("expected 777, got %d", id)
		}
	})

	t.Run("should return not found for an unknown handle", func(t *testing.T) {
		_, err := env.inspector.ResolveAccountID(ctx, "nobody")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if errors.Is(err, domain.ErrUpstream) {
			t.Error("not found must not be classified as upstream")
		}
	})
}
