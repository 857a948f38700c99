package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/repository"
	"instagram-unfollower-bot/internal/infra/metrics"
	red "instagram-unfollower-bot/internal/infra/redis"
)

var _ repository.SubscriberRepository = (*subscriberRepoCacheDecorator)(nil)

// subscriberRepoCacheDecorator caches FindByTelegramID. Reads inside a
// transaction go straight to the database; every write drops the entry, again
// after commit when it ran inside a transaction.
type subscriberRepoCacheDecorator struct {
	inner repository.SubscriberRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewSubscriberRepoCacheDecorator(inner repository.SubscriberRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.SubscriberRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &subscriberRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func subscriberKey(tgID int64) string { return fmt.Sprintf("subscriber:tgid:%d", tgID) }

func (d *subscriberRepoCacheDecorator) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Subscriber, error) {
	if tx != nil {
		metrics.IncCacheRequest("subscriber", "bypass")
		return d.inner.FindByTelegramID(ctx, tx, tgID)
	}

	key := subscriberKey(tgID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var s model.Subscriber
		if json.Unmarshal([]byte(val), &s) == nil {
			metrics.IncCacheRequest("subscriber", "hit")
			return &s, nil
		}
	} else if !errors.Is(err, red.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("subscriber cache read failed")
	}

	metrics.IncCacheRequest("subscriber", "miss")
	s, err := d.inner.FindByTelegramID(ctx, tx, tgID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(s); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("subscriber cache write failed")
		}
	}
	return s, nil
}

func (d *subscriberRepoCacheDecorator) UpsertLinkedAccount(ctx context.Context, tx repository.Tx, tgID int64, account model.AccountID) error {
	defer d.dropAfterWrite(ctx, tgID)
	return d.inner.UpsertLinkedAccount(ctx, tx, tgID, account)
}

func (d *subscriberRepoCacheDecorator) SetNotified(ctx context.Context, tx repository.Tx, tgID int64, on bool) error {
	defer d.dropAfterWrite(ctx, tgID)
	return d.inner.SetNotified(ctx, tx, tgID, on)
}

func (d *subscriberRepoCacheDecorator) SetLanguage(ctx context.Context, tx repository.Tx, tgID int64, lang string) error {
	defer d.dropAfterWrite(ctx, tgID)
	return d.inner.SetLanguage(ctx, tx, tgID, lang)
}

// Pass-through methods that don't need caching
func (d *subscriberRepoCacheDecorator) ListNotifiedIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	return d.inner.ListNotifiedIDs(ctx, tx)
}

func (d *subscriberRepoCacheDecorator) CountSubscribers(ctx context.Context, tx repository.Tx) (int, int, error) {
	return d.inner.CountSubscribers(ctx, tx)
}

// dropAfterWrite deletes the entry now and, inside a transaction, once more
// after commit: a reader outside the transaction may re-cache the old row
// before the new one is visible.
func (d *subscriberRepoCacheDecorator) dropAfterWrite(ctx context.Context, tgID int64) {
	d.invalidate(ctx, tgID)
	repository.AfterCommit(ctx, func(ctx context.Context) { d.invalidate(ctx, tgID) })
}

func (d *subscriberRepoCacheDecorator) invalidate(ctx context.Context, tgID int64) {
	if err := d.cache.Del(ctx, subscriberKey(tgID)); err != nil {
		d.log.Warn().Err(err).Int64("tg_id", tgID).Msg("subscriber cache invalidation failed")
	}
}
