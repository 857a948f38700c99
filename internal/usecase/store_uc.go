package usecase

import (
	"context"
	"errors"
	"fmt"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/repository"
	"instagram-unfollower-bot/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UnfollowerStore = (*unfollowerStore)(nil)

// UnfollowerStore persists subscribers and per-account unfollower baselines.
// Every method is a single atomic operation. Backing-store failures are
// returned wrapped with domain.ErrStorage.
type UnfollowerStore interface {
	KnownUnfollowers(ctx context.Context, accountID model.AccountID) (model.IDSet, error)
	// ReplaceKnownUnfollowers swaps the whole baseline of an account; all-or-nothing.
	ReplaceKnownUnfollowers(ctx context.Context, accountID model.AccountID, ids model.IDSet) error

	LinkedAccount(ctx context.Context, subscriberID int64) (model.AccountID, bool, error)
	SetLinkedAccount(ctx context.Context, subscriberID int64, accountID model.AccountID) error
	// SetSubscribed returns false without writing when the subscriber is unknown
	// or has no linked account.
	SetSubscribed(ctx context.Context, subscriberID int64, on bool) (bool, error)
	ListSubscribedIDs(ctx context.Context) ([]int64, error)

	Language(ctx context.Context, subscriberID int64) (string, error)
	SetLanguage(ctx context.Context, subscriberID int64, lang string) (bool, error)

	Stats(ctx context.Context) (total int, notified int, err error)
}

type unfollowerStore struct {
	subscribers repository.SubscriberRepository
	unfollowers repository.UnfollowerRepository
	tm          repository.TransactionManager
	log         *zerolog.Logger
}

func NewUnfollowerStore(subscribers repository.SubscriberRepository, unfollowers repository.UnfollowerRepository, tm repository.TransactionManager, logger *zerolog.Logger) *unfollowerStore {
	return &unfollowerStore{
		subscribers: subscribers,
		unfollowers: unfollowers,
		tm:          tm,
		log:         logger,
	}
}

func (s *unfollowerStore) KnownUnfollowers(ctx context.Context, accountID model.AccountID) (model.IDSet, error) {
	defer logging.TraceDuration(s.log, "UnfollowerStore.KnownUnfollowers")()

	ids, err := s.unfollowers.ListByAccount(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, storageErr("list known unfollowers", err)
	}
	return model.NewIDSet(ids...), nil
}

func (s *unfollowerStore) ReplaceKnownUnfollowers(ctx context.Context, accountID model.AccountID, ids model.IDSet) error {
	defer logging.TraceDuration(s.log, "UnfollowerStore.ReplaceKnownUnfollowers")()

	sorted := ids.Sorted()
	err := s.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		if err := s.unfollowers.DeleteByAccount(ctx, tx, accountID); err != nil {
			return err
		}
		if len(sorted) == 0 {
			return nil
		}
		return s.unfollowers.InsertMany(ctx, tx, accountID, sorted)
	})
	if err != nil {
		s.log.Error().Err(err).Int64("account_id", int64(accountID)).Msg("failed to replace known unfollowers")
		return storageErr("replace known unfollowers", err)
	}
	return nil
}

func (s *unfollowerStore) LinkedAccount(ctx context.Context, subscriberID int64) (model.AccountID, bool, error) {
	defer logging.TraceDuration(s.log, "UnfollowerStore.LinkedAccount")()

	sub, err := s.subscribers.FindByTelegramID(ctx, repository.NoTX, subscriberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, storageErr("find subscriber", err)
	}
	if !sub.HasLinkedAccount() {
		return 0, false, nil
	}
	return *sub.LinkedAccount, true, nil
}

func (s *unfollowerStore) SetLinkedAccount(ctx context.Context, subscriberID int64, accountID model.AccountID) error {
	defer logging.TraceDuration(s.log, "UnfollowerStore.SetLinkedAccount")()

	if subscriberID <= 0 || accountID <= 0 {
		return domain.ErrInvalidArgument
	}
	err := s.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		return s.subscribers.UpsertLinkedAccount(ctx, tx, subscriberID, accountID)
	})
	if err != nil {
		return storageErr("link account", err)
	}
	return nil
}

func (s *unfollowerStore) SetSubscribed(ctx context.Context, subscriberID int64, on bool) (bool, error) {
	defer logging.TraceDuration(s.log, "UnfollowerStore.SetSubscribed")()

	var applied bool
	err := s.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := s.subscribers.FindByTelegramID(ctx, tx, subscriberID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		if !sub.HasLinkedAccount() {
			return nil
		}
		if err := s.subscribers.SetNotified(ctx, tx, subscriberID, on); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, storageErr("set subscribed", err)
	}
	return applied, nil
}

func (s *unfollowerStore) ListSubscribedIDs(ctx context.Context) ([]int64, error) {
	defer logging.TraceDuration(s.log, "UnfollowerStore.ListSubscribedIDs")()

	ids, err := s.subscribers.ListNotifiedIDs(ctx, repository.NoTX)
	if err != nil {
		return nil, storageErr("list subscribed ids", err)
	}
	return ids, nil
}

func (s *unfollowerStore) Language(ctx context.Context, subscriberID int64) (string, error) {
	sub, err := s.subscribers.FindByTelegramID(ctx, repository.NoTX, subscriberID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", storageErr("find subscriber", err)
	}
	return sub.Language, nil
}

func (s *unfollowerStore) SetLanguage(ctx context.Context, subscriberID int64, lang string) (bool, error) {
	defer logging.TraceDuration(s.log, "UnfollowerStore.SetLanguage")()

	var applied bool
	err := s.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := s.subscribers.FindByTelegramID(ctx, tx, subscriberID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		if err := s.subscribers.SetLanguage(ctx, tx, subscriberID, lang); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, storageErr("set language", err)
	}
	return applied, nil
}

func (s *unfollowerStore) Stats(ctx context.Context) (int, int, error) {
	total, notified, err := s.subscribers.CountSubscribers(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, storageErr("count subscribers", err)
	}
	return total, notified, nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
