//go:build !integration

package postgres

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/repository"
	red "instagram-unfollower-bot/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerSubscriberRepo mocks the database repository that the decorator wraps.
type mockInnerSubscriberRepo struct {
	FindByTelegramIDFunc    func(ctx context.Context, tx repository.Tx, tgID int64) (*model.Subscriber, error)
	UpsertLinkedAccountFunc func(ctx context.Context, tx repository.Tx, tgID int64, account model.AccountID) error
	SetNotifiedFunc         func(ctx context.Context, tx repository.Tx, tgID int64, on bool) error

	findCalls int
}

func (m *mockInnerSubscriberRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Subscriber, error) {
	m.findCalls++
	return m.FindByTelegramIDFunc(ctx, tx, tgID)
}
func (m *mockInnerSubscriberRepo) UpsertLinkedAccount(ctx context.Context, tx repository.Tx, tgID int64, account model.AccountID) error {
	return m.UpsertLinkedAccountFunc(ctx, tx, tgID, account)
}
func (m *mockInnerSubscriberRepo) SetNotified(ctx context.Context, tx repository.Tx, tgID int64, on bool) error {
	return m.SetNotifiedFunc(ctx, tx, tgID, on)
}
func (m *mockInnerSubscriberRepo) SetLanguage(ctx context.Context, tx repository.Tx, tgID int64, lang string) error {
	return nil
}
func (m *mockInnerSubscriberRepo) ListNotifiedIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	return nil, nil
}
func (m *mockInnerSubscriberRepo) CountSubscribers(ctx context.Context, tx repository.Tx) (int, int, error) {
	return 0, 0, nil
}

// stagedSubscriberRepo makes transactional writes visible only on commit,
// like Postgres under READ COMMITTED.
type stagedSubscriberRepo struct {
	mockInnerSubscriberRepo

	mu        sync.Mutex
	committed map[int64]model.AccountID
	pending   map[int64]model.AccountID
}

func newStagedSubscriberRepo(committed map[int64]model.AccountID) *stagedSubscriberRepo {
	return &stagedSubscriberRepo{committed: committed, pending: map[int64]model.AccountID{}}
}

func (s *stagedSubscriberRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Subscriber, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.committed[tgID]
	if tx != nil {
		if p, staged := s.pending[tgID]; staged {
			acc, ok = p, true
		}
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &model.Subscriber{TelegramID: tgID, LinkedAccount: &acc}, nil
}

func (s *stagedSubscriberRepo) UpsertLinkedAccount(ctx context.Context, tx repository.Tx, tgID int64, account model.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx == nil {
		s.committed[tgID] = account
		return nil
	}
	s.pending[tgID] = account
	return nil
}

func (s *stagedSubscriberRepo) commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.pending {
		s.committed[k] = v
	}
	s.pending = map[int64]model.AccountID{}
}

// mockRedisClient records deletions and serves Get/Set through funcs.
type mockRedisClient struct {
	GetFunc func(ctx context.Context, key string) (string, error)
	SetFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}
func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return "", red.Nil
}
func (m *mockRedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 1, nil
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc != nil {
		return m.DelFunc(ctx, keys...)
	}
	return nil
}
func (m *mockRedisClient) Close() error { return nil }

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
