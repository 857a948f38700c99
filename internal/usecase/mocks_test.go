//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/domain/ports/repository"
	"instagram-unfollower-bot/internal/usecase"
)

// =============================
// Adapters
// =============================

// ---- Mock TelegramBotAdapter ----

type MockTelegramBot struct {
	mu     sync.Mutex
	Sent   []adapter.SendMessageParams
	Edited []adapter.EditMessageParams

	SendMessageFunc func(ctx context.Context, params adapter.SendMessageParams) error
}

var _ adapter.TelegramBotAdapter = (*MockTelegramBot)(nil)

func (m *MockTelegramBot) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	if m.SendMessageFunc != nil {
		if err := m.SendMessageFunc(ctx, params); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, params)
	return nil
}

func (m *MockTelegramBot) EditMessage(ctx context.Context, params adapter.EditMessageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Edited = append(m.Edited, params)
	return nil
}

func (m *MockTelegramBot) SentTo(chatID int64) []adapter.SendMessageParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []adapter.SendMessageParams
	for _, p := range m.Sent {
		if p.ChatID == chatID {
			out = append(out, p)
		}
	}
	return out
}

// ---- Mock SocialNetworkClient ----

type MockSocialClient struct {
	mu sync.Mutex

	Handles    map[string]model.AccountID
	FollowersO map[model.AccountID][]model.FollowingProfile
	FollowingO map[model.AccountID][]model.FollowingProfile

	AuthErr      error
	FollowersErr error
	FollowingErr error

	Calls struct {
		Auth       int
		Followers  int
		Followings int
	}
}

var _ adapter.SocialNetworkClient = (*MockSocialClient)(nil)

func NewMockSocialClient() *MockSocialClient {
	return &MockSocialClient{
		Handles:    map[string]model.AccountID{},
		FollowersO: map[model.AccountID][]model.FollowingProfile{},
		FollowingO: map[model.AccountID][]model.FollowingProfile{},
	}
}

// SetGraph installs a follow graph in which the account follows every id in
// followings and is followed back by every id in followers.
func (m *MockSocialClient) SetGraph(id model.AccountID, followers, followings []model.AccountID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FollowersO[id] = profilesOf(followers)
	m.FollowingO[id] = profilesOf(followings)
}

func (m *MockSocialClient) EnsureAuthenticated(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Auth++
	return m.AuthErr
}

func (m *MockSocialClient) ResolveHandle(ctx context.Context, handle string) (model.AccountID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.Handles[handle]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return id, nil
}

func (m *MockSocialClient) Followers(ctx context.Context, id model.AccountID) ([]model.FollowingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Followers++
	if m.FollowersErr != nil {
		return nil, m.FollowersErr
	}
	return append([]model.FollowingProfile(nil), m.FollowersO[id]...), nil
}

func (m *MockSocialClient) Followings(ctx context.Context, id model.AccountID) ([]model.FollowingProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls.Followings++
	if m.FollowingErr != nil {
		return nil, m.FollowingErr
	}
	return append([]model.FollowingProfile(nil), m.FollowingO[id]...), nil
}

func profilesOf(ids []model.AccountID) []model.FollowingProfile {
	out := make([]model.FollowingProfile, len(ids))
	for i, id := range ids {
		out[i] = model.FollowingProfile{ID: id, Username: fmt.Sprintf("user_%d", id)}
	}
	return out
}

// =============================
// Repositories
// =============================

// ---- In-memory SubscriberRepository ----

type MockSubscriberRepo struct {
	mu   sync.Mutex
	byTG map[int64]model.Subscriber

	ErrOnFind  error
	ErrOnWrite error
	ErrOnList  error
}

var _ repository.SubscriberRepository = (*MockSubscriberRepo)(nil)

func NewMockSubscriberRepo() *MockSubscriberRepo {
	return &MockSubscriberRepo{byTG: map[int64]model.Subscriber{}}
}

func (r *MockSubscriberRepo) FindByTelegramID(ctx context.Context, tx repository.Tx, tgID int64) (*model.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrOnFind != nil {
		return nil, r.ErrOnFind
	}
	s, ok := r.byTG[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := s
	return &cp, nil
}

func (r *MockSubscriberRepo) UpsertLinkedAccount(ctx context.Context, tx repository.Tx, tgID int64, account model.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrOnWrite != nil {
		return r.ErrOnWrite
	}
	s, ok := r.byTG[tgID]
	if !ok {
		s = model.Subscriber{TelegramID: tgID, CreatedAt: time.Now()}
	}
	acc := account
	s.LinkedAccount = &acc
	s.UpdatedAt = time.Now()
	r.byTG[tgID] = s
	return nil
}

func (r *MockSubscriberRepo) SetNotified(ctx context.Context, tx repository.Tx, tgID int64, on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrOnWrite != nil {
		return r.ErrOnWrite
	}
	s, ok := r.byTG[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	s.IsNotified = on
	r.byTG[tgID] = s
	return nil
}

func (r *MockSubscriberRepo) SetLanguage(ctx context.Context, tx repository.Tx, tgID int64, lang string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrOnWrite != nil {
		return r.ErrOnWrite
	}
	s, ok := r.byTG[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	s.Language = lang
	r.byTG[tgID] = s
	return nil
}

func (r *MockSubscriberRepo) ListNotifiedIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrOnList != nil {
		return nil, r.ErrOnList
	}
	var out []int64
	for id, s := range r.byTG {
		if s.IsNotified {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *MockSubscriberRepo) CountSubscribers(ctx context.Context, tx repository.Tx) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	notified := 0
	for _, s := range r.byTG {
		if s.IsNotified {
			notified++
		}
	}
	return len(r.byTG), notified, nil
}

// Seed stores a subscriber as-is, bypassing use-case rules.
func (r *MockSubscriberRepo) Seed(s model.Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTG[s.TelegramID] = s
}

func (r *MockSubscriberRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[int64]model.Subscriber, len(r.byTG))
	for k, v := range r.byTG {
		saved[k] = v
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byTG = saved
	}
}

// ---- In-memory UnfollowerRepository ----

type MockUnfollowerRepo struct {
	mu    sync.Mutex
	byAcc map[model.AccountID][]model.AccountID

	ErrOnList   error
	ErrOnDelete error
	ErrOnInsert error

	Writes int
}

var _ repository.UnfollowerRepository = (*MockUnfollowerRepo)(nil)

func NewMockUnfollowerRepo() *MockUnfollowerRepo {
	return &MockUnfollowerRepo{byAcc: map[model.AccountID][]model.AccountID{}}
}

func (r *MockUnfollowerRepo) ListByAccount(ctx context.Context, tx repository.Tx, account model.AccountID) ([]model.AccountID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ErrOnList != nil {
		return nil, r.ErrOnList
	}
	return append([]model.AccountID(nil), r.byAcc[account]...), nil
}

func (r *MockUnfollowerRepo) DeleteByAccount(ctx context.Context, tx repository.Tx, account model.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Writes++
	if r.ErrOnDelete != nil {
		return r.ErrOnDelete
	}
	delete(r.byAcc, account)
	return nil
}

func (r *MockUnfollowerRepo) InsertMany(ctx context.Context, tx repository.Tx, account model.AccountID, ids []model.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Writes++
	if r.ErrOnInsert != nil {
		return r.ErrOnInsert
	}
	r.byAcc[account] = append(r.byAcc[account], ids...)
	return nil
}

// Seed sets the stored baseline of an account.
func (r *MockUnfollowerRepo) Seed(account model.AccountID, ids ...model.AccountID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byAcc[account] = append([]model.AccountID(nil), ids...)
}

func (r *MockUnfollowerRepo) Known(account model.AccountID) model.IDSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return model.NewIDSet(r.byAcc[account]...)
}

func (r *MockUnfollowerRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[model.AccountID][]model.AccountID, len(r.byAcc))
	for k, v := range r.byAcc {
		saved[k] = append([]model.AccountID(nil), v...)
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byAcc = saved
	}
}

// ---- TransactionManager ----

type snapshotter interface {
	snapshot() func()
}

// MockTxManager runs fn directly. Registered participants are snapshotted
// before fn and restored when fn fails, emulating a rollback.
type MockTxManager struct {
	WithTxFunc   func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
	Participants []snapshotter
}

func NewMockTxManager(participants ...snapshotter) *MockTxManager {
	return &MockTxManager{Participants: participants}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	restores := make([]func(), 0, len(m.Participants))
	for _, p := range m.Participants {
		restores = append(restores, p.snapshot())
	}
	hctx, hooks := repository.WithCommitHooks(ctx)
	if err := fn(hctx, repository.NoTX); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	hooks.Run(ctx)
	return nil
}

// =============================
// Clock and localization
// =============================

// FakeClock advances virtual time on Sleep and on explicit Advance.
type FakeClock struct {
	mu    sync.Mutex
	now   time.Time
	Slept []time.Duration
}

var _ usecase.Clock = (*FakeClock)(nil)

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Slept = append(c.Slept, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testMessages = map[string]string{
	usecase.KeyReportNewTitle:  "New unfollowers: %d",
	usecase.KeyReportAllTitle:  "All unfollowers: %d",
	usecase.KeyReportTruncated: "Showing only the first %d",
	usecase.KeyShowAllButton:   "Show old unfollowers",
}

func testTranslate(key string, args ...any) string {
	msg, ok := testMessages[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

type staticLocalizer struct{}

func (staticLocalizer) For(ctx context.Context, subscriberID int64) model.TranslateFn {
	return testTranslate
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Wiring
// =============================

type testEnv struct {
	subs      *MockSubscriberRepo
	unf       *MockUnfollowerRepo
	client    *MockSocialClient
	bot       *MockTelegramBot
	clock     *FakeClock
	store     usecase.UnfollowerStore
	inspector usecase.Inspector
	tracker   usecase.Tracker
}

func newTestEnv() *testEnv {
	logger := newTestLogger()
	e := &testEnv{
		subs:   NewMockSubscriberRepo(),
		unf:    NewMockUnfollowerRepo(),
		client: NewMockSocialClient(),
		bot:    &MockTelegramBot{},
		clock:  NewFakeClock(),
	}
	e.store = usecase.NewUnfollowerStore(e.subs, e.unf, NewMockTxManager(e.subs, e.unf), logger)
	e.inspector = usecase.NewInspector(e.client, e.clock, time.Second, logger)
	e.tracker = usecase.NewTracker(e.inspector, e.store, logger)
	return e
}

func (e *testEnv) notifier(cfg usecase.NotificationConfig) usecase.NotificationUseCase {
	return usecase.NewNotificationUseCase(e.store, e.tracker, e.bot, staticLocalizer{}, e.clock, cfg, newTestLogger())
}

func (e *testEnv) accounts() usecase.AccountUseCase {
	return usecase.NewAccountUseCase(e.inspector, e.store, e.tracker, newTestLogger())
}

// subscribe seeds a linked subscriber with notifications on.
func (e *testEnv) subscribe(tgID int64, account model.AccountID) {
	acc := account
	e.subs.Seed(model.Subscriber{TelegramID: tgID, LinkedAccount: &acc, IsNotified: true})
}
