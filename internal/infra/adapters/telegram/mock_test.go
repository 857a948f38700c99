//go:build !integration

package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"instagram-unfollower-bot/internal/application"
	"instagram-unfollower-bot/internal/config"
	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/infra/worker"
	"instagram-unfollower-bot/internal/usecase"
)

// fakeBot records everything the adapter sends.
type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	failAt   map[int]bool // 1-based Send call numbers that fail
	calls    int

	updates  chan tgbotapi.Update // served by GetUpdatesChan when set
	gate     chan struct{}        // when set, Send blocks until StopReceivingUpdates
	stopOnce sync.Once
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt[f.calls] {
		return tgbotapi.Message{}, errors.New("telegram: bad gateway")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: 100 + f.calls}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	if f.updates != nil {
		return f.updates
	}
	return make(chan tgbotapi.Update)
}

func (f *fakeBot) StopReceivingUpdates() {
	f.stopOnce.Do(func() {
		if f.gate != nil {
			close(f.gate)
		}
	})
}

func (f *fakeBot) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBot) edits() []tgbotapi.EditMessageTextConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

type mockAccounts struct {
	mu           sync.Mutex
	detection    *usecase.Detection
	checkErr     error
	linked       string
	acknowledged int
}

func (m *mockAccounts) LinkAccount(ctx context.Context, tgID int64, handle string) (model.AccountID, error) {
	m.linked = handle
	return 1, nil
}

func (m *mockAccounts) SetNotifications(ctx context.Context, tgID int64, on bool) (bool, error) {
	return true, nil
}

func (m *mockAccounts) CheckNew(ctx context.Context, tgID int64) (*usecase.Detection, error) {
	return m.detection, m.checkErr
}

func (m *mockAccounts) CheckAll(ctx context.Context, tgID int64) (*usecase.Detection, error) {
	return m.detection, m.checkErr
}

func (m *mockAccounts) Acknowledge(ctx context.Context, d *usecase.Detection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acknowledged++
	return nil
}

func (m *mockAccounts) SetLanguage(ctx context.Context, tgID int64, lang string) (bool, error) {
	return true, nil
}

func (m *mockAccounts) acks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acknowledged
}

type keyLocalizer struct{}

func (keyLocalizer) ForClient(ctx context.Context, tgID int64, clientLang string) model.TranslateFn {
	return func(key string, args ...any) string {
		if len(args) == 0 {
			return key
		}
		return fmt.Sprintf("%s%v", key, args)
	}
}

func (keyLocalizer) Languages() []string { return []string{"en"} }

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }

type testBot struct {
	adapter  *RealTelegramBotAdapter
	bot      *fakeBot
	accounts *mockAccounts
}

func newTestBot(t *testing.T) *testBot {
	t.Helper()
	logger := zerolog.New(io.Discard)
	accounts := &mockAccounts{}
	facade := application.NewBotFacade(accounts, keyLocalizer{}, 100)
	pool := worker.NewPool(1, &logger)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() { cancel(); pool.Stop() })

	bot := &fakeBot{failAt: map[int]bool{}}
	a, err := newAdapter(bot, &config.BotConfig{Workers: 1}, config.RateLimitConfig{Commands: 10, Window: time.Minute}, facade, nil, pool, &logger)
	if err != nil {
		t.Fatalf("newAdapter failed: %v", err)
	}
	return &testBot{adapter: a, bot: bot, accounts: accounts}
}

func commandUpdate(tgID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: tgID, LanguageCode: "en"},
		Chat:      &tgbotapi.Chat{ID: tgID},
		Text:      text,
	}
	if len(text) > 0 && text[0] == '/' {
		n := len(text)
		for i, r := range text {
			if r == ' ' {
				n = i
				break
			}
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: n}}
	}
	return tgbotapi.Update{Message: msg}
}

func callbackUpdate(tgID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: tgID, LanguageCode: "en"},
		Message: &tgbotapi.Message{MessageID: 55, Chat: &tgbotapi.Chat{ID: tgID}},
		Data:    data,
	}}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func errorsIsDelivery(err error) bool { return errors.Is(err, domain.ErrDelivery) }
