//go:build !integration

package i18n

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"locales/en.yaml": {Data: []byte("greeting: Hello\nwelcome_user: Hello %s\nonly_en: English only")},
		"locales/ru.yaml": {Data: []byte("greeting: Привет\nwelcome_user: Привет %s")},
	}
}

type stubSource struct {
	langs map[int64]string
	err   error
}

func (s stubSource) Language(ctx context.Context, tgID int64) (string, error) {
	return s.langs[tgID], s.err
}

func TestTranslator(t *testing.T) {
	translator, err := newTranslatorFromBytes("ru", []byte("greeting: Привет\nwelcome_user: Привет %s"))
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "Привет" {
			t.Errorf("wanted 'Привет', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted key back, got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Ali"); got != "Привет Ali" {
			t.Errorf("wanted 'Привет Ali', got '%s'", got)
		}
	})
}

func TestBundle(t *testing.T) {
	b, err := NewBundle(testFS(), "en")
	if err != nil {
		t.Fatalf("NewBundle failed: %v", err)
	}

	t.Run("lists languages sorted", func(t *testing.T) {
		langs := b.Languages()
		if len(langs) != 2 || langs[0] != "en" || langs[1] != "ru" {
			t.Errorf("unexpected languages %v", langs)
		}
	})

	t.Run("missing keys fall back to the default language", func(t *testing.T) {
		if got := b.Translator("ru").T("only_en"); got != "English only" {
			t.Errorf("expected fallback, got %q", got)
		}
	})

	t.Run("client codes are normalized", func(t *testing.T) {
		if got := b.Translator("ru-RU").Lang(); got != "ru" {
			t.Errorf("expected ru, got %s", got)
		}
		if got := b.Translator("de").Lang(); got != "en" {
			t.Errorf("expected default en, got %s", got)
		}
	})

	t.Run("unknown default language is rejected", func(t *testing.T) {
		if _, err := NewBundle(testFS(), "fa"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestLocalizer(t *testing.T) {
	b, _ := NewBundle(testFS(), "en")
	ctx := context.Background()

	t.Run("stored language wins over the client", func(t *testing.T) {
		l := NewLocalizer(b, stubSource{langs: map[int64]string{1: "ru"}})
		if got := l.ForClient(ctx, 1, "en")("greeting"); got != "Привет" {
			t.Errorf("expected Russian, got %q", got)
		}
	})

	t.Run("client language is used when nothing is stored", func(t *testing.T) {
		l := NewLocalizer(b, stubSource{})
		if got := l.ForClient(ctx, 2, "ru")("greeting"); got != "Привет" {
			t.Errorf("expected Russian, got %q", got)
		}
	})

	t.Run("store errors fall back to the default", func(t *testing.T) {
		l := NewLocalizer(b, stubSource{err: errors.New("db down")})
		if got := l.For(ctx, 3)("greeting"); got != "Hello" {
			t.Errorf("expected English, got %q", got)
		}
	})
}

func TestEmbeddedLocales(t *testing.T) {
	b, err := NewBundle(LocalesFS, "en")
	if err != nil {
		t.Fatalf("embedded locales failed to load: %v", err)
	}
	for _, key := range []string{"report_new_title", "report_truncated", "btn_show_all", "need_account"} {
		for _, lang := range b.Languages() {
			if got := b.Translator(lang).translations[key]; got == "" {
				t.Errorf("%s: missing key %s", lang, key)
			}
		}
	}
}
