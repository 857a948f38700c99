package i18n

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"instagram-unfollower-bot/internal/domain/model"
)

//go:embed locales
var LocalesFS embed.FS

// Translator renders messages of one language.
type Translator struct {
	lang         string
	translations map[string]string
	fallback     *Translator
}

func newTranslatorFromBytes(lang string, data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file for %s: %w", lang, err)
	}
	return &Translator{lang: lang, translations: translations}, nil
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", langCode+".yaml")
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(langCode, data)
}

func (t *Translator) Lang() string { return t.lang }

// T formats the message for key. Unknown keys fall back to the default
// language and finally to the key itself.
func (t *Translator) T(key string, args ...any) string {
	format, ok := t.translations[key]
	if !ok {
		if t.fallback != nil {
			return t.fallback.T(key, args...)
		}
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

// Bundle holds every available language.
type Bundle struct {
	byLang      map[string]*Translator
	defaultLang string
}

// NewBundle loads every locales/*.yaml file in fsys. defaultLang must be one of them.
func NewBundle(fsys fs.FS, defaultLang string) (*Bundle, error) {
	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	b := &Bundle{byLang: map[string]*Translator{}, defaultLang: defaultLang}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		lang := strings.TrimSuffix(name, ".yaml")
		tr, err := NewTranslator(fsys, lang)
		if err != nil {
			return nil, err
		}
		b.byLang[lang] = tr
	}

	def, ok := b.byLang[defaultLang]
	if !ok {
		return nil, fmt.Errorf("default language %q has no locale file", defaultLang)
	}
	for lang, tr := range b.byLang {
		if lang != defaultLang {
			tr.fallback = def
		}
	}
	return b, nil
}

// Has reports whether lang is available.
func (b *Bundle) Has(lang string) bool {
	_, ok := b.byLang[lang]
	return ok
}

// Translator returns lang's translator or the default one.
func (b *Bundle) Translator(lang string) *Translator {
	if tr, ok := b.byLang[normalize(lang)]; ok {
		return tr
	}
	return b.byLang[b.defaultLang]
}

// Languages lists available language codes, sorted.
func (b *Bundle) Languages() []string {
	out := make([]string, 0, len(b.byLang))
	for lang := range b.byLang {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// normalize turns client codes like "ru-RU" or "en_US" into "ru" / "en".
func normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

// LanguageSource returns the stored language of a subscriber, "" when unset.
type LanguageSource interface {
	Language(ctx context.Context, tgID int64) (string, error)
}

// Localizer picks a subscriber's language: stored choice first, then the
// Telegram client language, then the bundle default.
type Localizer struct {
	bundle *Bundle
	source LanguageSource
}

func NewLocalizer(bundle *Bundle, source LanguageSource) *Localizer {
	return &Localizer{bundle: bundle, source: source}
}

func (l *Localizer) Bundle() *Bundle { return l.bundle }

// Languages lists the selectable language codes.
func (l *Localizer) Languages() []string { return l.bundle.Languages() }

// For returns the translation function for a subscriber.
func (l *Localizer) For(ctx context.Context, tgID int64) model.TranslateFn {
	return l.ForClient(ctx, tgID, "")
}

// ForClient is For with the language reported by the Telegram client as a hint.
func (l *Localizer) ForClient(ctx context.Context, tgID int64, clientLang string) model.TranslateFn {
	lang := clientLang
	if l.source != nil {
		if stored, err := l.source.Language(ctx, tgID); err == nil && stored != "" {
			lang = stored
		}
	}
	return l.bundle.Translator(lang).T
}
