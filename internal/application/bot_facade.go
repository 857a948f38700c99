package application

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/usecase"
)

// Request identifies who is talking to the bot.
type Request struct {
	TgID       int64
	ClientLang string // language reported by the Telegram client
}

// Reply is what the Telegram adapter sends back.
type Reply struct {
	Text    string
	Buttons [][]adapter.InlineButton
	// Commit advances the unfollower baseline. The adapter calls it only after
	// the reply was delivered; nil when there is nothing to commit.
	Commit func(ctx context.Context) error
	// Linked is set when the request linked an account.
	Linked bool
}

// BotFacade composes usecases into high-level bot commands.
// Methods always return a reply text; the error is for logging.
type BotFacade struct {
	Accounts  AccountUseCaseIface
	Localizer LocalizerIface
	ReportCap int
}

func NewBotFacade(accounts AccountUseCaseIface, localizer LocalizerIface, reportCap int) *BotFacade {
	return &BotFacade{Accounts: accounts, Localizer: localizer, ReportCap: reportCap}
}

func (b *BotFacade) t(ctx context.Context, req Request) model.TranslateFn {
	return b.Localizer.ForClient(ctx, req.TgID, req.ClientLang)
}

func (b *BotFacade) HandleStart(ctx context.Context, req Request) Reply {
	return Reply{Text: b.t(ctx, req)("start")}
}

func (b *BotFacade) HandleHelp(ctx context.Context, req Request) Reply {
	return Reply{Text: b.t(ctx, req)("help", strings.Join(b.Localizer.Languages(), ", "))}
}

// HandleText treats free text as an Instagram username or profile link and
// links it to the user.
func (b *BotFacade) HandleText(ctx context.Context, req Request, text string) (Reply, error) {
	t := b.t(ctx, req)
	handle, ok := ParseHandle(text)
	if !ok {
		return Reply{Text: t("link_invalid")}, nil
	}
	if _, err := b.Accounts.LinkAccount(ctx, req.TgID, handle); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Reply{Text: t("link_not_found", handle)}, nil
		}
		return b.errReply(t, err), err
	}
	return Reply{Text: t("link_ok", handle), Linked: true}, nil
}

func (b *BotFacade) HandleNotifications(ctx context.Context, req Request, on bool) (Reply, error) {
	t := b.t(ctx, req)
	ok, err := b.Accounts.SetNotifications(ctx, req.TgID, on)
	if err != nil {
		return b.errReply(t, err), err
	}
	switch {
	case !ok:
		return Reply{Text: t("need_account")}, nil
	case on:
		return Reply{Text: t("notify_on")}, nil
	default:
		return Reply{Text: t("notify_off")}, nil
	}
}

// HandleUnfollowers reports accounts that stopped following back since the
// last recorded check, with a button to list all of them.
func (b *BotFacade) HandleUnfollowers(ctx context.Context, req Request) (Reply, error) {
	t := b.t(ctx, req)
	d, err := b.Accounts.CheckNew(ctx, req.TgID)
	if err != nil {
		return b.errReply(t, err), err
	}
	return Reply{
		Text:    usecase.RenderReport(usecase.KeyReportNewTitle, d.New, d.Profiles, b.ReportCap, t),
		Buttons: usecase.ShowAllButtons(t),
		Commit:  b.commit(d),
	}, nil
}

// HandleShowAll lists every current unfollower.
func (b *BotFacade) HandleShowAll(ctx context.Context, req Request) (Reply, error) {
	t := b.t(ctx, req)
	d, err := b.Accounts.CheckAll(ctx, req.TgID)
	if err != nil {
		return b.errReply(t, err), err
	}
	return Reply{
		Text:   usecase.RenderReport(usecase.KeyReportAllTitle, d.Current, d.Profiles, b.ReportCap, t),
		Commit: b.commit(d),
	}, nil
}

// HandleLanguage switches the stored language; the reply uses the new one.
func (b *BotFacade) HandleLanguage(ctx context.Context, req Request, arg string) (Reply, error) {
	t := b.t(ctx, req)
	langs := b.Localizer.Languages()
	lang := strings.ToLower(strings.TrimSpace(arg))
	if !contains(langs, lang) {
		return Reply{Text: t("lang_usage", strings.Join(langs, ", "))}, nil
	}
	ok, err := b.Accounts.SetLanguage(ctx, req.TgID, lang)
	if err != nil {
		return b.errReply(t, err), err
	}
	if !ok {
		return Reply{Text: t("need_account")}, nil
	}
	return Reply{Text: b.Localizer.ForClient(ctx, req.TgID, lang)("lang_set")}, nil
}

func (b *BotFacade) HandleUnknown(ctx context.Context, req Request) Reply {
	return Reply{Text: b.t(ctx, req)("unknown_command")}
}

func (b *BotFacade) commit(d *usecase.Detection) func(ctx context.Context) error {
	return func(ctx context.Context) error { return b.Accounts.Acknowledge(ctx, d) }
}

func (b *BotFacade) errReply(t model.TranslateFn, err error) Reply {
	switch {
	case errors.Is(err, domain.ErrNoLinkedAccount), errors.Is(err, domain.ErrNotFound):
		return Reply{Text: t("need_account")}
	case errors.Is(err, domain.ErrInvalidArgument):
		return Reply{Text: t("link_invalid")}
	case errors.Is(err, domain.ErrUpstream):
		return Reply{Text: t("upstream_error")}
	default:
		return Reply{Text: t("internal_error")}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ParseHandle extracts an Instagram username from a plain name, an @name or a
// profile link such as https://www.instagram.com/name/?hl=en.
func ParseHandle(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "instagram.com/") {
		if !strings.Contains(lower, "://") {
			text = "https://" + text
		}
		u, err := url.Parse(text)
		if err != nil {
			return "", false
		}
		host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		if host != "instagram.com" {
			return "", false
		}
		text, _, _ = strings.Cut(strings.Trim(u.Path, "/"), "/")
	}
	text = strings.TrimPrefix(text, "@")
	if !validUsername(text) {
		return "", false
	}
	return strings.ToLower(text), true
}

// validUsername applies Instagram's rules: 1-30 letters, digits, '.' or '_',
// no leading, trailing or doubled dots.
func validUsername(s string) bool {
	if len(s) == 0 || len(s) > 30 {
		return false
	}
	if s[0] == '.' || s[len(s)-1] == '.' || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
		default:
			return false
		}
	}
	return true
}
