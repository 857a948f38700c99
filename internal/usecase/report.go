package usecase

import (
	"fmt"
	"html"
	"strings"

	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/adapter"

	"github.com/samber/lo"
)

// Translation keys used by report rendering.
const (
	KeyReportNewTitle  = "report_new_title"
	KeyReportAllTitle  = "report_all_title"
	KeyReportTruncated = "report_truncated"
	KeyShowAllButton   = "btn_show_all"
)

// ShowAllCallback is the opaque token carried by the "show all" reply action.
const ShowAllCallback = "unf:all"

const profileURL = "https://instagram.com/"

// FormatReport renders at most limit accounts of ids as HTML links, one per
// line, in ascending id order. A truncation notice is prepended when ids
// exceed the limit. Ids without a profile are skipped.
func FormatReport(ids model.IDSet, profiles []model.FollowingProfile, limit int, t model.TranslateFn) string {
	sorted := ids.Sorted()
	truncated := limit >= 0 && len(sorted) > limit
	if truncated {
		sorted = sorted[:limit]
	}

	names := lo.Associate(profiles, func(p model.FollowingProfile) (model.AccountID, string) {
		return p.ID, p.Username
	})

	lines := make([]string, 0, len(sorted)+1)
	if truncated {
		lines = append(lines, t(KeyReportTruncated, limit))
	}
	for _, id := range sorted {
		name, ok := names[id]
		if !ok || name == "" {
			continue
		}
		lines = append(lines, profileLink(name))
	}
	return strings.Join(lines, "\n")
}

// RenderReport adds a counted title line above FormatReport's output.
func RenderReport(titleKey string, ids model.IDSet, profiles []model.FollowingProfile, limit int, t model.TranslateFn) string {
	title := t(titleKey, ids.Len())
	body := FormatReport(ids, profiles, limit, t)
	if body == "" {
		return title
	}
	return title + "\n\n" + body
}

// ShowAllButtons is the inline keyboard attached to a new-unfollowers report.
func ShowAllButtons(t model.TranslateFn) [][]adapter.InlineButton {
	return [][]adapter.InlineButton{{{Text: t(KeyShowAllButton), Data: ShowAllCallback}}}
}

func profileLink(name string) string {
	escaped := html.EscapeString(name)
	return fmt.Sprintf(`<a href="%s%s">%s</a>`, profileURL, escaped, escaped)
}
