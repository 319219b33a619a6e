// Package plugins provides the concrete freelink handlers and the catalog
// that turns filter settings into an enabled handler set.
package plugins

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/dgallion1/freelink/internal/content"
	"github.com/dgallion1/freelink/internal/freelink"
	"golang.org/x/text/language"
)

// TitleFetcher looks up the title of a remote page.
type TitleFetcher interface {
	Title(ctx context.Context, url string) (string, error)
}

// Deps are the services handlers are constructed with.
type Deps struct {
	Content content.Store
	Titles  TitleFetcher

	// ExternalRequests gates every outbound HTTP request made by handlers.
	ExternalRequests bool

	Log *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Content == nil {
		d.Content = content.NewMemory(nil)
	}
	if d.Log == nil {
		d.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

// base carries the descriptive half of a handler.
type base struct {
	id      string
	title   string
	tip     string
	pattern freelink.Pattern
}

func (b base) ID() string                         { return b.id }
func (b base) Title() string                      { return b.title }
func (b base) Tip() string                        { return b.tip }
func (b base) Indicator() freelink.Pattern        { return b.pattern }
func (b base) Hidden() bool                       { return false }
func (b base) DefaultSettings() freelink.Settings { return freelink.Settings{} }

// langCode picks the two-letter language for a target: a lang= segment
// first, then the filter language, then English.
func langCode(t *freelink.Target) string {
	if l := strings.TrimSpace(t.Named["lang"]); l != "" {
		if tag, err := language.Parse(l); err == nil {
			base, _ := tag.Base()
			return base.String()
		}
	}
	if t.Language != language.Und {
		base, _ := t.Language.Base()
		return base.String()
	}
	return "en"
}

// escapePath escapes each segment of a slash-separated path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}

// scrapeTitle fetches a remote title when scraping is allowed. Failures fall
// back to the empty string.
func scrapeTitle(ctx context.Context, deps Deps, enabled bool, target string) string {
	if !enabled || !deps.ExternalRequests || deps.Titles == nil {
		return ""
	}
	title, err := deps.Titles.Title(ctx, target)
	if err != nil {
		deps.Log.Debug("title scrape failed", "url", target, "error", err)
		return ""
	}
	return title
}
