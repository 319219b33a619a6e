package plugins

import (
	"context"
	"net/url"
	"strings"

	"github.com/dgallion1/freelink/internal/freelink"
)

type external struct {
	base
	deps Deps
}

func newExternal(d Deps) freelink.Handler {
	return external{
		base: base{
			id:      "external",
			title:   "External links",
			tip:     "Link to an external URL, e.g. [[http://example.com|Example]].",
			pattern: freelink.MustPattern(`^(http|https|ext|external)$`),
		},
		deps: d,
	}
}

func (external) DefaultSettings() freelink.Settings {
	return freelink.Settings{"scrape": false}
}

func (h external) Build(ctx context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	dest := strings.TrimSpace(t.DestValue())

	raw := dest
	switch strings.ToLower(t.Indicator) {
	case "http", "https":
		// The scanner split "http://host" at its first colon.
		raw = strings.ToLower(t.Indicator) + ":" + dest
	default:
		if !strings.Contains(dest, "://") {
			raw = "http://" + strings.TrimPrefix(dest, "//")
		}
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, freelink.Errorf("Invalid external URL %s", raw)
	}
	href := u.String()

	text := ""
	if t.Text == nil || *t.Text == "" {
		text = scrapeTitle(ctx, h.deps, req.Settings.Bool("scrape", false), href)
	}
	if text == "" {
		text = t.TextOr(href)
	}
	return &freelink.Link{URL: href, Text: text, Title: t.TooltipValue(), External: true}, nil
}
