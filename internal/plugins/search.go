package plugins

import (
	"context"
	"net/url"
	"strings"

	"github.com/dgallion1/freelink/internal/freelink"
)

type search struct{ base }

func newSearch(Deps) freelink.Handler {
	return search{base{
		id:      "search",
		title:   "Search",
		tip:     "Link to a search of this site.",
		pattern: freelink.MustPattern(`^search$`),
	}}
}

func (search) Build(_ context.Context, req freelink.Request) (*freelink.Link, error) {
	dest := strings.TrimSpace(req.Target.DestValue())
	if dest == "" {
		return nil, freelink.Errorf("Missing search terms")
	}
	return searchLink(req.Target, dest), nil
}

type google struct{ base }

func newGoogle(Deps) freelink.Handler {
	return google{base{
		id:      "google",
		title:   "Google Search",
		tip:     "Link to a Google search.",
		pattern: freelink.MustPattern(`^(google|g)$`),
	}}
}

func (google) Build(_ context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	dest := strings.TrimSpace(t.DestValue())
	if dest == "" {
		return nil, freelink.Errorf("Missing search terms")
	}

	title := t.TooltipValue()
	if title == "" {
		title = "Search Google for " + dest
	}
	return &freelink.Link{
		URL:      "https://google.com/search?q=" + url.QueryEscape(dest) + "&hl=" + langCode(t),
		Text:     t.TextOr(dest),
		Title:    title,
		External: true,
	}, nil
}
