package plugins

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/dgallion1/freelink/internal/freelink"
)

const drupalOrgURL = "https://drupal.org"

type drupalOrg struct {
	base
	deps Deps
}

func newDrupalOrg(d Deps) freelink.Handler {
	return drupalOrg{
		base: base{
			id:      "drupalorg",
			title:   "Drupal.org",
			tip:     "Link to a drupal.org node by number or a project by short name.",
			pattern: freelink.MustPattern(`^(drupalorg|drupalproject|dorg|dproject|do|dp)$`),
		},
		deps: d,
	}
}

func (drupalOrg) DefaultSettings() freelink.Settings {
	return freelink.Settings{"scrape": false, "node": true, "project": true}
}

func isProjectIndicator(indicator string) bool {
	switch strings.ToLower(indicator) {
	case "drupalproject", "dproject", "dp":
		return true
	}
	return false
}

func (h drupalOrg) Build(ctx context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	dest := strings.TrimSpace(t.DestValue())

	var href string
	if isProjectIndicator(t.Indicator) {
		if !req.Settings.Bool("project", true) {
			return nil, freelink.Errorf("Drupal.org project links are disabled")
		}
		if dest == "" {
			return nil, freelink.Errorf("Missing Drupal.org project name")
		}
		href = drupalOrgURL + "/project/" + url.PathEscape(dest)
	} else {
		if !req.Settings.Bool("node", true) {
			return nil, freelink.Errorf("Drupal.org node links are disabled")
		}
		n, err := strconv.Atoi(dest)
		if err != nil || n <= 0 {
			return nil, freelink.Errorf("Invalid Drupal.org node ID %s", dest)
		}
		href = drupalOrgURL + "/node/" + strconv.Itoa(n)
	}

	text := ""
	if t.Text == nil || *t.Text == "" {
		text = scrapeTitle(ctx, h.deps, req.Settings.Bool("scrape", false), href)
	}
	if text == "" {
		text = t.TextOr(dest)
	}
	title := t.TooltipValue()
	if title == "" {
		title = "View on drupal.org"
	}
	return &freelink.Link{URL: href, Text: text, Title: title, External: true}, nil
}
