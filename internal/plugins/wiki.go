package plugins

import (
	"context"
	"net/url"
	"strings"

	"github.com/dgallion1/freelink/internal/freelink"
)

// wikiSites maps indicators to Wikimedia project domains.
var wikiSites = map[string]string{
	"wikipedia":  "wikipedia",
	"wp":         "wikipedia",
	"wikiquote":  "wikiquote",
	"wq":         "wikiquote",
	"wiktionary": "wiktionary",
	"wt":         "wiktionary",
	"wikinews":   "wikinews",
	"wn":         "wikinews",
	"wikisource": "wikisource",
	"ws":         "wikisource",
	"wikibooks":  "wikibooks",
	"wb":         "wikibooks",
}

type wiki struct{ base }

func newWiki(Deps) freelink.Handler {
	return wiki{base{
		id:      "wiki",
		title:   "Wiki",
		tip:     "Link to a Wikimedia project page, e.g. [[wp:Main Page]].",
		pattern: freelink.MustPattern(`^(wikipedia|wp|wikiquote|wq|wiktionary|wt|wikinews|wn|wikisource|ws|wikibooks|wb)$`),
	}}
}

// DefaultSettings names the project used when the indicator does not, as
// when wiki is the default handler.
func (wiki) DefaultSettings() freelink.Settings {
	return freelink.Settings{"site": "wikipedia"}
}

func (wiki) Build(_ context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	site, ok := wikiSites[strings.ToLower(t.Indicator)]
	if !ok {
		name := req.Settings.String("site", "wikipedia")
		if site, ok = wikiSites[strings.ToLower(name)]; !ok {
			return nil, freelink.Errorf("Unknown wiki %s", name)
		}
	}

	dest := strings.TrimSpace(t.DestValue())
	if dest == "" {
		return nil, freelink.Errorf("Missing wiki page")
	}
	page := url.PathEscape(strings.ReplaceAll(dest, " ", "_"))

	return &freelink.Link{
		URL:      "https://" + langCode(t) + "." + site + ".org/wiki/" + page,
		Text:     t.TextOr(dest),
		Title:    t.TooltipValue(),
		External: true,
	}, nil
}
