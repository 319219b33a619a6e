package main

import (
	"context"
	"fmt"

	"github.com/dgallion1/freelink/internal/config"
	"github.com/dgallion1/freelink/internal/content"
	"github.com/dgallion1/freelink/internal/fetch"
	"github.com/dgallion1/freelink/internal/filter"
	"github.com/dgallion1/freelink/internal/logging"
	"github.com/dgallion1/freelink/internal/pathstore"
	"github.com/dgallion1/freelink/internal/plugins"
	"golang.org/x/text/language"
)

// newFilter builds a filter from flags, falling back to the environment.
func (g *globalFlags) newFilter(ctx context.Context) (*filter.Filter, func(), error) {
	cfg := config.Load()
	settingsPath := firstNonEmpty(g.settings, cfg.SettingsPath)
	contentPath := firstNonEmpty(g.content, cfg.ContentPath)

	settings, err := config.LoadFilterSettings(settingsPath)
	if err != nil {
		return nil, nil, err
	}

	var kv content.KV
	var ps *pathstore.Client
	if contentPath == "" && cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		kv = ps
	}
	store, err := content.Open(ctx, contentPath, kv, content.DefaultPrefix)
	if err != nil {
		return nil, nil, fmt.Errorf("load content: %w", err)
	}

	titles := fetch.New(fetch.Config{
		Timeout:    cfg.ScrapeTimeout,
		CacheTTL:   cfg.ScrapeCacheTTL,
		MaxRetries: fetch.MaxRetries,
	}, logging.New("fetch"))

	lang := config.ParseLanguage(firstNonEmpty(g.lang, cfg.DefaultLangcode), language.English)
	f, err := filter.New(plugins.NewCatalog(), plugins.Deps{
		Content: store,
		Titles:  titles,
		Log:     logging.New("plugins"),
	}, settings, filter.Options{
		Language:    lang,
		Concurrency: cfg.MaxConcurrentBuild,
		Log:         logging.New("filter"),
	})
	if err != nil {
		titles.Close()
		return nil, nil, err
	}

	closeFn := func() {
		titles.Close()
		if ps != nil {
			ps.Close()
		}
	}
	return f, closeFn, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
