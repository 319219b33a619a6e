package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/freelink/internal/api"
	"github.com/dgallion1/freelink/internal/config"
	"github.com/dgallion1/freelink/internal/content"
	"github.com/dgallion1/freelink/internal/fetch"
	"github.com/dgallion1/freelink/internal/filter"
	"github.com/dgallion1/freelink/internal/logging"
	"github.com/dgallion1/freelink/internal/metrics"
	"github.com/dgallion1/freelink/internal/pathstore"
	"github.com/dgallion1/freelink/internal/pipeline"
	"github.com/dgallion1/freelink/internal/plugins"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/text/language"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.Init(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, os.Stdout)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	var ps *pathstore.Client
	var kv content.KV
	var published api.Published
	var publisher pipeline.Publisher
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		kv, published, publisher = ps, ps, ps
	}

	store, err := content.Open(ctx, cfg.ContentPath, kv, content.DefaultPrefix)
	if err != nil {
		log.Error("failed to load content", "error", err)
		os.Exit(1)
	}

	titles := fetch.New(fetch.Config{
		Timeout:    cfg.ScrapeTimeout,
		CacheTTL:   cfg.ScrapeCacheTTL,
		MaxRetries: fetch.MaxRetries,
	}, logging.New("fetch"))

	settings, err := config.LoadFilterSettings(cfg.SettingsPath)
	if err != nil {
		log.Error("failed to load filter settings", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(reg)

	f, err := filter.New(plugins.NewCatalog(), plugins.Deps{
		Content: store,
		Titles:  titles,
		Log:     logging.New("plugins"),
	}, settings, filter.Options{
		Language:    config.ParseLanguage(cfg.DefaultLangcode, language.English),
		Concurrency: cfg.MaxConcurrentBuild,
		Metrics:     rec,
		Log:         logging.New("filter"),
	})
	if err != nil {
		log.Error("invalid filter settings", "error", err)
		os.Exit(1)
	}

	// Hot reload settings when they come from a file.
	var watcher *config.Watcher
	if cfg.SettingsPath != "" {
		watcher, err = config.NewWatcher(cfg.SettingsPath, f.Apply, logging.New("settings"))
		if err == nil {
			err = watcher.Start(ctx)
		}
		if err != nil {
			log.Warn("settings hot reload disabled", "error", err)
			watcher = nil
		}
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, f, publisher, rec, logging.New("pipeline"))
	orch.Start(ctx)

	// Evict expired scraped titles. SCRAPE_CACHE_TTL=0 turns the cache off.
	if !titles.StartCleanup(ctx, cfg.ScrapeCacheTTL) {
		log.Info("scraped title cache disabled")
	}

	// Initialize HTTP server.
	srv := api.NewServer(f, orch, published, rec, logging.New("api"), cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		if watcher != nil {
			watcher.Stop()
		}
		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		cancel()
		titles.Close()
		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting freelink",
		"port", cfg.Port,
		"handlers", f.Snapshot().Set.IDs(),
		"pathstore", cfg.PathstoreURL != "",
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
