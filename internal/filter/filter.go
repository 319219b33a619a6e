// Package filter runs freelinking with the current filter settings. The
// enabled handler set is rebuilt whenever settings are applied and swapped in
// atomically, so requests in flight keep the set they started with.
package filter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dgallion1/freelink/internal/config"
	"github.com/dgallion1/freelink/internal/document"
	"github.com/dgallion1/freelink/internal/freelink"
	"github.com/dgallion1/freelink/internal/metrics"
	"github.com/dgallion1/freelink/internal/plugins"
	"golang.org/x/text/language"
)

// Options configure a Filter.
type Options struct {
	// Language is used when a request carries no usable langcode.
	Language language.Tag
	// Concurrency bounds handler builds per filter run.
	Concurrency int
	Metrics     *metrics.Recorder
	Log         *slog.Logger
}

// Snapshot is one applied settings revision and its enabled set.
type Snapshot struct {
	Settings config.FilterSettings
	Set      freelink.EnabledSet
	Applied  time.Time
}

// Filter is safe for concurrent use.
type Filter struct {
	catalog *plugins.Catalog
	deps    plugins.Deps
	opts    Options
	log     *slog.Logger

	current atomic.Pointer[Snapshot]
}

// New builds a Filter and applies the initial settings.
func New(catalog *plugins.Catalog, deps plugins.Deps, settings config.FilterSettings, opts Options) (*Filter, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Log == nil {
		deps.Log = log
	}
	f := &Filter{catalog: catalog, deps: deps, opts: opts, log: log}
	if err := f.Apply(settings); err != nil {
		return nil, err
	}
	return f, nil
}

// Apply validates settings, builds their enabled set and makes it current.
// On error the previous revision stays in effect.
func (f *Filter) Apply(settings config.FilterSettings) error {
	snap, err := f.build(settings)
	f.opts.Metrics.IncReload(err == nil)
	if err != nil {
		return err
	}
	f.current.Store(snap)
	f.log.Info("filter settings applied", "default", settings.Default, "handlers", snap.Set.IDs())
	return nil
}

func (f *Filter) build(settings config.FilterSettings) (*Snapshot, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	deps := f.deps
	deps.ExternalRequests = settings.ExternalHTTPRequest
	set, err := f.catalog.Build(settings.PluginConfigs(), deps)
	if err != nil {
		return nil, fmt.Errorf("build handlers: %w", err)
	}
	return &Snapshot{Settings: settings, Set: set, Applied: time.Now()}, nil
}

// Snapshot returns the current settings revision.
func (f *Filter) Snapshot() *Snapshot {
	return f.current.Load()
}

// OccurrenceInfo describes one rendered occurrence.
type OccurrenceInfo struct {
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Indicator string `json:"indicator"`
	Handler   string `json:"handler,omitempty"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// Result is the output of one filter run.
type Result struct {
	Text        string           `json:"text"`
	Occurrences []OccurrenceInfo `json:"occurrences"`
	Errors      []string         `json:"errors"`
}

// Text filters text for a language. Source labels the run in metrics.
// Text around occurrences is copied as is.
func (f *Filter) Text(ctx context.Context, text, langcode, source string) Result {
	return f.run(ctx, text, langcode, source, false)
}

// HTML filters text decoded from an HTML document. Text around occurrences
// is escaped, so the result is safe to splice back into the document.
func (f *Filter) HTML(ctx context.Context, text, langcode, source string) Result {
	return f.run(ctx, text, langcode, source, true)
}

func (f *Filter) run(ctx context.Context, text, langcode, source string, escape bool) Result {
	start := time.Now()
	snap := f.current.Load()
	opts := snap.Settings.Options(f.language(langcode))
	opts.EscapeText = escape

	plan := freelink.NewPlan(text, snap.Set, opts)
	res := Result{
		Text:        plan.Render(ctx, f.opts.Concurrency),
		Occurrences: []OccurrenceInfo{},
		Errors:      []string{},
	}
	for _, o := range plan.Occurrences() {
		info := OccurrenceInfo{
			Start:     o.Span.Start,
			End:       o.Span.End,
			Indicator: o.Indicator,
			Handler:   o.HandlerID(),
			Outcome:   string(o.Outcome),
		}
		if o.Err != nil {
			info.Error = o.Err.Error()
			res.Errors = append(res.Errors, info.Error)
		}
		res.Occurrences = append(res.Occurrences, info)
		f.opts.Metrics.IncOccurrence(info.Handler, info.Outcome)
	}
	f.opts.Metrics.ObserveFilter(source, time.Since(start))

	if len(res.Errors) > 0 {
		f.log.Debug("filter run had errors", "source", source, "errors", len(res.Errors))
	}
	return res
}

// DocumentResult is a rendered document with a summary of its occurrences.
type DocumentResult struct {
	Title       string   `json:"title"`
	HTML        string   `json:"html"`
	Occurrences int      `json:"occurrences"`
	Errors      []string `json:"errors"`
}

// Document converts a file to HTML and freelinks its text.
func (f *Filter) Document(ctx context.Context, r io.Reader, filename, langcode string) (*DocumentResult, error) {
	res := &DocumentResult{Errors: []string{}}
	doc, err := document.Render(ctx, r, filename, func(ctx context.Context, text string) string {
		out := f.HTML(ctx, text, langcode, "document")
		res.Occurrences += len(out.Occurrences)
		res.Errors = append(res.Errors, out.Errors...)
		return out.Text
	})
	if err != nil {
		return nil, err
	}
	res.Title, res.HTML = doc.Title, doc.HTML
	return res, nil
}

// Tips returns the usage tips for the current settings.
func (f *Filter) Tips(langcode string, long bool) string {
	snap := f.current.Load()
	return freelink.Tips(snap.Set, snap.Settings.Options(f.language(langcode)), long)
}

// HandlerInfo describes a catalog handler and its current state.
type HandlerInfo struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Indicator string            `json:"indicator"`
	Tip       string            `json:"tip"`
	Hidden    bool              `json:"hidden"`
	Enabled   bool              `json:"enabled"`
	Default   bool              `json:"default"`
	Settings  freelink.Settings `json:"settings,omitempty"`
}

// Handlers lists every catalog handler in catalog order.
func (f *Filter) Handlers() []HandlerInfo {
	snap := f.current.Load()
	var out []HandlerInfo
	for _, h := range f.catalog.Handlers(f.deps) {
		info := HandlerInfo{
			ID:        h.ID(),
			Title:     h.Title(),
			Indicator: h.Indicator().String(),
			Tip:       h.Tip(),
			Hidden:    h.Hidden(),
			Default:   h.ID() == snap.Settings.Default,
			Settings:  h.DefaultSettings(),
		}
		if e, ok := snap.Set.Lookup(h.ID()); ok {
			info.Enabled = true
			info.Settings = e.Settings
		}
		out = append(out, info)
	}
	return out
}

func (f *Filter) language(code string) language.Tag {
	return config.ParseLanguage(code, f.opts.Language)
}
