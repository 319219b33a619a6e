// Package fetch retrieves remote pages and extracts their titles for link
// text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const maxBodyBytes = 1 << 20

// ErrNoTitle is returned when a page has no usable title.
var ErrNoTitle = errors.New("page has no title")

// Config tunes a Fetcher.
type Config struct {
	Timeout    time.Duration
	CacheTTL   time.Duration
	MaxRetries int
	UserAgent  string
}

// Fetcher fetches page titles with retries and a TTL cache. It is safe for
// concurrent use.
type Fetcher struct {
	client     *http.Client
	log        *slog.Logger
	ttl        time.Duration
	maxRetries int
	userAgent  string

	// backoff is replaceable in tests.
	backoff func(attempt int) time.Duration

	mu    sync.Mutex
	cache map[string]cached
}

type cached struct {
	title   string
	expires time.Time
}

func New(cfg Config, log *slog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "freelink/1.0"
	}
	return &Fetcher{
		client:     &http.Client{Timeout: cfg.Timeout},
		log:        log,
		ttl:        cfg.CacheTTL,
		maxRetries: cfg.MaxRetries,
		userAgent:  cfg.UserAgent,
		backoff:    Backoff,
		cache:      make(map[string]cached),
	}
}

// Title returns the og:title of the page at url, or its <title> when there is
// none.
func (f *Fetcher) Title(ctx context.Context, url string) (string, error) {
	if title, ok := f.lookup(url); ok {
		return title, nil
	}

	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := f.backoff(attempt - 1)
			f.log.Debug("retrying title fetch", "url", url, "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		title, err := f.fetchTitle(ctx, url)
		if err == nil {
			f.store(url, title)
			return title, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
	}
	return "", lastErr
}

func (f *Fetcher) fetchTitle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode charset: %w", err)
	}
	return ExtractTitle(body)
}

// ExtractTitle reads an HTML document and returns its og:title, falling back
// to the <title> element.
func ExtractTitle(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := collapse(og); t != "" {
			return t, nil
		}
	}
	if t := collapse(doc.Find("title").First().Text()); t != "" {
		return t, nil
	}
	return "", ErrNoTitle
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (f *Fetcher) lookup(url string) (string, bool) {
	if f.ttl <= 0 {
		return "", false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cache[url]
	if !ok {
		return "", false
	}
	if time.Now().After(c.expires) {
		delete(f.cache, url)
		return "", false
	}
	return c.title, true
}

func (f *Fetcher) store(url, title string) {
	if f.ttl <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[url] = cached{title: title, expires: time.Now().Add(f.ttl)}
}

// Cleanup removes expired cache entries.
func (f *Fetcher) Cleanup() {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for url, c := range f.cache {
		if now.After(c.expires) {
			delete(f.cache, url)
		}
	}
}

// StartCleanup sweeps expired entries every interval until ctx is done. It
// reports false and starts nothing when caching is off or every is not
// positive.
func (f *Fetcher) StartCleanup(ctx context.Context, every time.Duration) bool {
	if f.ttl <= 0 || every <= 0 {
		return false
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				f.Cleanup()
			}
		}
	}()
	return true
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}
