package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/freelink/internal/freelink"
	"github.com/dgallion1/freelink/internal/logging"
	"golang.org/x/text/language"
)

func TestLoad_DefaultsAndClamping(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("MAX_TEXT_BYTES", "nope")
	t.Setenv("JOB_TTL", "90s")

	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("expected worker count clamped to 4, got %d", cfg.WorkerCount)
	}
	if cfg.MaxTextBytes != 1048576 {
		t.Errorf("expected default text limit, got %d", cfg.MaxTextBytes)
	}
	if cfg.JobTTL != 90*time.Second {
		t.Errorf("expected job ttl 90s, got %v", cfg.JobTTL)
	}
	if cfg.Port != "8091" {
		t.Errorf("expected default port, got %q", cfg.Port)
	}
}

func TestValidate(t *testing.T) {
	ok := Config{FreelinkAPIKey: "k", DefaultLangcode: "en"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing api key", Config{DefaultLangcode: "en"}},
		{"pathstore without key", Config{FreelinkAPIKey: "k", DefaultLangcode: "en", PathstoreURL: "http://ps"}},
		{"two content sources", Config{FreelinkAPIKey: "k", DefaultLangcode: "en", PathstoreURL: "http://ps", PathstoreAPIKey: "p", ContentPath: "c.yaml"}},
		{"bad language", Config{FreelinkAPIKey: "k", DefaultLangcode: "??"}},
	}
	for _, tt := range tests {
		if err := tt.cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

const settingsYAML = `
default: nodetitle
global_options:
  ignore_upi: true
  anchored_indicators: true
external_http_request: true
plugins:
  - plugin: nodetitle
    enabled: true
    settings:
      failover: error
  - plugin: external
    enabled: false
`

func TestParseFilterSettings(t *testing.T) {
	s, err := ParseFilterSettings([]byte(settingsYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.ExternalHTTPRequest || len(s.Plugins) != 2 {
		t.Fatalf("unexpected settings: %+v", s)
	}

	opts := s.Options(language.French)
	want := freelink.Options{DefaultHandler: "nodetitle", IgnoreUnresolved: true, MatchMode: freelink.MatchWhole, Language: language.French}
	if opts != want {
		t.Errorf("expected options %+v, got %+v", want, opts)
	}

	cfgs := s.PluginConfigs()
	if cfgs[0].ID != "nodetitle" || cfgs[0].Settings.String("failover", "") != "error" {
		t.Errorf("unexpected plugin config: %+v", cfgs[0])
	}
	if cfgs[1].Enabled {
		t.Error("expected external disabled")
	}
}

func TestParseFilterSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "default: nid\nbogus: 1\nplugins: [{plugin: nid, enabled: true}]", "bogus"},
		{"missing default", "plugins: [{plugin: nid, enabled: true}]", "Default"},
		{"missing plugin id", "default: NONE\nplugins: [{enabled: true}]", "Plugin"},
		{"default not configured", "default: nid\nplugins: [{plugin: file, enabled: true}]", "not configured"},
		{"default disabled", "default: nid\nplugins: [{plugin: nid, enabled: false}]", "disabled"},
	}
	for _, tt := range tests {
		_, err := ParseFilterSettings([]byte(tt.yaml))
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error mentioning %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestLoadFilterSettings_DefaultsWithoutPath(t *testing.T) {
	s, err := LoadFilterSettings("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Default != "nodetitle" || len(s.Plugins) != 10 {
		t.Errorf("expected all standard handlers enabled, got %+v", s)
	}
	if _, err := LoadFilterSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseLanguage(t *testing.T) {
	if got := ParseLanguage("de", language.English); got != language.German {
		t.Errorf("expected German, got %v", got)
	}
	if got := ParseLanguage("", language.English); got != language.English {
		t.Errorf("expected fallback, got %v", got)
	}
	if got := ParseLanguage("!!", language.English); got != language.English {
		t.Errorf("expected fallback for malformed code, got %v", got)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte(settingsYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	var applied atomic.Value
	w, err := NewWatcher(path, func(s FilterSettings) error {
		applied.Store(s)
		return nil
	}, logging.Discard())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.debounce = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	// An invalid revision is skipped.
	if err := os.WriteFile(path, []byte("default: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if applied.Load() != nil {
		t.Fatal("expected invalid settings to be skipped")
	}

	if err := os.WriteFile(path, []byte("default: NONE\nplugins: [{plugin: nid, enabled: true}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s, ok := applied.Load().(FilterSettings); ok {
			if s.Default != freelink.NoDefault {
				t.Errorf("expected reloaded default NONE, got %q", s.Default)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected settings to be reloaded")
}
