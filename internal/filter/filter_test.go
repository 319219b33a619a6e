package filter

import (
	"context"
	"strings"
	"testing"

	"github.com/dgallion1/freelink/internal/config"
	"github.com/dgallion1/freelink/internal/content"
	"github.com/dgallion1/freelink/internal/freelink"
	"github.com/dgallion1/freelink/internal/metrics"
	"github.com/dgallion1/freelink/internal/plugins"
	"github.com/google/go-cmp/cmp"
)

const siteYAML = `
nodes:
  - {id: 1, title: First page, type: page}
  - {id: 2, title: Second page, type: page}
`

func newFilter(t *testing.T, settings config.FilterSettings, rec *metrics.Recorder) *Filter {
	t.Helper()
	fx, err := content.ParseFixture([]byte(siteYAML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	f, err := New(plugins.NewCatalog(), plugins.Deps{Content: content.NewMemory(fx)}, settings, Options{
		Concurrency: 4,
		Metrics:     rec,
	})
	if err != nil {
		t.Fatalf("new filter: %v", err)
	}
	return f
}

func defaults() config.FilterSettings {
	return config.DefaultFilterSettings(plugins.NewCatalog().IDs())
}

func TestText_LinksAndErrors(t *testing.T) {
	f := newFilter(t, defaults(), nil)
	res := f.Text(context.Background(), "A [[nid:1]] B [[nid:9]] C [[zz:x]]", "en", "test")

	link := `<a href="/node/1" class="freelink freelink-nid freelink-internal">First page</a>`
	if !strings.HasPrefix(res.Text, "A "+link+" B ") {
		t.Errorf("unexpected text %q", res.Text)
	}
	if !strings.Contains(res.Text, "Freelinking: Node 9 not found") {
		t.Errorf("expected build error fragment, got %q", res.Text)
	}
	// Unknown indicators fall back to the default handler.
	if !strings.Contains(res.Text, `href="/search/node?keys=x"`) {
		t.Errorf("expected nodetitle search failover, got %q", res.Text)
	}

	want := []OccurrenceInfo{
		{Start: 2, End: 11, Indicator: "nid", Handler: "nid", Outcome: "link"},
		{Start: 14, End: 23, Indicator: "nid", Handler: "nid", Outcome: "build_error", Error: "nid: Node 9 not found"},
		{Start: 26, End: 34, Indicator: "zz", Handler: "nodetitle", Outcome: "link"},
	}
	if diff := cmp.Diff(want, res.Occurrences); diff != "" {
		t.Errorf("occurrences mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"nid: Node 9 not found"}, res.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestText_UnresolvedWithoutDefault(t *testing.T) {
	s := defaults()
	s.Default = freelink.NoDefault
	f := newFilter(t, s, nil)

	res := f.Text(context.Background(), "[[zz:x]]", "", "test")
	if res.Text != `<code class="freelink-error">Freelinking: Unknown plugin indicator zz</code>` {
		t.Errorf("unexpected text %q", res.Text)
	}
	if diff := cmp.Diff([]string{`unknown plugin indicator: "zz"`}, res.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	s.GlobalOptions.IgnoreUPI = true
	if err := f.Apply(s); err != nil {
		t.Fatalf("apply: %v", err)
	}
	res = f.Text(context.Background(), "a [[zz:x]] b", "", "test")
	if res.Text != "a  b" {
		t.Errorf("expected dropped occurrence, got %q", res.Text)
	}
	if res.Occurrences[0].Outcome != "dropped" || len(res.Errors) != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestText_NoMarkup(t *testing.T) {
	f := newFilter(t, defaults(), nil)
	res := f.Text(context.Background(), "plain text", "", "test")
	if res.Text != "plain text" {
		t.Errorf("expected unchanged text, got %q", res.Text)
	}
	if res.Occurrences == nil || res.Errors == nil {
		t.Error("expected empty, non-nil slices")
	}
}

func TestApply_InvalidKeepsPrevious(t *testing.T) {
	rec := metrics.NewRecorder(nil)
	f := newFilter(t, defaults(), rec)
	before := f.Snapshot()

	bad := defaults()
	bad.Default = "missing"
	if err := f.Apply(bad); err == nil {
		t.Fatal("expected error for unconfigured default")
	}
	if f.Snapshot() != before {
		t.Error("expected previous snapshot to stay current")
	}

	unknown := defaults()
	unknown.Plugins = append(unknown.Plugins, config.PluginSettings{Plugin: "nope", Enabled: true})
	if err := f.Apply(unknown); err == nil {
		t.Fatal("expected error for unknown handler")
	}
}

func TestApply_SwapsSet(t *testing.T) {
	f := newFilter(t, defaults(), nil)

	s := defaults()
	s.Default = freelink.NoDefault
	for i := range s.Plugins {
		s.Plugins[i].Enabled = s.Plugins[i].Plugin != "nid"
	}
	if err := f.Apply(s); err != nil {
		t.Fatalf("apply: %v", err)
	}

	res := f.Text(context.Background(), "[[nid:1]]", "", "test")
	if res.Occurrences[0].Outcome != "unresolved" {
		t.Errorf("expected unresolved after disabling nid, got %s", res.Occurrences[0].Outcome)
	}
	if _, ok := f.Snapshot().Set.Lookup("nid"); ok {
		t.Error("expected nid to be absent from the set")
	}
}

func TestText_WikiDefault(t *testing.T) {
	s := config.FilterSettings{
		Default: "wiki",
		Plugins: []config.PluginSettings{{Plugin: "wiki", Enabled: true}},
	}
	f := newFilter(t, s, nil)
	res := f.Text(context.Background(), "[[Main Page]] [[zzz:Main Page]]", "en", "test")
	if len(res.Errors) != 0 {
		t.Fatalf("expected no errors, got %q", res.Errors)
	}
	if strings.Count(res.Text, `href="https://en.wikipedia.org/wiki/Main_Page"`) != 2 {
		t.Errorf("expected two wikipedia links, got %q", res.Text)
	}
}

func TestText_Language(t *testing.T) {
	f := newFilter(t, defaults(), nil)
	res := f.Text(context.Background(), "[[wp:Go]]", "de", "test")
	if !strings.Contains(res.Text, "https://de.wikipedia.org/wiki/Go") {
		t.Errorf("expected german wikipedia link, got %q", res.Text)
	}
	res = f.Text(context.Background(), "[[wp:Go]]", "not a tag!", "test")
	if !strings.Contains(res.Text, "https://en.wikipedia.org/wiki/Go") {
		t.Errorf("expected fallback to english, got %q", res.Text)
	}
}

func TestDocument(t *testing.T) {
	f := newFilter(t, defaults(), nil)
	input := "# Notes\n\nSee [[nid:2]] and `[[nid:1]]`.\n"
	res, err := f.Document(context.Background(), strings.NewReader(input), "notes.md", "en")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if res.Title != "Notes" {
		t.Errorf("expected title %q, got %q", "Notes", res.Title)
	}
	if !strings.Contains(res.HTML, `href="/node/2"`) {
		t.Errorf("expected link to node 2, got %q", res.HTML)
	}
	if !strings.Contains(res.HTML, "<code>[[nid:1]]</code>") {
		t.Errorf("expected code span untouched, got %q", res.HTML)
	}
	if res.Occurrences != 1 {
		t.Errorf("expected 1 occurrence, got %d", res.Occurrences)
	}

	if _, err := f.Document(context.Background(), strings.NewReader(""), "x.exe", ""); err == nil {
		t.Error("expected error for unsupported file")
	}
}

func TestDocument_EscapesOnce(t *testing.T) {
	f := newFilter(t, defaults(), nil)
	for _, name := range []string{"a.txt", "a.md"} {
		res, err := f.Document(context.Background(), strings.NewReader("See [[wp:AT&T|Tom & Jerry]] & [[showtext:a<b]]\n"), name, "en")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		link := `<a href="https://en.wikipedia.org/wiki/AT&amp;T" class="freelink freelink-wiki freelink-external">Tom &amp; Jerry</a>`
		if !strings.Contains(res.HTML, "See "+link+" &amp; a&lt;b") {
			t.Errorf("%s: expected single escaping, got %q", name, res.HTML)
		}
		if strings.Contains(res.HTML, "&amp;amp;") || strings.Contains(res.HTML, "&amp;lt;") {
			t.Errorf("%s: double escaped output %q", name, res.HTML)
		}
	}
}

func TestHTML_EscapesLiteralText(t *testing.T) {
	f := newFilter(t, defaults(), nil)
	res := f.HTML(context.Background(), "x < y [[nid:1]]", "", "test")
	want := `x &lt; y <a href="/node/1" class="freelink freelink-nid freelink-internal">First page</a>`
	if res.Text != want {
		t.Errorf("expected %q, got %q", want, res.Text)
	}
	if got := f.Text(context.Background(), "x < y", "", "test").Text; got != "x < y" {
		t.Errorf("expected Text to copy literals as is, got %q", got)
	}
}

func TestTipsAndHandlers(t *testing.T) {
	f := newFilter(t, defaults(), nil)
	if tips := f.Tips("", false); !strings.Contains(tips, "[[") {
		t.Errorf("expected short tips to describe the syntax, got %q", tips)
	}

	infos := f.Handlers()
	if len(infos) != len(plugins.NewCatalog().IDs()) {
		t.Fatalf("expected %d handlers, got %d", len(plugins.NewCatalog().IDs()), len(infos))
	}
	var sawDefault bool
	for _, h := range infos {
		if !h.Enabled {
			t.Errorf("expected %s enabled", h.ID)
		}
		if h.Default {
			sawDefault = true
			if h.ID != "nodetitle" {
				t.Errorf("expected nodetitle default, got %s", h.ID)
			}
		}
	}
	if !sawDefault {
		t.Error("expected one default handler")
	}
}

func TestMetricsRecorded(t *testing.T) {
	rec := metrics.NewRecorder(nil)
	f := newFilter(t, defaults(), rec)
	f.Text(context.Background(), "[[nid:1]] [[zz:1]]", "", "api")

	snap := rec.Latency()
	if snap.Count != 1 {
		t.Errorf("expected 1 latency sample, got %d", snap.Count)
	}
}
