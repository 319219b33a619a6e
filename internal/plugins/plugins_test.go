package plugins

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/freelink/internal/content"
	"github.com/dgallion1/freelink/internal/freelink"
	"golang.org/x/text/language"
)

const siteYAML = `
nodes:
  - {id: 1, title: First page, type: page}
  - {id: 2, title: Second page, type: page, alias: about/second}
  - {id: 3, title: Third page, type: article}
users:
  - {id: 5, name: editor}
files:
  - {name: logo.png, scheme: public}
  - {name: secret.pdf, scheme: private}
`

type fakeTitles struct {
	titles map[string]string
	calls  int
}

func (f *fakeTitles) Title(_ context.Context, url string) (string, error) {
	f.calls++
	if t, ok := f.titles[url]; ok {
		return t, nil
	}
	return "", errors.New("no title")
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	fx, err := content.ParseFixture([]byte(siteYAML))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return Deps{Content: content.NewMemory(fx)}
}

func allEnabled(settings map[string]freelink.Settings) []Config {
	var cfgs []Config
	for _, id := range NewCatalog().IDs() {
		cfgs = append(cfgs, Config{ID: id, Enabled: true, Settings: settings[id]})
	}
	return cfgs
}

func build(t *testing.T, deps Deps, settings map[string]freelink.Settings, text string) (string, []*freelink.Occurrence) {
	t.Helper()
	set, err := NewCatalog().Build(allEnabled(settings), deps)
	if err != nil {
		t.Fatalf("build set: %v", err)
	}
	opts := freelink.Options{DefaultHandler: "nodetitle", Language: language.English}
	plan := freelink.NewPlan(text, set, opts)
	out := plan.Render(context.Background(), 4)
	return out, plan.Occurrences()
}

// link builds a single occurrence and returns its handler output.
func link(t *testing.T, deps Deps, settings map[string]freelink.Settings, markup string) *freelink.Link {
	t.Helper()
	set, err := NewCatalog().Build(allEnabled(settings), deps)
	if err != nil {
		t.Fatalf("build set: %v", err)
	}
	opts := freelink.Options{DefaultHandler: "nodetitle", Language: language.English}
	plan := freelink.NewPlan(markup, set, opts)
	occ := plan.Occurrences()[0]
	if !occ.Resolved {
		t.Fatalf("%s: expected resolved occurrence", markup)
	}
	l, err := occ.Entry.Handler.Build(context.Background(), freelink.Request{Target: occ.Target, Settings: occ.Entry.Settings})
	if err != nil {
		t.Fatalf("%s: unexpected build error: %v", markup, err)
	}
	return l
}

func buildErr(t *testing.T, deps Deps, settings map[string]freelink.Settings, markup string) *freelink.BuildError {
	t.Helper()
	_, occs := build(t, deps, settings, markup)
	var be *freelink.BuildError
	if !errors.As(occs[0].Err, &be) {
		t.Fatalf("%s: expected build error, got %v", markup, occs[0].Err)
	}
	return be
}

func TestHandlers_LinkTargets(t *testing.T) {
	deps := testDeps(t)
	tests := []struct {
		markup string
		url    string
		text   string
	}{
		{"[[First page]]", "/node/1", "First page"},
		{"[[nodetitle:second page]]", "/node/2", "Second page"},
		{"[[nid:2]]", "/node/2", "Second page"},
		{"[[nid:3|Custom]]", "/node/3", "Custom"},
		{"[[u:5]]", "/user/5", "editor"},
		{"[[user:editor]]", "/user/5", "editor"},
		{"[[path:about/second]]", "/about/second", "Second page"},
		{"[[drupalproject:freelinking]]", "https://drupal.org/project/freelinking", "freelinking"},
		{"[[drupalorg:1]]", "https://drupal.org/node/1", "1"},
		{"[[search:test]]", "/search/node?keys=test", "test"},
		{"[[google:drupal]]", "https://google.com/search?q=drupal&hl=en", "drupal"},
		{"[[file:logo.png]]", "/sites/default/files/logo.png", "logo.png"},
		{"[[wikipedia:Main_Page]]", "https://en.wikipedia.org/wiki/Main_Page", "Main_Page"},
		{"[[wikiquote:Main Page]]", "https://en.wikiquote.org/wiki/Main_Page", "Main Page"},
		{"[[wiktionary:Main Page]]", "https://en.wiktionary.org/wiki/Main_Page", "Main Page"},
		{"[[wikinews:Main Page]]", "https://en.wikinews.org/wiki/Main_Page", "Main Page"},
		{"[[wikisource:Main Page]]", "https://en.wikisource.org/wiki/Main_Page", "Main Page"},
		{"[[wikibooks:Main Page]]", "https://en.wikibooks.org/wiki/Main_Page", "Main Page"},
		{"[[wp:Paris|Paris|lang=fr]]", "https://fr.wikipedia.org/wiki/Paris", "Paris"},
		{"[[http://example.com/a]]", "http://example.com/a", "http://example.com/a"},
		{"[[ext:example.com|Example]]", "http://example.com", "Example"},
	}
	for _, tt := range tests {
		l := link(t, deps, nil, tt.markup)
		if l.URL != tt.url {
			t.Errorf("%s: expected url %q, got %q", tt.markup, tt.url, l.URL)
		}
		if l.Text != tt.text {
			t.Errorf("%s: expected text %q, got %q", tt.markup, tt.text, l.Text)
		}
	}
}

func TestHandlers_Tooltip(t *testing.T) {
	l := link(t, testDeps(t), nil, "[[nid:1|First|Go to first]]")
	if l.Title != "Go to first" {
		t.Errorf("expected tooltip %q, got %q", "Go to first", l.Title)
	}
}

func TestHandlers_RenderedFixture(t *testing.T) {
	out, _ := build(t, testDeps(t), nil, "See [[First page]] and [[nid:2|Second]].")
	want := `See <a href="/node/1" class="freelink freelink-nodetitle freelink-internal">First page</a> and ` +
		`<a href="/node/2" class="freelink freelink-nid freelink-internal">Second</a>.`
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestHandlers_BuildErrors(t *testing.T) {
	deps := testDeps(t)
	tests := []struct {
		markup  string
		handler string
		message string
	}{
		{"[[nid:abc]]", "nid", "Invalid node ID abc"},
		{"[[nid:99]]", "nid", "Node 99 not found"},
		{"[[u:nobody]]", "user", "User nobody not found"},
		{"[[u:]]", "user", "Missing user name"},
		{"[[alias:nowhere]]", "path_alias", "Path alias nowhere not found"},
		{"[[file:missing.png]]", "file", "File missing.png not found"},
		{"[[file:secret.pdf]]", "file", "File secret.pdf not found"},
		{"[[drupalorg:abc]]", "drupalorg", "Invalid Drupal.org node ID abc"},
		{"[[wp:]]", "wiki", "Missing wiki page"},
		{"[[ext:ftp://host/file]]", "external", "Invalid external URL ftp://host/file"},
		{"[[search:]]", "search", "Missing search terms"},
	}
	for _, tt := range tests {
		be := buildErr(t, deps, nil, tt.markup)
		if be.Handler != tt.handler {
			t.Errorf("%s: expected handler %q, got %q", tt.markup, tt.handler, be.Handler)
		}
		if be.Message != tt.message {
			t.Errorf("%s: expected message %q, got %q", tt.markup, tt.message, be.Message)
		}
	}
}

func TestWiki_AsDefault(t *testing.T) {
	set, err := NewCatalog().Build([]Config{{ID: "wiki", Enabled: true}}, testDeps(t))
	if err != nil {
		t.Fatalf("build set: %v", err)
	}
	opts := freelink.Options{DefaultHandler: "wiki", Language: language.English}

	got := freelink.Scan(context.Background(), "[[Main Page]] [[zzz:Go]]", set, opts)
	want := `<a href="https://en.wikipedia.org/wiki/Main_Page" class="freelink freelink-wiki freelink-external">Main Page</a> ` +
		`<a href="https://en.wikipedia.org/wiki/Go" class="freelink freelink-wiki freelink-external">Go</a>`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	set, err = NewCatalog().Build([]Config{{ID: "wiki", Enabled: true, Settings: freelink.Settings{"site": "wq"}}}, testDeps(t))
	if err != nil {
		t.Fatalf("build set: %v", err)
	}
	got = freelink.Scan(context.Background(), "[[Hamlet]] [[wp:Hamlet]]", set, opts)
	if !strings.Contains(got, "https://en.wikiquote.org/wiki/Hamlet") || !strings.Contains(got, "https://en.wikipedia.org/wiki/Hamlet") {
		t.Errorf("expected site setting for bare occurrences only, got %q", got)
	}

	set, err = NewCatalog().Build([]Config{{ID: "wiki", Enabled: true, Settings: freelink.Settings{"site": "nope"}}}, testDeps(t))
	if err != nil {
		t.Fatalf("build set: %v", err)
	}
	got = freelink.Scan(context.Background(), "[[Hamlet]]", set, opts)
	if !strings.Contains(got, "Freelinking: Unknown wiki nope") {
		t.Errorf("expected unknown site error, got %q", got)
	}
}

func TestNodeTitle_Failover(t *testing.T) {
	deps := testDeps(t)
	tests := []struct {
		failover string
		want     string
	}{
		{FailoverSearch, `<a href="/search/node?keys=No+such+page" title="Search this site for content like No such page" class="freelink freelink-nodetitle freelink-internal">No such page</a>`},
		{FailoverShowText, "Shown &amp; told"},
		{FailoverNone, "No such page"},
		{FailoverError, `<code class="freelink-error">Freelinking: Node title No such page does not exist</code>`},
	}
	for _, tt := range tests {
		settings := map[string]freelink.Settings{"nodetitle": {"failover": tt.failover}}
		markup := "[[No such page]]"
		if tt.failover == FailoverShowText {
			markup = "[[No such page|Shown & told]]"
		}
		out, _ := build(t, deps, settings, markup)
		if out != tt.want {
			t.Errorf("failover %s: expected %q, got %q", tt.failover, tt.want, out)
		}
	}
}

func TestNodeTitle_NodeTypes(t *testing.T) {
	deps := testDeps(t)
	settings := map[string]freelink.Settings{"nodetitle": {"nodetypes": []any{"page"}, "failover": FailoverError}}

	if l := link(t, deps, settings, "[[First page]]"); l.URL != "/node/1" {
		t.Errorf("expected page node to resolve, got %q", l.URL)
	}
	be := buildErr(t, deps, settings, "[[Third page]]")
	if !strings.Contains(be.Message, "does not exist") {
		t.Errorf("expected article to be filtered out, got %q", be.Message)
	}
}

func TestFile_PrivateScheme(t *testing.T) {
	settings := map[string]freelink.Settings{"file": {"scheme": "private"}}
	l := link(t, testDeps(t), settings, "[[file:secret.pdf]]")
	if l.URL != "/system/files/secret.pdf" {
		t.Errorf("expected private file url, got %q", l.URL)
	}
}

func TestDrupalOrg_DisabledKinds(t *testing.T) {
	deps := testDeps(t)
	settings := map[string]freelink.Settings{"drupalorg": {"node": false, "project": "0"}}
	if be := buildErr(t, deps, settings, "[[do:1]]"); !strings.Contains(be.Message, "node links are disabled") {
		t.Errorf("expected node links disabled, got %q", be.Message)
	}
	if be := buildErr(t, deps, settings, "[[dp:views]]"); !strings.Contains(be.Message, "project links are disabled") {
		t.Errorf("expected project links disabled, got %q", be.Message)
	}
}

func TestScrape_GatedByExternalRequests(t *testing.T) {
	titles := &fakeTitles{titles: map[string]string{
		"http://example.com":              "Example Domain",
		"https://drupal.org/project/views": "Views | Drupal.org",
	}}
	deps := testDeps(t)
	deps.Titles = titles
	settings := map[string]freelink.Settings{
		"external":  {"scrape": true},
		"drupalorg": {"scrape": true},
	}

	if l := link(t, deps, settings, "[[ext:example.com]]"); l.Text != "http://example.com" {
		t.Errorf("expected no scrape without external requests, got %q", l.Text)
	}
	if titles.calls != 0 {
		t.Errorf("expected no fetches, got %d", titles.calls)
	}

	deps.ExternalRequests = true
	if l := link(t, deps, settings, "[[ext:example.com]]"); l.Text != "Example Domain" {
		t.Errorf("expected scraped title, got %q", l.Text)
	}
	if l := link(t, deps, settings, "[[dp:views]]"); l.Text != "Views | Drupal.org" {
		t.Errorf("expected scraped project title, got %q", l.Text)
	}
	if l := link(t, deps, settings, "[[ext:example.com|Given]]"); l.Text != "Given" {
		t.Errorf("expected explicit text to skip scraping, got %q", l.Text)
	}
	if l := link(t, deps, settings, "[[ext:unknown.example]]"); l.Text != "http://unknown.example" {
		t.Errorf("expected fallback text on scrape failure, got %q", l.Text)
	}
}
