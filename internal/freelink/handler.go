package freelink

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// NoDefault is the default-handler id that disables the default fallback.
const NoDefault = "NONE"

// Handler builds link artifacts for the indicators it recognizes.
type Handler interface {
	// ID is the unique handler identifier used in settings ("nodetitle", "wiki").
	ID() string
	// Title is the human-readable handler name shown in tips.
	Title() string
	// Indicator is the predicate tested against indicator tokens.
	Indicator() Pattern
	// Tip is a short usage hint.
	Tip() string
	// Hidden handlers are always enabled and not offered for toggling.
	Hidden() bool
	// DefaultSettings are overlaid by configured settings.
	DefaultSettings() Settings
	// Build produces the link for one parsed target. Returning a *BuildError
	// renders an inline error fragment in place of the occurrence.
	Build(ctx context.Context, req Request) (*Link, error)
}

// Request carries everything a handler needs to build one link.
type Request struct {
	Target   *Target
	Settings Settings
}

// Entry is an enabled handler with its effective settings.
type Entry struct {
	Handler  Handler
	Settings Settings
}

// EnabledSet is the ordered list of handlers enabled for a filter. Order
// matters: when several handlers match an indicator the later one wins.
type EnabledSet []Entry

// Lookup returns the entry for a handler id.
func (s EnabledSet) Lookup(id string) (Entry, bool) {
	var found Entry
	ok := false
	for _, e := range s {
		if e.Handler.ID() == id {
			found, ok = e, true
		}
	}
	return found, ok
}

// IDs lists handler ids in set order.
func (s EnabledSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for _, e := range s {
		ids = append(ids, e.Handler.ID())
	}
	return ids
}

// Options are the filter-wide settings for one scan.
type Options struct {
	// DefaultHandler is used when an occurrence has no indicator, and as a
	// fallback when nothing matches. NoDefault or "" disables the fallback.
	// An occurrence without an indicator still resolves its "" or NONE
	// indicator against the set, so a handler with an optional pattern can
	// claim it.
	DefaultHandler string
	// IgnoreUnresolved drops unresolved occurrences instead of rendering an
	// error fragment. It also disables the default fallback.
	IgnoreUnresolved bool
	MatchMode        MatchMode
	Language         language.Tag
	// EscapeText HTML-escapes the literal text around occurrences. Set it
	// when the input is text decoded from HTML.
	EscapeText bool
}

// Settings are per-handler configuration values as loaded from YAML.
type Settings map[string]any

// Merge returns a copy of s overlaid with over.
func (s Settings) Merge(over Settings) Settings {
	out := make(Settings, len(s)+len(over))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// String returns the value at key formatted as a string.
func (s Settings) String(key, fallback string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Bool interprets the value at key as a flag. Numbers are true when non-zero.
func (s Settings) Bool(key string, fallback bool) bool {
	v, ok := s[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return fallback
}

// Strings returns a list value. A comma-separated string is split.
func (s Settings) Strings(key string) []string {
	v, ok := s[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
