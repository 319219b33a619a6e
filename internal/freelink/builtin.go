package freelink

import (
	"context"

	"golang.org/x/net/html"
)

// Built-in indicators resolve without consulting the enabled set.
const (
	IndicatorShowText = "showtext"
	IndicatorNoWiki   = "nowiki"
	IndicatorRedact   = "redact"
)

// BuiltinID is the handler id of the built-in handler.
const BuiltinID = "builtin"

const redacted = "******"

// IsBuiltin reports whether the indicator is handled by the built-in handler.
func IsBuiltin(indicator string) bool {
	switch indicator {
	case IndicatorShowText, IndicatorNoWiki, IndicatorRedact:
		return true
	}
	return false
}

var builtinPattern = MustPattern(`^(showtext|nowiki|redact)$`)

type builtin struct{}

// Builtin returns the fixed handler for showtext, nowiki and redact.
func Builtin() Handler { return builtin{} }

func (builtin) ID() string                { return BuiltinID }
func (builtin) Title() string             { return "Built-in" }
func (builtin) Indicator() Pattern        { return builtinPattern }
func (builtin) Hidden() bool              { return true }
func (builtin) DefaultSettings() Settings { return Settings{} }

func (builtin) Tip() string {
	return "[[showtext:text]] prints text as is, [[nowiki:text]] prints the markup without linking, [[redact:text]] hides text."
}

func (builtin) Build(_ context.Context, req Request) (*Link, error) {
	t := req.Target
	switch t.Indicator {
	case IndicatorShowText:
		return &Link{Markup: html.EscapeString(t.DestValue())}, nil
	case IndicatorNoWiki:
		return &Link{Markup: html.EscapeString("[[" + t.Raw + "]]")}, nil
	case IndicatorRedact:
		return &Link{Markup: html.EscapeString(t.TextOr(redacted))}, nil
	}
	return nil, Errorf("Unsupported built-in indicator %q", t.Indicator)
}
