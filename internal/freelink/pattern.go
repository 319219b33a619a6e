package freelink

import (
	"fmt"
	"regexp"
)

// MatchMode selects how an indicator pattern is tested against a token.
type MatchMode int

const (
	// MatchSubstring reports a match when the pattern matches anywhere in the
	// token. Patterns that need exact tokens must carry their own anchors.
	MatchSubstring MatchMode = iota
	// MatchWhole requires the pattern to span the entire token.
	MatchWhole
)

func (m MatchMode) String() string {
	switch m {
	case MatchWhole:
		return "whole"
	default:
		return "substring"
	}
}

// Pattern is an indicator predicate backed by a regular expression.
type Pattern struct {
	expr  string
	re    *regexp.Regexp
	whole *regexp.Regexp
}

// NewPattern compiles an indicator pattern.
func NewPattern(expr string) (Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile indicator pattern %q: %w", expr, err)
	}
	whole, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile anchored pattern %q: %w", expr, err)
	}
	return Pattern{expr: expr, re: re, whole: whole}, nil
}

// MustPattern is like NewPattern but panics on an invalid expression.
func MustPattern(expr string) Pattern {
	p, err := NewPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Match tests the indicator token against the pattern.
func (p Pattern) Match(indicator string, mode MatchMode) bool {
	if p.re == nil {
		return false
	}
	if mode == MatchWhole {
		return p.whole.MatchString(indicator)
	}
	return p.re.MatchString(indicator)
}

func (p Pattern) String() string {
	return p.expr
}
