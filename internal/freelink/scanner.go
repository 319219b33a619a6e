package freelink

import (
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

const (
	openDelim  = "[["
	closeDelim = "]]"
)

// Outcome classifies what an occurrence rendered to.
type Outcome string

const (
	OutcomePending    Outcome = "pending"
	OutcomeLink       Outcome = "link"
	OutcomeBuildError Outcome = "build_error"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeDropped    Outcome = "dropped"
)

// Span is a byte range [Start, End) in the scanned text.
type Span struct {
	Start int
	End   int
}

// Occurrence is one [[...]] span found during a scan.
type Occurrence struct {
	Span      Span
	Indicator string
	RawTarget string

	// Entry is the resolved handler. Zero when unresolved.
	Entry    Entry
	Resolved bool
	Target   *Target

	Outcome Outcome
	Err     error

	artifact string
}

// HandlerID returns the resolved handler id, or "" when unresolved.
func (o *Occurrence) HandlerID() string {
	if !o.Resolved {
		return ""
	}
	return o.Entry.Handler.ID()
}

func (o *Occurrence) render(ctx context.Context) string {
	if !o.Resolved {
		if o.Outcome == OutcomeDropped {
			return ""
		}
		rerr := &ResolveError{Indicator: o.Indicator}
		o.Outcome, o.Err = OutcomeUnresolved, rerr
		return ErrorFragment(rerr.Message(), o.Indicator)
	}

	id := o.Entry.Handler.ID()
	link, err := o.Entry.Handler.Build(ctx, Request{Target: o.Target, Settings: o.Entry.Settings})
	if err != nil {
		berr := asBuildError(id, err)
		o.Outcome, o.Err = OutcomeBuildError, berr
		return ErrorFragment(berr.Message, "")
	}
	o.Outcome = OutcomeLink
	if link == nil {
		return ""
	}
	return link.HTML(id)
}

type segment struct {
	literal string
	occ     *Occurrence
}

// Plan is a scanned text whose occurrences are resolved and parsed but not
// yet built. Build steps run in Render, so callers choose the scheduling.
type Plan struct {
	segments    []segment
	occurrences []*Occurrence
	escape      bool
}

// NewPlan walks text once, splitting it into literal runs and occurrences.
func NewPlan(text string, set EnabledSet, opts Options) *Plan {
	p := &Plan{escape: opts.EscapeText}
	remain := text
	offset := 0

	for len(remain) > 0 {
		if !strings.HasPrefix(remain, openDelim) {
			pos := strings.Index(remain, openDelim)
			if pos < 0 {
				break
			}
			p.literal(remain[:pos])
			remain = remain[pos:]
			offset += pos
			continue
		}

		pos := strings.Index(remain, closeDelim)
		if pos < 0 {
			// Unterminated markup is kept as text.
			break
		}
		end := pos + len(closeDelim)
		p.occurrence(remain[len(openDelim):pos], Span{Start: offset, End: offset + end}, set, opts)
		remain = remain[end:]
		offset += end
	}
	p.literal(remain)
	return p
}

func (p *Plan) literal(s string) {
	if s == "" {
		return
	}
	p.segments = append(p.segments, segment{literal: s})
}

func (p *Plan) occurrence(body string, span Span, set EnabledSet, opts Options) {
	occ := &Occurrence{Span: span, Outcome: OutcomePending}
	if indicator, target, ok := strings.Cut(body, ":"); ok {
		occ.Indicator, occ.RawTarget = indicator, target
	} else {
		occ.Indicator, occ.RawTarget = opts.DefaultHandler, body
	}

	occ.Entry, occ.Resolved = Resolve(occ.Indicator, set, opts)
	if occ.Resolved {
		occ.Target = ParseTarget(occ.RawTarget, opts.Language)
		occ.Target.Indicator = occ.Indicator
	} else if opts.IgnoreUnresolved {
		occ.Outcome = OutcomeDropped
	}

	p.occurrences = append(p.occurrences, occ)
	p.segments = append(p.segments, segment{occ: occ})
}

// Occurrences returns the occurrences in text order. Outcomes are filled in
// by Render.
func (p *Plan) Occurrences() []*Occurrence {
	return p.occurrences
}

// Render builds every occurrence and splices the artifacts back in text
// order. Up to concurrency builds run at once; values below 2 build
// sequentially.
func (p *Plan) Render(ctx context.Context, concurrency int) string {
	if concurrency < 2 || len(p.occurrences) < 2 {
		for _, occ := range p.occurrences {
			occ.artifact = occ.render(ctx)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(concurrency)
		for _, occ := range p.occurrences {
			g.Go(func() error {
				occ.artifact = occ.render(ctx)
				return nil
			})
		}
		_ = g.Wait()
	}

	var b strings.Builder
	for _, seg := range p.segments {
		if seg.occ == nil {
			if p.escape {
				b.WriteString(html.EscapeString(seg.literal))
			} else {
				b.WriteString(seg.literal)
			}
			continue
		}
		b.WriteString(seg.occ.artifact)
	}
	return b.String()
}

// Scan replaces every [[...]] occurrence in text with its artifact, building
// links sequentially.
func Scan(ctx context.Context, text string, set EnabledSet, opts Options) string {
	return NewPlan(text, set, opts).Render(ctx, 1)
}
