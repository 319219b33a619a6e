package freelink

import (
	"context"
	"fmt"
	"sync/atomic"
)

// stubHandler renders "<id:dest|text>" so tests can see which handler ran.
type stubHandler struct {
	id      string
	pattern Pattern
	fail    string
	builds  atomic.Int32
}

func newStub(id, expr string) *stubHandler {
	return &stubHandler{id: id, pattern: MustPattern(expr)}
}

func (h *stubHandler) ID() string                { return h.id }
func (h *stubHandler) Title() string             { return "Stub " + h.id }
func (h *stubHandler) Indicator() Pattern        { return h.pattern }
func (h *stubHandler) Tip() string               { return "Tip for " + h.id + "." }
func (h *stubHandler) Hidden() bool              { return false }
func (h *stubHandler) DefaultSettings() Settings { return Settings{} }

func (h *stubHandler) Build(_ context.Context, req Request) (*Link, error) {
	h.builds.Add(1)
	if h.fail != "" {
		return nil, Errorf("%s", h.fail)
	}
	t := req.Target
	return &Link{Markup: fmt.Sprintf("<%s:%s|%s>", h.id, t.DestValue(), t.TextOr(""))}, nil
}

func entries(hs ...Handler) EnabledSet {
	set := make(EnabledSet, 0, len(hs))
	for _, h := range hs {
		set = append(set, Entry{Handler: h, Settings: Settings{}})
	}
	return set
}
