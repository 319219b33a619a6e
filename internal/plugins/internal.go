package plugins

import (
	"context"
	"errors"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/dgallion1/freelink/internal/content"
	"github.com/dgallion1/freelink/internal/freelink"
)

// Node title failover modes.
const (
	FailoverSearch   = "search"
	FailoverShowText = "showtext"
	FailoverError    = "error"
	FailoverNone     = "none"
)

func nodeURL(id int) string {
	return "/node/" + strconv.Itoa(id)
}

func storeError(subject string, err error) error {
	return &freelink.BuildError{Message: "Lookup failed for " + subject, Err: err}
}

type nodeTitle struct {
	base
	store content.Store
}

func newNodeTitle(d Deps) freelink.Handler {
	return nodeTitle{
		base: base{
			id:      "nodetitle",
			title:   "Node title",
			tip:     "Link to a local node by title.",
			pattern: freelink.MustPattern(`^(nodetitle|nt|title|t)?$`),
		},
		store: d.Content,
	}
}

func (nodeTitle) DefaultSettings() freelink.Settings {
	return freelink.Settings{"failover": FailoverSearch, "nodetypes": []string{}}
}

func (h nodeTitle) Build(ctx context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	dest := strings.TrimSpace(t.DestValue())

	n, err := h.store.NodeByTitle(ctx, dest, req.Settings.Strings("nodetypes"))
	if err == nil {
		return &freelink.Link{URL: nodeURL(n.ID), Text: t.TextOr(n.Title), Title: t.TooltipValue()}, nil
	}
	if !errors.Is(err, content.ErrNotFound) {
		return nil, storeError(dest, err)
	}

	switch mode := req.Settings.String("failover", FailoverSearch); mode {
	case FailoverSearch:
		return searchLink(t, dest), nil
	case FailoverShowText:
		return &freelink.Link{Markup: html.EscapeString(t.TextOr(dest))}, nil
	case FailoverNone:
		return &freelink.Link{Markup: html.EscapeString(dest)}, nil
	case FailoverError:
		return nil, freelink.Errorf("Node title %s does not exist", dest)
	default:
		return nil, freelink.Errorf("Unknown failover %s", mode)
	}
}

type nid struct {
	base
	store content.Store
}

func newNID(d Deps) freelink.Handler {
	return nid{
		base: base{
			id:      "nid",
			title:   "Node ID",
			tip:     "Link to a local node by node ID.",
			pattern: freelink.MustPattern(`^(nid|node|n)$`),
		},
		store: d.Content,
	}
}

func (h nid) Build(ctx context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	dest := strings.TrimSpace(t.DestValue())
	id, err := strconv.Atoi(dest)
	if err != nil || id <= 0 {
		return nil, freelink.Errorf("Invalid node ID %s", dest)
	}

	n, err := h.store.NodeByID(ctx, id)
	if errors.Is(err, content.ErrNotFound) {
		return nil, freelink.Errorf("Node %d not found", id)
	}
	if err != nil {
		return nil, storeError(dest, err)
	}
	return &freelink.Link{URL: nodeURL(n.ID), Text: t.TextOr(n.Title), Title: t.TooltipValue()}, nil
}

type user struct {
	base
	store content.Store
}

func newUser(d Deps) freelink.Handler {
	return user{
		base: base{
			id:      "user",
			title:   "User",
			tip:     "Link to a user profile by name or uid.",
			pattern: freelink.MustPattern(`^(u|user|uid|username)$`),
		},
		store: d.Content,
	}
}

func (h user) Build(ctx context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	dest := strings.TrimSpace(t.DestValue())
	if dest == "" {
		return nil, freelink.Errorf("Missing user name")
	}

	u, err := h.store.User(ctx, dest)
	if errors.Is(err, content.ErrNotFound) {
		return nil, freelink.Errorf("User %s not found", dest)
	}
	if err != nil {
		return nil, storeError(dest, err)
	}
	return &freelink.Link{URL: "/user/" + strconv.Itoa(u.ID), Text: t.TextOr(u.Name), Title: t.TooltipValue()}, nil
}

type pathAlias struct {
	base
	store content.Store
}

func newPathAlias(d Deps) freelink.Handler {
	return pathAlias{
		base: base{
			id:      "path_alias",
			title:   "Path alias",
			tip:     "Link to a local node by URL alias.",
			pattern: freelink.MustPattern(`^(path|alias)$`),
		},
		store: d.Content,
	}
}

func (h pathAlias) Build(ctx context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	alias := strings.Trim(strings.TrimSpace(t.DestValue()), "/")
	if alias == "" {
		return nil, freelink.Errorf("Missing path alias")
	}

	n, err := h.store.NodeByAlias(ctx, alias)
	if errors.Is(err, content.ErrNotFound) {
		return nil, freelink.Errorf("Path alias %s not found", alias)
	}
	if err != nil {
		return nil, storeError(alias, err)
	}
	return &freelink.Link{URL: "/" + escapePath(alias), Text: t.TextOr(n.Title), Title: t.TooltipValue()}, nil
}

// File schemes and their public URL prefixes.
var fileSchemes = map[string]string{
	"public":  "/sites/default/files/",
	"private": "/system/files/",
}

type file struct {
	base
	store content.Store
}

func newFile(d Deps) freelink.Handler {
	return file{
		base: base{
			id:      "file",
			title:   "File",
			tip:     "Link to a local file.",
			pattern: freelink.MustPattern(`^(file|f)$`),
		},
		store: d.Content,
	}
}

func (file) DefaultSettings() freelink.Settings {
	return freelink.Settings{"scheme": "public"}
}

func (h file) Build(ctx context.Context, req freelink.Request) (*freelink.Link, error) {
	t := req.Target
	name := strings.TrimSpace(t.DestValue())
	scheme := req.Settings.String("scheme", "public")
	prefix, ok := fileSchemes[scheme]
	if !ok {
		return nil, freelink.Errorf("Unknown file scheme %s", scheme)
	}

	f, err := h.store.File(ctx, name)
	if errors.Is(err, content.ErrNotFound) || (err == nil && f.Scheme != "" && f.Scheme != scheme) {
		return nil, freelink.Errorf("File %s not found", name)
	}
	if err != nil {
		return nil, storeError(name, err)
	}
	return &freelink.Link{URL: prefix + escapePath(f.Name), Text: t.TextOr(f.Name), Title: t.TooltipValue()}, nil
}

// searchLink links to the local search page for dest.
func searchLink(t *freelink.Target, dest string) *freelink.Link {
	title := t.TooltipValue()
	if title == "" {
		title = "Search this site for content like " + dest
	}
	return &freelink.Link{
		URL:   "/search/node?keys=" + url.QueryEscape(dest),
		Text:  t.TextOr(dest),
		Title: title,
	}
}
