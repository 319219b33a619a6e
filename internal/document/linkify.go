package document

import (
	"bytes"
	"context"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipped elements keep their contents unfiltered.
var skipped = map[atom.Atom]bool{
	atom.A:        true,
	atom.Code:     true,
	atom.Pre:      true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Textarea: true,
}

// Linkify passes the text of an HTML fragment through link, leaving markup
// and the contents of skipped elements untouched. link receives the text with
// entities decoded and must return HTML. Only runs whose source contains a
// literal "[[" are passed, so "&#91;&#91;" stays unlinked.
func Linkify(ctx context.Context, src string, link LinkFunc) string {
	if link == nil || !strings.Contains(src, "[[") {
		return src
	}

	z := html.NewTokenizer(strings.NewReader(src))
	var out bytes.Buffer
	depth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				// Malformed input is copied through from the failure point.
				out.Write(z.Raw())
			}
			break
		}
		raw := z.Raw()

		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			if skipped[atom.Lookup(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skipped[atom.Lookup(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth == 0 && bytes.Contains(raw, []byte("[[")) {
				out.WriteString(link(ctx, html.UnescapeString(string(raw))))
				continue
			}
		}
		out.Write(raw)
	}
	return out.String()
}
