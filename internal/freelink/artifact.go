package freelink

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Link is the artifact a handler builds for one occurrence.
type Link struct {
	URL   string
	Text  string
	Title string // tooltip

	// External marks links leaving the site.
	External bool

	// Markup, when set, is emitted verbatim instead of an anchor. Handlers
	// are responsible for escaping it.
	Markup string
}

// HTML renders the link as an anchor fragment.
func (l *Link) HTML(handlerID string) string {
	if l.Markup != "" || l.URL == "" {
		return l.Markup
	}

	class := "freelink freelink-" + handlerID
	if l.External {
		class += " freelink-external"
	} else {
		class += " freelink-internal"
	}

	a := &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A}
	a.Attr = append(a.Attr, html.Attribute{Key: "href", Val: l.URL})
	if l.Title != "" {
		a.Attr = append(a.Attr, html.Attribute{Key: "title", Val: l.Title})
	}
	a.Attr = append(a.Attr, html.Attribute{Key: "class", Val: class})

	text := l.Text
	if text == "" {
		text = l.URL
	}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return renderNode(a)
}

// ErrorFragment renders the inline error shown in place of a failed occurrence.
func ErrorFragment(message, subject string) string {
	code := &html.Node{
		Type:     html.ElementNode,
		Data:     "code",
		DataAtom: atom.Code,
		Attr:     []html.Attribute{{Key: "class", Val: "freelink-error"}},
	}
	text := "Freelinking: " + message
	if subject != "" {
		text += " " + subject
	}
	code.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return renderNode(code)
}

func renderNode(n *html.Node) string {
	var b strings.Builder
	// Rendering to a strings.Builder cannot fail.
	_ = html.Render(&b, n)
	return b.String()
}
