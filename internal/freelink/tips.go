package freelink

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const tipIntro = "Freelinking helps you easily create HTML links. Links take the form of [[indicator:target|Title]]."

// Tips describes how to write freelinks for the given set.
//
// The short form is one sentence plus the default handler's tip. The long form
// is an HTML fragment listing every enabled handler as "Title [pattern] - tip".
func Tips(set EnabledSet, opts Options, long bool) string {
	if !long {
		text := tipIntro
		if opts.DefaultHandler != "" && opts.DefaultHandler != NoDefault {
			if e, ok := set.Lookup(opts.DefaultHandler); ok {
				text += " " + e.Handler.Tip()
			}
		}
		return text
	}

	div := element(atom.Div, "")
	div.AppendChild(element(atom.H4, "Freelinking"))
	div.AppendChild(element(atom.P, "Below is a list of available types of freelinks you may use, organized as Plugin Name: [indicator]."))

	ul := element(atom.Ul, "")
	for _, e := range set {
		h := e.Handler
		ul.AppendChild(element(atom.Li, h.Title()+" ["+h.Indicator().String()+"] - "+h.Tip()))
	}
	div.AppendChild(ul)
	return renderNode(div)
}

func element(a atom.Atom, text string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}
