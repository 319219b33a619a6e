// Package document converts uploaded files to HTML and runs freelinking over
// their text.
package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a converted file.
type Document struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Converter turns raw file bytes into HTML.
type Converter interface {
	Convert(r io.Reader, filename string) (*Document, error)
}

// LinkFunc filters one run of decoded text and returns it as HTML.
type LinkFunc func(ctx context.Context, text string) string

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate converter for a filename.
func ForFile(filename string) (Converter, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextConverter{}, nil
	case ".md", ".markdown":
		return &MarkdownConverter{}, nil
	case ".csv":
		return &CSVConverter{}, nil
	case ".html", ".htm":
		return &HTMLConverter{}, nil
	case ".pdf":
		return &PDFConverter{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXConverter{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Render converts a file and links the text of the resulting HTML.
func Render(ctx context.Context, r io.Reader, filename string, link LinkFunc) (*Document, error) {
	conv, err := ForFile(filename)
	if err != nil {
		return nil, err
	}
	doc, err := conv.Convert(r, filename)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", filename, err)
	}
	doc.HTML = Linkify(ctx, doc.HTML, link)
	return doc, nil
}

// Block is one paragraph or heading of extracted text.
type Block struct {
	Level int // 1-6 for headings, 0 for paragraphs
	Text  string
}

var headingAtoms = [...]atom.Atom{atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// renderBlocks renders blocks as escaped HTML, one element per line.
func renderBlocks(blocks []Block) string {
	var buf bytes.Buffer
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		a := atom.P
		if b.Level >= 1 && b.Level <= 6 {
			a = headingAtoms[b.Level]
		}
		n := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		_ = html.Render(&buf, n)
		buf.WriteByte('\n')
	}
	return buf.String()
}

// splitParagraphs splits text on blank lines.
func splitParagraphs(text string) []Block {
	var blocks []Block
	var current []string
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, Block{Text: strings.Join(current, "\n")})
			current = current[:0]
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func titleFromName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
