package document

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CSVConverter renders CSV files as a table. The first row is the header.
type CSVConverter struct{}

func (c *CSVConverter) Convert(r io.Reader, filename string) (*Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := &Document{Title: titleFromName(filename)}
	if len(records) == 0 {
		return doc, nil
	}

	table := elem(atom.Table)
	thead := elem(atom.Thead)
	thead.AppendChild(row(records[0], atom.Th))
	table.AppendChild(thead)

	tbody := elem(atom.Tbody)
	for _, rec := range records[1:] {
		tbody.AppendChild(row(rec, atom.Td))
	}
	table.AppendChild(tbody)

	var buf bytes.Buffer
	if err := html.Render(&buf, table); err != nil {
		return nil, fmt.Errorf("render table: %w", err)
	}
	doc.HTML = buf.String()
	return doc, nil
}

func elem(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
}

func row(cells []string, cell atom.Atom) *html.Node {
	tr := elem(atom.Tr)
	for _, v := range cells {
		c := elem(cell)
		if v != "" {
			c.AppendChild(&html.Node{Type: html.TextNode, Data: v})
		}
		tr.AppendChild(c)
	}
	return tr
}
