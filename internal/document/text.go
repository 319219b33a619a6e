package document

import (
	"bufio"
	"io"
	"strings"
)

// TextConverter handles plain text files. Blank lines separate paragraphs.
type TextConverter struct{}

func (c *TextConverter) Convert(r io.Reader, filename string) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &Document{
		Title: titleFromName(filename),
		HTML:  renderBlocks(splitParagraphs(strings.Join(lines, "\n"))),
	}, nil
}
