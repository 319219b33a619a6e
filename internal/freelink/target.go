package freelink

import (
	"strings"

	"golang.org/x/text/language"
)

// Target is the decomposed argument set of one occurrence.
type Target struct {
	// Raw is the target string exactly as written after the indicator.
	Raw string
	// Indicator is the token that selected the handler. Set by the scanner.
	Indicator string

	Dest    *string
	Text    *string // URL-decoded
	Tooltip *string // URL-decoded

	// Named holds key=value segments. Later duplicates overwrite earlier ones.
	Named map[string]string
	// Overflow holds unnamed segments past the third, in order.
	Overflow []string

	Language language.Tag
}

// ParseTarget splits a raw target on "|" into positional, named, and
// overflow arguments. It never fails.
func ParseTarget(target string, lang language.Tag) *Target {
	t := &Target{
		Raw:      target,
		Named:    map[string]string{},
		Overflow: []string{},
		Language: lang,
	}

	// The first three unnamed segments are dest, text and tooltip.
	index := 0
	for _, item := range strings.Split(target, "|") {
		// A leading "=" has no name and counts as a plain segment.
		if eq := strings.IndexByte(item, '='); eq > 0 {
			t.Named[item[:eq]] = item[eq+1:]
			continue
		}
		if index < 3 {
			v := item
			switch index {
			case 0:
				t.Dest = &v
			case 1:
				t.Text = &v
			case 2:
				t.Tooltip = &v
			}
			index++
			continue
		}
		t.Overflow = append(t.Overflow, item)
	}

	if t.Text != nil {
		v := urldecode(*t.Text)
		t.Text = &v
	}
	if t.Tooltip != nil {
		v := urldecode(*t.Tooltip)
		t.Tooltip = &v
	}
	return t
}

// DestValue returns the destination or "" when unset.
func (t *Target) DestValue() string {
	if t.Dest == nil {
		return ""
	}
	return *t.Dest
}

// TextOr returns the link text, or fallback when unset or empty.
func (t *Target) TextOr(fallback string) string {
	if t.Text == nil || *t.Text == "" {
		return fallback
	}
	return *t.Text
}

// TooltipValue returns the tooltip or "" when unset.
func (t *Target) TooltipValue() string {
	if t.Tooltip == nil {
		return ""
	}
	return *t.Tooltip
}

// urldecode decodes "+" as space and %XX escapes. Malformed escapes are kept
// literally rather than rejected.
func urldecode(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
