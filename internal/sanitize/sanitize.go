// Package sanitize cleans untrusted text before it reaches the scenario
// library or a generator prompt. Imported documents and user-supplied
// scenarios are stripped of control characters, markup and code fences so
// stored text cannot smuggle instructions into later prompts.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
)

const (
	// MaxDocumentLength bounds a document sent for scenario extraction.
	MaxDocumentLength = 50000

	// MaxTextLength bounds scenario titles, descriptions and option text.
	MaxTextLength = 2000

	// MaxIDLength bounds scenario and option ids.
	MaxIDLength = 64
)

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	reMarkdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	reTripleBacktick = regexp.MustCompile("```+")

	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)

	reSpaces = regexp.MustCompile(`[ \t]+`)

	reRepeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// Document prepares free text for scenario extraction. Headings become list
// markers, tags and code fences are removed, blank runs collapse and the
// result is truncated to MaxDocumentLength bytes on a rune boundary.
func Document(input string) string {
	if input == "" {
		return ""
	}
	s := stripControlChars(input, true)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "- ")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	return truncate(strings.TrimSpace(s), MaxDocumentLength)
}

// Text cleans a single-line field such as a title or option text.
func Text(input string) string {
	if input == "" {
		return ""
	}
	s := stripControlChars(input, false)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reSpaces.ReplaceAllString(s, " ")
	return truncate(strings.TrimSpace(s), MaxTextLength)
}

// ID lowercases input and keeps only [a-z0-9_]. Spaces and hyphens become
// underscores; repeated underscores collapse.
func ID(input string) string {
	if input == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToLower(input) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
		case r == '-' || r == ' ':
			b.WriteByte('_')
		}
	}
	s := reRepeatedUnderscores.ReplaceAllString(b.String(), "_")
	s = strings.Trim(s, "_")
	if len(s) > MaxIDLength {
		s = s[:MaxIDLength]
	}
	return s
}

// Decision sanitizes every text field of d in place.
func Decision(d *models.Decision) {
	d.ID = ID(d.ID)
	d.Title = Text(d.Title)
	d.Description = Text(d.Description)
	for i := range d.Options {
		o := &d.Options[i]
		o.ID = ID(o.ID)
		o.Text = Text(o.Text)
		o.Consequences = Text(o.Consequences)
	}
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL.
// Tabs are kept; newlines are kept only when keepNewlines is set and
// otherwise become spaces.
func stripControlChars(s string, keepNewlines bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			if keepNewlines {
				if r == '\n' {
					b.WriteByte('\n')
				}
			} else {
				b.WriteByte(' ')
			}
		case r == '\t':
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
