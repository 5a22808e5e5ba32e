package views

import (
	"strings"
	"unicode/utf8"

	"github.com/matheus3301/tgsearch/internal/search"
	"github.com/rivo/tview"
)

// sanitizeForTerminal drops codepoints tcell renders badly: skin tone
// modifiers, zero width joiners and variation selectors. A modified emoji
// collapses to its base glyph.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isProblematicRune(r) {
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

func isProblematicRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF:
		return true
	case r == 0x200D:
		return true
	case r >= 0xFE00 && r <= 0xFE0F:
		return true
	case r >= 0xE0100 && r <= 0xE01EF:
		return true
	default:
		return false
	}
}

// flatten joins multi-line text into one table row.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// renderFragment turns an engine highlight fragment into tview markup:
// marked spans become bold in color, everything else is escaped. Text from
// a non-highlighted fragment is escaped verbatim.
func renderFragment(fragment string, highlighted bool, color string) string {
	if !highlighted {
		return tview.Escape(sanitizeForTerminal(fragment))
	}

	var b strings.Builder
	rest := fragment
	for {
		start := strings.Index(rest, search.HighlightPreTag)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start:], search.HighlightPostTag)
		if end < 0 {
			break
		}
		end += start

		b.WriteString(plain(rest[:start]))
		b.WriteString("[" + color + "::b]")
		b.WriteString(plain(rest[start+len(search.HighlightPreTag) : end]))
		b.WriteString("[-:-:-]")
		rest = rest[end+len(search.HighlightPostTag):]
	}
	b.WriteString(plain(rest))
	return b.String()
}

func plain(s string) string {
	return tview.Escape(sanitizeForTerminal(s))
}
