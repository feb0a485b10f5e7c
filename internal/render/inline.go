package render

import (
	"regexp"
	"strings"
)

var (
	inlineCodeRe    = regexp.MustCompile("`([^`]+)`")
	boldRe          = regexp.MustCompile(`\*\*(.+?)\*\*`)
	strikethroughRe = regexp.MustCompile(`~~(.+?)~~`)
	linkRe          = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// ApplyInlineFormatting handles inline markdown: `code`, [text](url),
// **bold**, *italic*, and ~~strikethrough~~.
// Should not be applied to code block lines.
func ApplyInlineFormatting(s string) string {
	// Inline code first -- protect contents from further processing.
	s = inlineCodeRe.ReplaceAllStringFunc(s, func(match string) string {
		inner := inlineCodeRe.FindStringSubmatch(match)[1]
		return InlineCodeStyle.Render(inner)
	})

	// Links: [text](url) -> text (url)
	s = linkRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := linkRe.FindStringSubmatch(match)
		return LinkTextStyle.Render(parts[1]) + LinkURLStyle.Render(" ("+parts[2]+")")
	})

	// Strikethrough: ~~text~~
	s = strikethroughRe.ReplaceAllStringFunc(s, func(match string) string {
		inner := strikethroughRe.FindStringSubmatch(match)[1]
		return StrikethroughStyle.Render(inner)
	})

	// Bold: **text** (must come before italic to avoid conflict)
	s = boldRe.ReplaceAllStringFunc(s, func(match string) string {
		inner := boldRe.FindStringSubmatch(match)[1]
		return BoldInlineStyle.Render(inner)
	})

	// Italic: *text*
	s = applyItalic(s)

	return s
}

// applyItalic handles *italic* markers that weren't consumed by bold.
// It manually scans for single * delimiters that aren't adjacent to other *s.
func applyItalic(s string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		// Skip ANSI escape sequences (from already-styled content).
		if s[i] == '\x1b' {
			j := i + 1
			for j < len(s) && s[j] != 'm' {
				j++
			}
			if j < len(s) {
				j++ // include the 'm'
			}
			b.WriteString(s[i:j])
			i = j
			continue
		}

		if s[i] != '*' {
			b.WriteByte(s[i])
			i++
			continue
		}

		// Found a *. Check it's not ** (bold already handled).
		if i+1 < len(s) && s[i+1] == '*' {
			b.WriteByte(s[i])
			i++
			continue
		}

		// Look for the closing *.
		end := strings.Index(s[i+1:], "*")
		if end < 0 {
			b.WriteByte(s[i])
			i++
			continue
		}
		end += i + 1 // absolute position of closing *

		// Make sure closing * isn't part of ** either.
		if end+1 < len(s) && s[end+1] == '*' {
			b.WriteByte(s[i])
			i++
			continue
		}

		inner := s[i+1 : end]
		if len(inner) == 0 {
			b.WriteByte(s[i])
			i++
			continue
		}

		b.WriteString(ItalicInlineStyle.Render(inner))
		i = end + 1
	}
	return b.String()
}

// StripInline removes inline markdown markers, leaving the text a reader
// sees. Used for measuring cell widths and for plain-text exports.
func StripInline(s string) string {
	s = inlineCodeRe.ReplaceAllString(s, "$1")
	s = boldRe.ReplaceAllString(s, "$1")
	s = strikethroughRe.ReplaceAllString(s, "$1")
	s = linkRe.ReplaceAllString(s, "$1 ($2)")
	return s
}

// StripInlineWidth returns the display width of text after stripping
// inline markdown markers.
func StripInlineWidth(s string) int {
	return DisplayWidth(StripInline(s))
}
