// Package tabledetect recognizes markdown pipe-table syntax in raw text.
// It is the single source of truth for what counts as a table row: the
// fence-unwrap pass, the table renderer, and the streaming holdback scan
// all share the segment parsing here so a correctness fix applies to every
// call site at once.
package tabledetect

import (
	"regexp"
	"strings"
)

var delimiterSegRe = regexp.MustCompile(`^:?-+:?$`)

// ParseSegments splits a pipe-delimited row into trimmed cell segments.
// Outer whitespace is dropped, at most one leading and one trailing
// decorative pipe are stripped, and the remainder splits on unescaped
// pipes. An escaped pipe (\|) stays in its segment as a literal |.
// Returns nil unless the line yields at least two segments.
func ParseSegments(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	parts := splitUnescapedPipes(trimmed)
	if len(parts) > 1 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 2 {
		return nil
	}
	segs := make([]string, len(parts))
	for i, p := range parts {
		segs[i] = strings.TrimSpace(p)
	}
	return segs
}

// splitUnescapedPipes splits on | characters not preceded by a backslash.
// The escape is consumed for pipes and kept for anything else.
func splitUnescapedPipes(s string) []string {
	parts := make([]string, 0, 4)
	var b strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			if r != '|' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteByte('\\')
	}
	return append(parts, b.String())
}

// IsCandidateRow reports whether line could be a row of a pipe table:
// it must split into at least two segments, with non-whitespace cell
// content on both sides of at least one pipe. Blank lines and
// single-segment lines are never rows.
func IsCandidateRow(line string) bool {
	segs := ParseSegments(line)
	if segs == nil {
		return false
	}
	nonEmpty := 0
	for _, s := range segs {
		if s != "" {
			nonEmpty++
		}
	}
	return nonEmpty >= 2
}

// IsHeaderRow reports whether line could open a table as its header.
// Any candidate row qualifies, including one whose cells happen to look
// like delimiters; the row after it decides whether a table starts.
func IsHeaderRow(line string) bool {
	return IsCandidateRow(line)
}

// IsDelimiterSegment reports whether a single cell matches the
// header/body separator shape: hyphens with optional alignment colons.
func IsDelimiterSegment(s string) bool {
	return delimiterSegRe.MatchString(s)
}

// IsDelimiterRow reports whether line is a delimiter row: a candidate
// split whose every segment is a delimiter segment.
func IsDelimiterRow(line string) bool {
	segs := ParseSegments(line)
	if segs == nil {
		return false
	}
	for _, s := range segs {
		if !IsDelimiterSegment(s) {
			return false
		}
	}
	return true
}

// FirstTablePair returns the index of the first line that opens a valid
// table: a header row immediately followed by a delimiter row with the
// same segment count. Returns -1 when no such pair exists. A delimiter
// whose segment count differs from its header's invalidates that pair
// only; scanning continues on the next line.
func FirstTablePair(lines []string) int {
	for i := 0; i+1 < len(lines); i++ {
		if !IsHeaderRow(lines[i]) || !IsDelimiterRow(lines[i+1]) {
			continue
		}
		if len(ParseSegments(lines[i])) == len(ParseSegments(lines[i+1])) {
			return i
		}
	}
	return -1
}

// ContainsTable reports whether the given region of text holds a valid
// table. Both detection granularities (fence content and full stream)
// delegate here.
func ContainsTable(lines []string) bool {
	return FirstTablePair(lines) >= 0
}

// StripBlockquote removes leading blockquote markers (">" plus an
// optional following space), repeatedly, so quoted tables are tested on
// their cell content.
func StripBlockquote(line string) string {
	s := strings.TrimLeft(line, " \t")
	for strings.HasPrefix(s, ">") {
		s = strings.TrimPrefix(s, ">")
		s = strings.TrimPrefix(s, " ")
	}
	return s
}
