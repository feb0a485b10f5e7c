package tabledetect

import "strings"

// Fence describes an open code fence.
type Fence struct {
	Marker byte   // '`' or '~'
	Count  int    // length of the opening marker run
	Info   string // first word of the info string, original case
}

// IsMarkdown reports whether the fence's info string marks its content
// as literal markdown.
func (f Fence) IsMarkdown() bool {
	return strings.EqualFold(f.Info, "md") || strings.EqualFold(f.Info, "markdown")
}

// ParseOpenFence parses a fence opener: up to three leading spaces, a
// run of at least three identical ` or ~ characters, then an optional
// info string. Returns ok=false for anything else. Backtick fences
// whose info string contains a backtick are inline code, not fences.
func ParseOpenFence(line string) (Fence, bool) {
	rest, ok := trimFenceIndent(line)
	if !ok {
		return Fence{}, false
	}
	if len(rest) == 0 {
		return Fence{}, false
	}
	marker := rest[0]
	if marker != '`' && marker != '~' {
		return Fence{}, false
	}
	count := 0
	for count < len(rest) && rest[count] == marker {
		count++
	}
	if count < 3 {
		return Fence{}, false
	}
	info := strings.TrimSpace(rest[count:])
	if marker == '`' && strings.ContainsRune(info, '`') {
		return Fence{}, false
	}
	if fields := strings.Fields(info); len(fields) > 0 {
		info = fields[0]
	}
	return Fence{Marker: marker, Count: count, Info: info}, true
}

// ClosedBy reports whether line closes the fence: the same marker
// repeated at least as many times as the opener, with nothing else on
// the line.
func (f Fence) ClosedBy(line string) bool {
	rest, ok := trimFenceIndent(line)
	if !ok {
		return false
	}
	count := 0
	for count < len(rest) && rest[count] == f.Marker {
		count++
	}
	if count < f.Count {
		return false
	}
	return strings.TrimSpace(rest[count:]) == ""
}

// trimFenceIndent strips up to three leading spaces; deeper indentation
// is indented code, not a fence.
func trimFenceIndent(line string) (string, bool) {
	spaces := 0
	for spaces < len(line) && line[spaces] == ' ' {
		spaces++
	}
	if spaces > 3 {
		return "", false
	}
	return line[spaces:], true
}
