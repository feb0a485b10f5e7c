package render

import (
	"strings"

	"github.com/quillchat/quill/internal/tabledetect"
)

// UnwrapMarkdownFences rewrites fenced blocks tagged md or markdown
// whose content contains a valid table, dropping the fence markers so
// the content renders as markdown. Every other fence passes through
// verbatim, as does an md fence with no table inside. An unterminated
// md fence at the end of input keeps its opening marker: its rendering
// is undecided until the fence closes.
func UnwrapMarkdownFences(source string) string {
	var out strings.Builder
	out.Grow(len(source))

	var fence tabledetect.Fence
	inFence := false
	candidate := false // md fence buffered for the unwrap decision
	var opening string
	var content strings.Builder

	flushCandidate := func(closeLine string) {
		if tabledetect.ContainsTable(splitLines(content.String())) {
			out.WriteString(content.String())
		} else {
			out.WriteString(opening)
			out.WriteString(content.String())
			out.WriteString(closeLine)
		}
		content.Reset()
	}

	for _, line := range splitInclusive(source) {
		if inFence {
			if fence.ClosedBy(strings.TrimSuffix(line, "\n")) {
				inFence = false
				if candidate {
					flushCandidate(line)
					candidate = false
				} else {
					out.WriteString(line)
				}
				continue
			}
			if candidate {
				content.WriteString(line)
			} else {
				out.WriteString(line)
			}
			continue
		}
		if f, ok := tabledetect.ParseOpenFence(strings.TrimSuffix(line, "\n")); ok {
			fence = f
			inFence = true
			if f.IsMarkdown() {
				candidate = true
				opening = line
			} else {
				out.WriteString(line)
			}
			continue
		}
		out.WriteString(line)
	}

	// Unterminated candidate fence: keep the markers, drop nothing.
	if inFence && candidate {
		out.WriteString(opening)
		out.WriteString(content.String())
	}
	return out.String()
}

// splitInclusive splits source into lines that keep their trailing
// newline, so joining the pieces reproduces the source byte for byte.
func splitInclusive(source string) []string {
	if source == "" {
		return nil
	}
	var lines []string
	start := 0
	for start < len(source) {
		idx := strings.IndexByte(source[start:], '\n')
		if idx < 0 {
			lines = append(lines, source[start:])
			break
		}
		lines = append(lines, source[start:start+idx+1])
		start += idx + 1
	}
	return lines
}

// splitLines splits source on newlines without producing a phantom
// empty line after a trailing newline.
func splitLines(source string) []string {
	segs := strings.Split(source, "\n")
	if len(segs) > 0 && segs[len(segs)-1] == "" {
		segs = segs[:len(segs)-1]
	}
	return segs
}
