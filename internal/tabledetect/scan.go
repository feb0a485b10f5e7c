package tabledetect

import "strings"

// HoldbackState classifies the trailing region of a streaming buffer
// with respect to an in-progress table. It is recomputed from the full
// buffer on every evaluation; nothing here is incremental state.
type HoldbackState int

const (
	// HoldbackNone means no table is in progress at the end of the
	// buffer; everything rendered so far is eligible for commit.
	HoldbackNone HoldbackState = iota
	// HoldbackPendingHeader means the last line could be a table header
	// awaiting its delimiter row.
	HoldbackPendingHeader
	// HoldbackConfirmed means a header+delimiter pair is present in the
	// trailing candidate run; the whole region stays mutable until a
	// blank or non-table line closes it.
	HoldbackConfirmed
)

// String returns the state name for logs and test failures.
func (s HoldbackState) String() string {
	switch s {
	case HoldbackPendingHeader:
		return "pending-header"
	case HoldbackConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// ScanLine is one source line prepared for holdback scanning. Text is
// the blockquote-stripped content for lines that may participate in a
// table; lines inside non-markdown fences and fence marker lines are
// disabled. Start is the line's byte offset in the original source.
type ScanLine struct {
	Text    string
	Start   int
	Enabled bool
}

// SourceScanLines splits source into scan lines with fence awareness.
// Content inside md/markdown fences stays enabled (it will be unwrapped
// to markdown when the fence closes); content inside any other fence is
// disabled; the fence marker lines themselves are disabled. A trailing
// newline does not produce an empty final line.
func SourceScanLines(source string) []ScanLine {
	lines := splitOffsets(source)
	var open Fence
	inFence := false
	inMarkdownFence := false
	for i := range lines {
		raw := lines[i].Text
		if inFence {
			if open.ClosedBy(raw) {
				inFence = false
				lines[i].Enabled = false
				continue
			}
			if inMarkdownFence {
				lines[i].Text = StripBlockquote(raw)
			} else {
				lines[i].Enabled = false
			}
			continue
		}
		if f, ok := ParseOpenFence(raw); ok {
			open = f
			inFence = true
			inMarkdownFence = f.IsMarkdown()
			lines[i].Enabled = false
			continue
		}
		lines[i].Text = StripBlockquote(raw)
	}
	return lines
}

// splitOffsets splits source on newlines, recording each line's byte
// offset. The final line is kept whether or not it is terminated.
func splitOffsets(source string) []ScanLine {
	out := make([]ScanLine, 0, strings.Count(source, "\n")+1)
	start := 0
	for start < len(source) {
		idx := strings.IndexByte(source[start:], '\n')
		if idx < 0 {
			out = append(out, ScanLine{Text: source[start:], Start: start, Enabled: true})
			break
		}
		out = append(out, ScanLine{Text: source[start : start+idx], Start: start, Enabled: true})
		start += idx + 1
	}
	return out
}

// Scan reports the holdback state of the prepared lines plus the index
// of the first line of the in-progress table region (-1 for none). Only
// a run of candidate rows reaching the very last line can hold anything
// back: a blank, disabled, or non-candidate final line closes whatever
// table came before it.
func Scan(lines []ScanLine) (HoldbackState, int) {
	last := len(lines) - 1
	if last < 0 {
		return HoldbackNone, -1
	}
	if !lines[last].Enabled || !IsCandidateRow(lines[last].Text) {
		return HoldbackNone, -1
	}
	start := last
	for start > 0 && lines[start-1].Enabled && IsCandidateRow(lines[start-1].Text) {
		start--
	}
	run := make([]string, 0, last-start+1)
	for i := start; i <= last; i++ {
		run = append(run, lines[i].Text)
	}
	if pair := FirstTablePair(run); pair >= 0 {
		return HoldbackConfirmed, start + pair
	}
	if IsHeaderRow(lines[last].Text) {
		return HoldbackPendingHeader, last
	}
	return HoldbackNone, -1
}

// ScanSource is the full-stream granularity: prepare source and scan it
// in one call, returning the state and the byte offset of the table
// region start (len(source) when no region is in progress).
func ScanSource(source string) (HoldbackState, int) {
	lines := SourceScanLines(source)
	state, idx := Scan(lines)
	if idx < 0 {
		return state, len(source)
	}
	return state, lines[idx].Start
}
