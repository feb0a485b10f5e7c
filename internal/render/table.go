package render

import (
	"strings"

	"github.com/quillchat/quill/internal/tabledetect"
)

// Narrative columns shrink toward this floor before structured columns
// give up anything; it keeps common prose words from breaking mid-word.
const narrativeFloor = 12

// cellPad is one space on each side of cell content.
const cellPad = 2

// ColumnClass tells the shrink algorithm which columns hold prose
// (reflow well) versus identifiers and numbers (do not).
type ColumnClass int

const (
	Structured ColumnClass = iota
	Narrative
)

// String returns the class name for test failures.
func (c ColumnClass) String() string {
	if c == Narrative {
		return "narrative"
	}
	return "structured"
}

// ColumnSpec carries the derived layout facts for one table column.
type ColumnSpec struct {
	Class        ColumnClass
	ContentWidth int // widest rendered cell, pre-wrap
	TokenWidth   int // widest atomic token; structured shrink floor
	Alloc        int // final allocated width
}

// Table is a parsed pipe table. Rows[0] is the header; the delimiter row
// is consumed during parsing and survives only in Raw, which keeps the
// original source lines for the plain-text fallback.
type Table struct {
	Rows [][]string
	Raw  []string
}

// Columns returns the column count: the max cell count across all rows.
// Short rows render their missing trailing cells empty.
func (t Table) Columns() int {
	cols := 0
	for _, row := range t.Rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return cols
}

// CollectTable parses a table starting at lines[start], which the caller
// has already verified to be a header row followed by a matching
// delimiter row. Body rows are consumed until the first blank or
// non-candidate line. Returns the table and the index just past it.
func CollectTable(lines []string, start int) (Table, int) {
	t := Table{
		Rows: [][]string{tabledetect.ParseSegments(lines[start])},
		Raw:  []string{lines[start], lines[start+1]},
	}
	next := start + 2
	for next < len(lines) && tabledetect.IsCandidateRow(lines[next]) {
		t.Rows = append(t.Rows, tabledetect.ParseSegments(lines[next]))
		t.Raw = append(t.Raw, lines[next])
		next++
	}
	return t, next
}

// ColumnSpecs measures and classifies every column. A column is
// Narrative when its cells average at least 4 words or at least 28
// display columns; header and empty cells count toward the average.
func (t Table) ColumnSpecs() []ColumnSpec {
	cols := t.Columns()
	specs := make([]ColumnSpec, cols)
	for c := 0; c < cols; c++ {
		words, chars := 0, 0
		for _, row := range t.Rows {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			plain := StripInline(cell)
			chars += DisplayWidth(plain)
			for _, tok := range strings.Fields(plain) {
				words++
				if w := DisplayWidth(tok); w > specs[c].TokenWidth {
					specs[c].TokenWidth = w
				}
			}
			if w := DisplayWidth(plain); w > specs[c].ContentWidth {
				specs[c].ContentWidth = w
			}
		}
		n := len(t.Rows)
		if n > 0 && (words >= 4*n || chars >= 28*n) {
			specs[c].Class = Narrative
		}
		if specs[c].TokenWidth > specs[c].ContentWidth {
			specs[c].TokenWidth = specs[c].ContentWidth
		}
		specs[c].Alloc = specs[c].ContentWidth
	}
	return specs
}

// allocateWidths shrinks columns to fit width. Narrative columns give
// ground first, proportionally to how far they sit above the narrative
// floor; structured columns shrink toward their widest token only after
// every narrative column is at its floor; as a last resort everything
// shrinks toward one column. Returns false when not even one-column
// cells fit, in which case the caller falls back to plain text.
func allocateWidths(specs []ColumnSpec, width int) bool {
	cols := len(specs)
	avail := width - (cols + 1 + cols*cellPad)
	if avail < cols {
		return false
	}
	total := 0
	for i := range specs {
		total += specs[i].Alloc
	}
	if total <= avail {
		return true
	}

	floors := make([]int, cols)
	var narrative, structured, all []int
	for i := range specs {
		all = append(all, i)
		if specs[i].Class == Narrative {
			narrative = append(narrative, i)
		} else {
			structured = append(structured, i)
		}
	}

	// Pass 1: narrative toward the floor.
	for _, i := range narrative {
		floors[i] = min(narrativeFloor, specs[i].ContentWidth)
	}
	need := total - avail
	need = reduceProportional(specs, narrative, floors, need)
	if need <= 0 {
		return true
	}

	// Pass 2: structured toward their widest token.
	for _, i := range structured {
		floors[i] = max(1, specs[i].TokenWidth)
	}
	need = reduceProportional(specs, structured, floors, need)
	if need <= 0 {
		return true
	}

	// Last resort: everything toward one column.
	for i := range floors {
		floors[i] = 1
	}
	need = reduceProportional(specs, all, floors, need)
	return need <= 0
}

// reduceProportional takes need columns away from the eligible columns,
// each in proportion to how far it sits above its floor. Returns the
// unsatisfied remainder.
func reduceProportional(specs []ColumnSpec, eligible []int, floors []int, need int) int {
	if need <= 0 {
		return need
	}
	slack := 0
	for _, i := range eligible {
		if specs[i].Alloc > floors[i] {
			slack += specs[i].Alloc - floors[i]
		}
	}
	if slack <= 0 {
		return need
	}
	if need >= slack {
		for _, i := range eligible {
			if specs[i].Alloc > floors[i] {
				specs[i].Alloc = floors[i]
			}
		}
		return need - slack
	}
	remaining := need
	for _, i := range eligible {
		excess := specs[i].Alloc - floors[i]
		if excess <= 0 {
			continue
		}
		cut := need * excess / slack
		specs[i].Alloc -= cut
		remaining -= cut
	}
	// Integer division leaves a few columns to trim; take from the
	// widest eligible column still above its floor.
	for remaining > 0 {
		best := -1
		for _, i := range eligible {
			if specs[i].Alloc > floors[i] && (best < 0 || specs[i].Alloc > specs[best].Alloc) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		specs[best].Alloc--
		remaining--
	}
	return remaining
}

// Render lays the table out at the given width and draws it with
// box-drawing borders, or falls back to the original pipe rows as plain
// wrapped text when no allocation fits. Cell content is never
// truncated: cells wider than their column wrap onto continuation
// lines.
func (t Table) Render(width int) []string {
	cols := t.Columns()
	if cols == 0 || len(t.Rows) == 0 {
		return nil
	}
	specs := t.ColumnSpecs()
	if !allocateWidths(specs, width) {
		return t.renderFallback(width)
	}
	widths := make([]int, cols)
	for i := range specs {
		widths[i] = specs[i].Alloc
	}

	top := buildBorder("┌", "┬", "┐", widths)
	mid := buildBorder("├", "┼", "┤", widths)
	bot := buildBorder("└", "┴", "┘", widths)

	out := make([]string, 0, len(t.Rows)+4)
	out = append(out, TableBorderStyle.Render(top))
	out = append(out, renderRowLines(t.Rows[0], widths, true)...)
	out = append(out, TableBorderStyle.Render(mid))
	for _, row := range t.Rows[1:] {
		out = append(out, renderRowLines(row, widths, false)...)
	}
	out = append(out, TableBorderStyle.Render(bot))
	return out
}

// renderFallback emits the original pipe-delimited rows word-wrapped at
// the available width, with no borders.
func (t Table) renderFallback(width int) []string {
	out := make([]string, 0, len(t.Raw))
	for _, raw := range t.Raw {
		out = append(out, WrapWords(strings.TrimSpace(raw), width)...)
	}
	return out
}

// renderRowLines renders one logical row as one or more physical lines.
// Each cell wraps into its column; the row is as tall as its tallest
// cell and shorter cells pad with blanks on continuation lines. Inline
// markup is applied before wrapping so column widths, which are
// measured on the displayed text, line up with what actually wraps.
func renderRowLines(cells []string, widths []int, header bool) []string {
	wrapped := make([][]string, len(widths))
	height := 1
	for c := range widths {
		cell := ""
		if c < len(cells) {
			cell = cells[c]
		}
		if header {
			// The header style already applies bold; keep the markers out.
			cell = boldRe.ReplaceAllString(cell, "$1")
		} else {
			cell = ApplyInlineFormatting(cell)
		}
		wrapped[c] = WrapWords(cell, widths[c])
		if len(wrapped[c]) > height {
			height = len(wrapped[c])
		}
	}

	bar := TableBorderStyle.Render("│")
	out := make([]string, 0, height)
	for lineNo := 0; lineNo < height; lineNo++ {
		var b strings.Builder
		b.WriteString(bar)
		for c := range widths {
			piece := ""
			if lineNo < len(wrapped[c]) {
				piece = wrapped[c][lineNo]
			}
			if header {
				piece = TableHeaderStyle.Render(piece)
			}
			pad := widths[c] - DisplayWidth(piece)
			if pad < 0 {
				pad = 0
			}
			b.WriteString(" " + piece + strings.Repeat(" ", pad) + " ")
			b.WriteString(bar)
		}
		out = append(out, b.String())
	}
	return out
}

// buildBorder constructs a border line using box-drawing characters.
func buildBorder(left, mid, right string, widths []int) string {
	var b strings.Builder
	b.WriteString(left)
	for i, w := range widths {
		b.WriteString(strings.Repeat("─", w+cellPad))
		if i < len(widths)-1 {
			b.WriteString(mid)
		}
	}
	b.WriteString(right)
	return b.String()
}
