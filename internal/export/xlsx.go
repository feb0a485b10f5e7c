// Package export writes transcript tables to spreadsheet files and
// renders QR codes for sharing.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/quillchat/quill/internal/render"
	"github.com/quillchat/quill/internal/tabledetect"
)

// LastTable re-parses the markdown source and returns its last pipe
// table. The walk mirrors the renderer: fenced code is skipped, and a
// table is a header row with a matching delimiter row below.
func LastTable(source string) (render.Table, bool) {
	src := render.UnwrapMarkdownFences(source)
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	var (
		last  render.Table
		found bool
	)
	inCode := false
	var fence tabledetect.Fence
	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t\r")
		if inCode {
			if fence.ClosedBy(line) {
				inCode = false
			}
			continue
		}
		if f, ok := tabledetect.ParseOpenFence(line); ok {
			inCode = true
			fence = f
			continue
		}
		if i+1 < len(lines) && tabledetect.IsHeaderRow(line) &&
			tabledetect.IsDelimiterRow(lines[i+1]) &&
			len(tabledetect.ParseSegments(line)) == len(tabledetect.ParseSegments(lines[i+1])) {
			t, next := render.CollectTable(lines, i)
			last, found = t, true
			i = next - 1
		}
	}
	return last, found
}

// WriteXLSX writes the table to dir as quill-table-<timestamp>.xlsx:
// bold header row, column widths sized to the widest cell. Returns the
// written path.
func WriteXLSX(t render.Table, dir string) (string, error) {
	if len(t.Rows) == 0 {
		return "", fmt.Errorf("table has no rows")
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	cols := t.Columns()
	for r, row := range t.Rows {
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(row) {
				text = render.StripInline(row[c])
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return "", fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, text); err != nil {
				return "", fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	styleID, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("header style: %w", err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(cols, 1)
	if err != nil {
		return "", fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, styleID); err != nil {
		return "", fmt.Errorf("style header: %w", err)
	}

	for c := 0; c < cols; c++ {
		w := 8
		for _, row := range t.Rows {
			if c < len(row) {
				if cw := render.DisplayWidth(render.StripInline(row[c])); cw > w {
					w = cw
				}
			}
		}
		if w > 60 {
			w = 60
		}
		name, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return "", fmt.Errorf("column name: %w", err)
		}
		if err := f.SetColWidth(sheet, name, name, float64(w+2)); err != nil {
			return "", fmt.Errorf("set column width: %w", err)
		}
	}

	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, fmt.Sprintf("quill-table-%s.xlsx", time.Now().Format("20060102-150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	return path, nil
}

// TableToXLSX exports the last table found in source.
func TableToXLSX(source, dir string) (string, error) {
	t, ok := LastTable(source)
	if !ok {
		return "", fmt.Errorf("no table found in the transcript")
	}
	return WriteXLSX(t, dir)
}
