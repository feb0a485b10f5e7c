package export

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/quillchat/quill/internal/render"
)

func TestLastTable(t *testing.T) {
	t.Run("finds a single table", func(t *testing.T) {
		source := "Intro text.\n\n| Name | Role |\n| --- | --- |\n| Ada | Engineer |\n\nOutro."
		table, ok := LastTable(source)
		if !ok {
			t.Fatal("expected a table")
		}
		if len(table.Rows) != 2 {
			t.Fatalf("got %d rows, want 2", len(table.Rows))
		}
		if table.Rows[0][0] != "Name" || table.Rows[1][1] != "Engineer" {
			t.Errorf("rows = %v, want header Name and cell Engineer", table.Rows)
		}
	})

	t.Run("returns the last of several tables", func(t *testing.T) {
		source := "| A | B |\n| - | - |\n| 1 | 2 |\n\ntext\n\n| X | Y |\n| - | - |\n| 9 | 8 |\n"
		table, ok := LastTable(source)
		if !ok {
			t.Fatal("expected a table")
		}
		if table.Rows[0][0] != "X" {
			t.Errorf("header = %q, want %q", table.Rows[0][0], "X")
		}
	})

	t.Run("prose without a table yields false", func(t *testing.T) {
		_, ok := LastTable("just some prose\nwith lines\n")
		if ok {
			t.Error("expected no table")
		}
	})

	t.Run("ignores tables inside code fences", func(t *testing.T) {
		source := "```\n| A | B |\n| - | - |\n```\n"
		_, ok := LastTable(source)
		if ok {
			t.Error("expected fenced table to be ignored")
		}
	})

	t.Run("sees tables inside markdown fences", func(t *testing.T) {
		source := "```markdown\n| A | B |\n| - | - |\n| 1 | 2 |\n```\n"
		table, ok := LastTable(source)
		if !ok {
			t.Fatal("expected unwrapped markdown fence to expose the table")
		}
		if table.Rows[0][0] != "A" {
			t.Errorf("header = %q, want %q", table.Rows[0][0], "A")
		}
	})
}

func TestWriteXLSX(t *testing.T) {
	table := render.Table{Rows: [][]string{
		{"Name", "Role"},
		{"Ada", "Engineer"},
		{"Grace", "**Admiral**"},
	}}

	t.Run("writes a readable spreadsheet", func(t *testing.T) {
		dir := t.TempDir()
		path, err := WriteXLSX(table, dir)
		if err != nil {
			t.Fatalf("WriteXLSX: %v", err)
		}
		if !strings.Contains(path, "quill-table-") || !strings.HasSuffix(path, ".xlsx") {
			t.Errorf("path = %q, want quill-table-*.xlsx", path)
		}

		f, err := excelize.OpenFile(path)
		if err != nil {
			t.Fatalf("reopening %s: %v", path, err)
		}
		defer f.Close()

		got, err := f.GetCellValue("Sheet1", "A1")
		if err != nil {
			t.Fatalf("GetCellValue A1: %v", err)
		}
		if got != "Name" {
			t.Errorf("A1 = %q, want %q", got, "Name")
		}
		got, err = f.GetCellValue("Sheet1", "B3")
		if err != nil {
			t.Fatalf("GetCellValue B3: %v", err)
		}
		// Inline markdown is stripped on export.
		if got != "Admiral" {
			t.Errorf("B3 = %q, want %q", got, "Admiral")
		}
	})

	t.Run("rejects an empty table", func(t *testing.T) {
		if _, err := WriteXLSX(render.Table{}, t.TempDir()); err == nil {
			t.Error("expected error for empty table")
		}
	})
}

func TestTableToXLSX(t *testing.T) {
	t.Run("exports the last table from source", func(t *testing.T) {
		source := "Here:\n\n| City | Pop |\n| --- | --- |\n| Oslo | 0.7M |\n"
		path, err := TableToXLSX(source, t.TempDir())
		if err != nil {
			t.Fatalf("TableToXLSX: %v", err)
		}

		f, err := excelize.OpenFile(path)
		if err != nil {
			t.Fatalf("reopening: %v", err)
		}
		defer f.Close()
		got, err := f.GetCellValue("Sheet1", "A2")
		if err != nil {
			t.Fatalf("GetCellValue: %v", err)
		}
		if got != "Oslo" {
			t.Errorf("A2 = %q, want %q", got, "Oslo")
		}
	})

	t.Run("errors when the source has no table", func(t *testing.T) {
		_, err := TableToXLSX("no tables here", t.TempDir())
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "no table") {
			t.Errorf("error = %q, want mention of no table", err)
		}
	})
}
