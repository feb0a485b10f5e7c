package render

import (
	"strings"
	"testing"

	"github.com/quillchat/quill/internal/tabledetect"
)

func renderPlain(source string, width int) []string {
	return stripAll(Markdown(source, width))
}

// ---------------------------------------------------------------------------
// Block elements
// ---------------------------------------------------------------------------

func TestMarkdown_paragraphs(t *testing.T) {
	got := renderPlain("hello world\n\nsecond paragraph\n", 80)
	want := []string{"hello world", "", "second paragraph"}
	if len(got) != len(want) {
		t.Fatalf("got %d lines %q, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMarkdown_headings(t *testing.T) {
	for _, src := range []string{"# Title\n", "## Title\n", "### Title\n"} {
		got := renderPlain(src, 80)
		if len(got) != 1 || got[0] != "Title" {
			t.Errorf("Markdown(%q) = %q, want [Title]", src, got)
		}
	}
}

func TestMarkdown_horizontalRule(t *testing.T) {
	got := renderPlain("---\n", 80)
	if len(got) != 1 {
		t.Fatalf("got %d lines", len(got))
	}
	if got[0] != strings.Repeat("─", 40) {
		t.Errorf("hr = %q", got[0])
	}
}

func TestMarkdown_blockquote(t *testing.T) {
	got := renderPlain("> quoted text\n", 80)
	if len(got) != 1 || got[0] != "│ quoted text" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdown_bullets(t *testing.T) {
	got := renderPlain("- item one\n  - nested\n", 80)
	want := []string{"• item one", "  • nested"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMarkdown_numberedList(t *testing.T) {
	got := renderPlain("1. first\n2. second\n", 80)
	want := []string{"1. first", "2. second"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMarkdown_minimumWidth(t *testing.T) {
	got := renderPlain("word word word", 5)
	if len(got) != 1 {
		t.Errorf("narrow widths clamp to a readable minimum, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// Tables
// ---------------------------------------------------------------------------

func TestMarkdown_table(t *testing.T) {
	got := renderPlain("| A | B |\n|---|---|\n| x | y |\n", 40)
	if len(got) != 5 {
		t.Fatalf("got %d lines:\n%s", len(got), strings.Join(got, "\n"))
	}
	joined := strings.Join(got, "\n")
	for _, glyph := range []string{"\u250c", "\u2502", "\u251c", "\u2514"} {
		if !strings.Contains(joined, glyph) {
			t.Errorf("missing box glyph %q:\n%s", glyph, joined)
		}
	}
	if strings.Contains(joined, "| A | B |") {
		t.Errorf("raw pipe row leaked through:\n%s", joined)
	}
}

func TestMarkdown_tableWithoutOuterPipes(t *testing.T) {
	got := strings.Join(renderPlain("Col A | Col B\n--- | ---\n1 | 2\n", 60), "\n")
	if !strings.Contains(got, "\u250c") {
		t.Fatalf("bare rows did not render as a table:\n%s", got)
	}
	if !strings.Contains(got, "Col A") || !strings.Contains(got, "2") {
		t.Errorf("cell content missing:\n%s", got)
	}
}

func TestMarkdown_tableAlignmentColonsConsumed(t *testing.T) {
	got := strings.Join(renderPlain("| Left | Right |\n|:-----|------:|\n| a | b |\n", 60), "\n")
	if !strings.Contains(got, "\u250c") {
		t.Fatalf("aligned table did not render as a box:\n%s", got)
	}
	if strings.Contains(got, ":") {
		t.Errorf("alignment colons leaked into output:\n%s", got)
	}
}

func TestMarkdown_tableThenText(t *testing.T) {
	got := renderPlain("| A | B |\n|---|---|\n| x | y |\n\nmore text\n", 40)
	if len(got) != 7 {
		t.Fatalf("got %d lines:\n%s", len(got), strings.Join(got, "\n"))
	}
	if got[5] != "" || got[6] != "more text" {
		t.Errorf("trailing lines = %q, %q", got[5], got[6])
	}
}

func TestMarkdown_mdFencedTableUnwrapped(t *testing.T) {
	got := strings.Join(renderPlain("```md\n| A | B |\n|---|---|\n| x | y |\n```\n", 40), "\n")
	if !strings.Contains(got, "\u250c") {
		t.Fatalf("md-fenced table should render as a box:\n%s", got)
	}
	if strings.Contains(got, "```") {
		t.Errorf("fence markers leaked through:\n%s", got)
	}
}

func TestMarkdown_jsFencedTableStaysCode(t *testing.T) {
	got := strings.Join(renderPlain("```js\n| A | B |\n|---|---|\n```\n", 40), "\n")
	if strings.Contains(got, "\u250c") {
		t.Fatalf("js-fenced pipes must stay raw code:\n%s", got)
	}
	if !strings.Contains(got, "| A | B |") {
		t.Errorf("code content missing:\n%s", got)
	}
}

// ---------------------------------------------------------------------------
// Code blocks
// ---------------------------------------------------------------------------

func TestMarkdown_codeGutter(t *testing.T) {
	got := renderPlain("```go\nx := 1\ny := 2\n```\n", 80)
	if len(got) != 2 {
		t.Fatalf("got %d lines: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "  1 │ ") || !strings.Contains(got[0], "x := 1") {
		t.Errorf("line 1 = %q", got[0])
	}
	if !strings.HasPrefix(got[1], "  2 │ ") || !strings.Contains(got[1], "y := 2") {
		t.Errorf("line 2 = %q", got[1])
	}
}

func TestMarkdown_bareFenceTakesLangFromFirstLine(t *testing.T) {
	got := renderPlain("```\npython\nprint(1)\n```\n", 80)
	if len(got) != 1 {
		t.Fatalf("got %d lines: %q", len(got), got)
	}
	if strings.Contains(got[0], "python") {
		t.Errorf("language hint line should be consumed: %q", got[0])
	}
	if !strings.HasPrefix(got[0], "  1 │ ") || !strings.Contains(got[0], "print(1)") {
		t.Errorf("got %q", got[0])
	}
}

func TestMarkdown_bareFencePlainContent(t *testing.T) {
	got := renderPlain("```\nhello\n```\n", 80)
	if len(got) != 1 || !strings.Contains(got[0], "hello") {
		t.Errorf("got %q", got)
	}
}

// ---------------------------------------------------------------------------
// Streaming property: rendering a prefix yields a prefix
// ---------------------------------------------------------------------------

func TestMarkdown_prefixStability(t *testing.T) {
	sources := []string{
		"# Title\n\npara one two three\n- a\n- b\n> quote\n",
		"text before\n\n| A | B |\n|---|---|\n| x | y |\n",
		"```go\nx := 1\ny := 2\n```\nafter\n",
	}
	for _, src := range sources {
		full := Markdown(src, 40)
		for cut := 0; cut <= len(src); cut++ {
			if cut < len(src) && (cut == 0 || src[cut-1] != '\n') {
				continue
			}
			prefix := src[:cut]
			if SafeCommitPrefix(prefix) != len(prefix) {
				continue // fence still open; rendering is undecided
			}
			if st, _ := tabledetect.ScanSource(prefix); st != tabledetect.HoldbackNone {
				continue // a table may still be forming
			}
			got := Markdown(prefix, 40)
			if len(got) > len(full) {
				t.Fatalf("prefix render longer than full render for %q", prefix)
			}
			for i := range got {
				if got[i] != full[i] {
					t.Errorf("source %q cut %d: line %d = %q, full has %q",
						src, cut, i, got[i], full[i])
				}
			}
		}
	}
}
