package tabledetect

import (
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// SourceScanLines
// ---------------------------------------------------------------------------

func TestSourceScanLines_offsets(t *testing.T) {
	src := "first\nsecond\n\nlast"
	lines := SourceScanLines(src)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	wantStarts := []int{0, 6, 13, 14}
	wantTexts := []string{"first", "second", "", "last"}
	for i := range lines {
		if lines[i].Start != wantStarts[i] {
			t.Errorf("line %d Start = %d, want %d", i, lines[i].Start, wantStarts[i])
		}
		if lines[i].Text != wantTexts[i] {
			t.Errorf("line %d Text = %q, want %q", i, lines[i].Text, wantTexts[i])
		}
		if !lines[i].Enabled {
			t.Errorf("line %d should be enabled", i)
		}
	}
}

func TestSourceScanLines_noTrailingEmptyLine(t *testing.T) {
	lines := SourceScanLines("| A | B |\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Text != "| A | B |" {
		t.Errorf("Text = %q", lines[0].Text)
	}
}

func TestSourceScanLines_fences(t *testing.T) {
	src := strings.Join([]string{
		"before",
		"```sh",
		"| not | a | table |",
		"```",
		"```md",
		"| A | B |",
		"```",
		"after",
	}, "\n")
	lines := SourceScanLines(src)
	if len(lines) != 8 {
		t.Fatalf("expected 8 lines, got %d", len(lines))
	}
	wantEnabled := []bool{true, false, false, false, false, true, false, true}
	for i, want := range wantEnabled {
		if lines[i].Enabled != want {
			t.Errorf("line %d (%q) Enabled = %v, want %v", i, lines[i].Text, lines[i].Enabled, want)
		}
	}
}

func TestSourceScanLines_blockquoteStripped(t *testing.T) {
	lines := SourceScanLines("> | a | b |\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Text != "| a | b |" {
		t.Errorf("Text = %q, want stripped row", lines[0].Text)
	}
}

// ---------------------------------------------------------------------------
// Scan / ScanSource
// ---------------------------------------------------------------------------

func TestScanSource_deltaSequence(t *testing.T) {
	// The canonical streaming order: header, delimiter, body, blank.
	steps := []struct {
		delta      string
		wantState  HoldbackState
		wantOffset int
	}{
		{"| A | B |\n", HoldbackPendingHeader, 0},
		{"|---|---|\n", HoldbackConfirmed, 0},
		{"| x | y |\n", HoldbackConfirmed, 0},
		{"\n", HoldbackNone, 31},
	}
	src := ""
	for i, step := range steps {
		src += step.delta
		state, offset := ScanSource(src)
		if state != step.wantState {
			t.Errorf("step %d: state = %v, want %v", i, state, step.wantState)
		}
		if offset != step.wantOffset {
			t.Errorf("step %d: offset = %d, want %d", i, offset, step.wantOffset)
		}
	}
}

func TestScanSource(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantState  HoldbackState
		wantOffset int // -1 means len(src)
	}{
		{"empty", "", HoldbackNone, -1},
		{"prose only", "hello world\n", HoldbackNone, -1},
		{"trailing header candidate", "intro\n| A | B |\n", HoldbackPendingHeader, 6},
		{"pipe prose released by next line", "Options | are | good\nso choose\n", HoldbackNone, -1},
		{"confirmed holds from header", "intro\n| A | B |\n|---|---|\n| x | y |\n", HoldbackConfirmed, 6},
		{"blank closes table", "| A | B |\n|---|---|\n| x | y |\n\n", HoldbackNone, -1},
		{"prose closes table", "| A | B |\n|---|---|\n| x | y |\ndone\n", HoldbackNone, -1},
		{"second candidate after closed table", "| A | B |\n|---|---|\n\n| C | D |\n", HoldbackPendingHeader, 21},
		{"delimiter mismatch downgrades to pending", "| A | B |\n|---|---|---|\n", HoldbackPendingHeader, 10},
		{"lone trailing delimiter is a header candidate", "text\n|---|---|\n", HoldbackPendingHeader, 5},
		{"non-md fence content never matches", "```sh\n| a | b |\n", HoldbackNone, -1},
		{"fence opener breaks a pending run", "| A | B |\n```rust\n", HoldbackNone, -1},
		{"md fence content matches", "```md\n| A | B |\n|---|---|\n", HoldbackConfirmed, 6},
		{"blockquoted table holds", "> | a | b |\n> |---|---|\n", HoldbackConfirmed, 0},
		{"header after heading", "### Totals\n| A | B |\n", HoldbackPendingHeader, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, offset := ScanSource(tt.src)
			if state != tt.wantState {
				t.Errorf("state = %v, want %v", state, tt.wantState)
			}
			wantOffset := tt.wantOffset
			if wantOffset == -1 {
				wantOffset = len(tt.src)
			}
			if offset != wantOffset {
				t.Errorf("offset = %d, want %d", offset, wantOffset)
			}
		})
	}
}

func TestScan_monotonicOffsets(t *testing.T) {
	// Streaming a fixed table delta by delta must never move the region
	// start backward once lines have been released ahead of it.
	full := "intro line\n\n| A | B |\n|---|---|\n| x | y |\n| z | w |\n\ntail prose\n"
	prevStable := 0
	for i := 1; i <= len(full); i++ {
		if full[i-1] != '\n' {
			continue
		}
		src := full[:i]
		_, offset := ScanSource(src)
		if offset < prevStable {
			t.Fatalf("stable boundary regressed at prefix %d: %d < %d", i, offset, prevStable)
		}
		prevStable = offset
	}
	if _, offset := ScanSource(full); offset != len(full) {
		t.Errorf("final offset = %d, want %d (table closed by blank)", offset, len(full))
	}
}
