package export

import (
	"strings"
	"testing"
)

func TestQRLines(t *testing.T) {
	t.Run("renders uniform half-block lines", func(t *testing.T) {
		lines, err := QRLines("https://example.com/quill-table-20260825.xlsx")
		if err != nil {
			t.Fatalf("QRLines: %v", err)
		}
		if len(lines) < 10 {
			t.Fatalf("got %d lines, want at least 10", len(lines))
		}
		width := len([]rune(lines[0]))
		for i, ln := range lines {
			if got := len([]rune(ln)); got != width {
				t.Errorf("line %d width = %d, want %d", i, got, width)
			}
			for _, r := range ln {
				switch r {
				case ' ', '█', '▀', '▄':
				default:
					t.Fatalf("line %d contains unexpected rune %q", i, r)
				}
			}
		}
	})

	t.Run("rejects empty text", func(t *testing.T) {
		if _, err := QRLines("   "); err == nil {
			t.Error("expected error for blank text")
		}
	})

	t.Run("rejects text beyond QR capacity", func(t *testing.T) {
		if _, err := QRLines(strings.Repeat("a", 4000)); err == nil {
			t.Error("expected error for oversized payload")
		}
	})
}
