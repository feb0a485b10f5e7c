package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// DisplayWidth returns the number of terminal columns s occupies,
// counting wide runes properly and ignoring ANSI escape sequences.
func DisplayWidth(s string) int {
	if strings.ContainsRune(s, '\x1b') {
		return lipgloss.Width(s)
	}
	return runewidth.StringWidth(s)
}

// WrapWords splits s into lines that fit within width display columns,
// breaking at word boundaries. Words wider than width are hard-broken.
func WrapWords(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return []string{""}
	}
	lines := make([]string, 0, 8)
	cur := ""
	curWidth := 0
	for _, word := range parts {
		w := DisplayWidth(word)
		if cur != "" && curWidth+1+w <= width {
			cur += " " + word
			curWidth += 1 + w
			continue
		}
		if cur == "" && w <= width {
			cur = word
			curWidth = w
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
			curWidth = 0
		}
		for DisplayWidth(word) > width {
			head := TruncateToWidth(word, width)
			if head == "" {
				break
			}
			lines = append(lines, head)
			word = word[len(head):]
		}
		cur = word
		curWidth = DisplayWidth(word)
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// TruncateToWidth truncates s to fit within maxWidth display columns,
// handling multi-byte characters safely.
func TruncateToWidth(s string, maxWidth int) string {
	if DisplayWidth(s) <= maxWidth {
		return s
	}
	runes := []rune(s)
	for i := len(runes); i > 0; i-- {
		candidate := string(runes[:i])
		if DisplayWidth(candidate) <= maxWidth {
			return candidate
		}
	}
	return ""
}

// PadToWidth right-pads s with spaces to exactly width display columns.
// Content wider than width is returned unchanged.
func PadToWidth(s string, width int) string {
	gap := width - DisplayWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
