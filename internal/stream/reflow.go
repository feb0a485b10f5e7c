package stream

import "github.com/quillchat/quill/internal/render"

// SourceBytesForRenderedCount finds how many source bytes the first
// target rendered lines covered at the given width. It walks newline
// boundaries and keeps the largest prefix whose rendering stays within
// target, so the answer is always a whole number of source lines. A
// source line whose wrapped output straddles the target is not counted;
// its rendered lines re-enter the queue after a reflow.
func SourceBytesForRenderedCount(raw string, width, target int) int {
	if target <= 0 || raw == "" {
		return 0
	}
	best := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\n' {
			continue
		}
		n := len(render.Markdown(raw[:i+1], width))
		if n <= target {
			best = i + 1
		}
		if n >= target {
			break
		}
	}
	return best
}
