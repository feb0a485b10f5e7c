package render

import (
	"strings"

	"github.com/quillchat/quill/internal/tabledetect"
)

// SafeCommitPrefix returns the byte length of the longest prefix of
// source whose rendering can no longer change as more text arrives.
// Lines render independently, so normally the whole source is safe; the
// one construct whose rendering stays open-ended is an unterminated
// md/markdown fence, because whether its markers survive depends on
// content that has not arrived yet. For those the prefix backs up to
// the start of the fence's opening line.
func SafeCommitPrefix(source string) int {
	var fence tabledetect.Fence
	inFence := false
	fenceStart := 0

	offset := 0
	for offset < len(source) {
		end := strings.IndexByte(source[offset:], '\n')
		lineEnd := len(source)
		if end >= 0 {
			lineEnd = offset + end
		}
		line := source[offset:lineEnd]
		if inFence {
			if fence.ClosedBy(line) {
				inFence = false
			}
		} else if f, ok := tabledetect.ParseOpenFence(line); ok {
			fence = f
			inFence = true
			fenceStart = offset
		}
		if end < 0 {
			break
		}
		offset = lineEnd + 1
	}

	if inFence && fence.IsMarkdown() {
		return fenceStart
	}
	return len(source)
}
