// Package render turns markdown source into styled terminal lines.
//
// Rendering is line by line: outside an open fence or table, every
// source line produces its output independently of later lines. The
// streaming pipeline leans on that property (rendering a prefix of the
// source yields a prefix of rendering the whole source), so nothing
// here may look ahead except the two places that define a region: the
// table header/delimiter pair and fence markers. Both of those are kept
// out of the committed prefix by the holdback scan and SafeCommitPrefix.
package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/quillchat/quill/internal/tabledetect"
)

var (
	numberedListRe = regexp.MustCompile(`^(\s*)(\d+)\.\s+(.+)`)
	hrRe           = regexp.MustCompile(`^[-*_]{3,}\s*$`)
)

var knownCodeLangs = map[string]bool{
	"python": true, "py": true, "javascript": true, "js": true, "typescript": true, "ts": true,
	"go": true, "rust": true, "java": true, "c": true, "cpp": true, "c++": true, "csharp": true,
	"cs": true, "json": true, "yaml": true, "yml": true, "bash": true, "sh": true, "shell": true,
	"sql": true, "html": true, "css": true, "xml": true, "markdown": true, "md": true,
}

// Markdown converts markdown source into styled, word-wrapped terminal
// lines at the given width. The function is pure: same source and
// width, same lines, every time.
func Markdown(source string, width int) []string {
	if width < 20 {
		width = 20
	}
	lines := splitLines(UnwrapMarkdownFences(source))
	out := make([]string, 0, len(lines)+8)

	inCode := false
	var fence tabledetect.Fence
	codeLang := ""
	codeLineNo := 0
	firstCodeLinePendingLang := false

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], " \t\r")
		trimmed := strings.TrimSpace(line)

		// --- Code fence content (highest priority) ---
		if inCode {
			if fence.ClosedBy(line) {
				inCode = false
				continue
			}
			if firstCodeLinePendingLang {
				firstCodeLinePendingLang = false
				candidate := strings.ToLower(trimmed)
				if knownCodeLangs[candidate] {
					codeLang = candidate
					continue
				}
			}
			codeLineNo++
			out = append(out, renderCodeLine(codeLang, line, codeLineNo))
			continue
		}

		if f, ok := tabledetect.ParseOpenFence(line); ok {
			inCode = true
			fence = f
			codeLang = strings.ToLower(f.Info)
			firstCodeLinePendingLang = codeLang == ""
			if codeLang == "" {
				codeLang = "text"
			}
			codeLineNo = 0
			continue
		}

		// --- Tables: a header row with a matching delimiter row below ---
		if i+1 < len(lines) && tabledetect.IsHeaderRow(line) &&
			tabledetect.IsDelimiterRow(lines[i+1]) &&
			len(tabledetect.ParseSegments(line)) == len(tabledetect.ParseSegments(lines[i+1])) {
			table, next := CollectTable(lines, i)
			out = append(out, table.Render(width)...)
			i = next - 1
			continue
		}

		if trimmed == "" {
			out = append(out, "")
			continue
		}

		// --- Horizontal rule ---
		if hrRe.MatchString(trimmed) {
			out = append(out, HrStyle.Render(strings.Repeat("─", min(width, 40))))
			continue
		}

		// --- Blockquotes ---
		if strings.HasPrefix(trimmed, "> ") || trimmed == ">" {
			quoteText := strings.TrimPrefix(trimmed, "> ")
			quoteText = strings.TrimPrefix(quoteText, ">")
			for _, wl := range WrapWords(quoteText, max(1, width-4)) {
				out = append(out, BlockquoteStyle.Render("│ ")+ApplyInlineFormatting(wl))
			}
			continue
		}

		// --- Headings ---
		if strings.HasPrefix(trimmed, "### ") || strings.HasPrefix(trimmed, "## ") || strings.HasPrefix(trimmed, "# ") {
			headingText := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			for _, wl := range WrapWords(headingText, width) {
				out = append(out, HeadingStyle.Render(ApplyInlineFormatting(wl)))
			}
			continue
		}

		// --- Bullet lists (supports nesting via indentation) ---
		if indent, item, ok := ParseBulletLine(line); ok {
			indentStr := strings.Repeat(" ", indent)
			wrapped := WrapWords(item, max(1, width-2-indent))
			if len(wrapped) > 0 {
				out = append(out, indentStr+BulletStyle.Render("• ")+ApplyInlineFormatting(wrapped[0]))
				contIndent := indentStr + "  "
				for j := 1; j < len(wrapped); j++ {
					out = append(out, contIndent+ApplyInlineFormatting(wrapped[j]))
				}
			}
			continue
		}

		// --- Numbered lists (supports indentation) ---
		if match := numberedListRe.FindStringSubmatch(line); match != nil {
			leadingSpaces := len(match[1])
			indentStr := strings.Repeat(" ", leadingSpaces)
			prefix := match[2] + ". "
			item := match[3]
			wrapped := WrapWords(item, max(1, width-len(prefix)-leadingSpaces))
			if len(wrapped) > 0 {
				out = append(out, indentStr+BulletStyle.Render(prefix)+ApplyInlineFormatting(wrapped[0]))
				contIndent := indentStr + strings.Repeat(" ", len(prefix))
				for j := 1; j < len(wrapped); j++ {
					out = append(out, contIndent+ApplyInlineFormatting(wrapped[j]))
				}
			}
			continue
		}

		// --- Regular paragraph text ---
		for _, wl := range WrapWords(line, width) {
			out = append(out, ApplyInlineFormatting(wl))
		}
	}

	return out
}

// ParseBulletLine detects a bullet list line (-, +, or *) with optional
// leading whitespace for nesting. Returns the indent level in spaces,
// the item text, and whether it matched.
func ParseBulletLine(line string) (indent int, item string, ok bool) {
	byteOff := 0
	for _, ch := range line {
		if ch == ' ' {
			indent++
		} else if ch == '\t' {
			indent += 2
		} else {
			break
		}
		byteOff++
	}
	rest := line[byteOff:]
	if strings.HasPrefix(rest, "- ") || strings.HasPrefix(rest, "+ ") {
		return indent, strings.TrimSpace(rest[2:]), true
	}
	if strings.HasPrefix(rest, "* ") && !hrRe.MatchString(strings.TrimSpace(rest)) {
		return indent, strings.TrimSpace(rest[2:]), true
	}
	return 0, "", false
}

// renderCodeLine syntax-highlights one code line with Chroma and
// prepends a numbered gutter. Highlighting is per line so an earlier
// line's output never depends on lines after it.
func renderCodeLine(lang, line string, lineNo int) string {
	if lang == "" || lang == "text" {
		lang = "plaintext"
	}
	var highlighted bytes.Buffer
	if err := quick.Highlight(&highlighted, line, lang, "terminal256", "dracula"); err != nil {
		highlighted.Reset()
		if err := quick.Highlight(&highlighted, line, "plaintext", "terminal256", "dracula"); err != nil {
			highlighted.Reset()
			highlighted.WriteString(line)
		}
	}
	text := strings.TrimSuffix(highlighted.String(), "\n")
	gutter := CodeGutterStyle.Render(fmt.Sprintf("%3d", lineNo)) + CodeGutterStyle.Render(" │ ")
	return gutter + text
}
