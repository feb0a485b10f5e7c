package tui

import (
	"strings"

	"github.com/quillchat/quill/internal/domain"
	"github.com/quillchat/quill/internal/render"
)

// Cell is one finalized transcript entry. User and assistant cells own
// raw markdown source exclusively and are re-rendered from it on every
// width change; system cells carry pre-styled notice text that renders
// verbatim.
type Cell struct {
	Role   string
	Source string
}

// contentWidth is the width available to cell content after the icon
// gutter and right margin.
func contentWidth(width int) int {
	return max(20, width-4)
}

// FormatCell renders a transcript cell at the given terminal width.
func FormatCell(c Cell, width int) string {
	cw := contentWidth(width)

	switch c.Role {
	case domain.RoleUser:
		wrapped := render.WrapWords(c.Source, cw-2)
		if len(wrapped) == 1 && wrapped[0] == "" {
			return UserIconStyle.Render("● ")
		}
		var b strings.Builder
		b.WriteString(UserIconStyle.Render("● ") + InputStyle.Render(wrapped[0]))
		for i := 1; i < len(wrapped); i++ {
			b.WriteString("\n  " + InputStyle.Render(wrapped[i]))
		}
		return b.String()

	case domain.RoleAssistant:
		return assistantBlock(render.Markdown(c.Source, cw-2), true)

	default:
		return c.Source
	}
}

// assistantBlock arranges rendered reply lines under the reply icon:
// the first line carries the icon, continuations indent to align.
// withIcon is false for the continuation of an already-started block.
func assistantBlock(lines []string, withIcon bool) string {
	if len(lines) == 0 {
		if withIcon {
			return AsstIconStyle.Render("● ")
		}
		return ""
	}
	var b strings.Builder
	for i, line := range lines {
		if strings.HasPrefix(line, "Error:") {
			line = ErrorLineStyle.Render(line)
		}
		switch {
		case i == 0 && withIcon:
			b.WriteString(AsstIconStyle.Render("● ") + line)
		case i == 0:
			b.WriteString("  " + line)
		default:
			b.WriteString("\n  " + line)
		}
	}
	return b.String()
}

// noticeText styles a possibly multi-line notice for a system cell.
func noticeText(text string, style func(...string) string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style(line)
		}
	}
	return strings.Join(lines, "\n")
}

// Notice returns a system cell carrying informational text.
func Notice(text string) Cell {
	return Cell{Role: domain.RoleSystem, Source: noticeText(text, NoticeStyle.Render)}
}

// ErrorNotice returns a system cell carrying error text.
func ErrorNotice(text string) Cell {
	return Cell{Role: domain.RoleSystem, Source: noticeText(text, ErrorLineStyle.Render)}
}

// MetaNotice returns a system cell carrying secondary text such as
// /help and /config listings.
func MetaNotice(text string) Cell {
	return Cell{Role: domain.RoleSystem, Source: noticeText(text, FooterMeta.Render)}
}

// RawNotice returns a system cell rendered without any styling. Used
// for QR codes, where recoloring the half-block glyphs could hurt
// scan contrast.
func RawNotice(text string) Cell {
	return Cell{Role: domain.RoleSystem, Source: text}
}
