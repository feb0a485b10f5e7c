package render

import "github.com/charmbracelet/lipgloss"

var (
	BulletStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))
	HeadingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("222")).Bold(true)
	CodeGutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	BoldInlineStyle    = lipgloss.NewStyle().Bold(true)
	ItalicInlineStyle  = lipgloss.NewStyle().Italic(true)
	StrikethroughStyle = lipgloss.NewStyle().Strikethrough(true)
	LinkTextStyle      = lipgloss.NewStyle()
	LinkURLStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	InlineCodeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	HrStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	BlockquoteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	TableBorderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	TableHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
)
