package tui

import "github.com/charmbracelet/lipgloss"

// Chrome styles only. Everything inside rendered markdown (headings,
// tables, inline spans) is styled by the render package.
var (
	WelcomeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	UserIconStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	AsstIconStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	PromptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("183"))
	InputStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	CursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	ThinkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	FooterHead   = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	FooterTokens = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))
	FooterMeta   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	ErrorLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	NoticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))

	CompletionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	CompletionSelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("62"))
)
