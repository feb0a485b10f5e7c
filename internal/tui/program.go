package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Prog holds a reference to the running Bubble Tea program so that
// agent event callbacks (which execute on the agent's goroutine) can
// call Prog.Send() to deliver stream events into the UI loop.
var Prog *tea.Program

// SetProgram sets the global Prog variable.
func SetProgram(p *tea.Program) {
	Prog = p
}
