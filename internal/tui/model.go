package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quillchat/quill/internal/agent"
	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/domain"
	"github.com/quillchat/quill/internal/export"
	"github.com/quillchat/quill/internal/extract"
	"github.com/quillchat/quill/internal/provider"
	"github.com/quillchat/quill/internal/render"
	"github.com/quillchat/quill/internal/store"
	"github.com/quillchat/quill/internal/stream"
)

// ---------------------------------------------------------------------------
// Bubble Tea message types
// ---------------------------------------------------------------------------

// StreamDeltaMsg carries one streaming text delta from the agent.
type StreamDeltaMsg struct {
	Text string
}

// TurnDoneMsg signals that the turn finished and the reply is persisted.
type TurnDoneMsg struct {
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// StreamErrorMsg carries an unrecoverable turn error.
type StreamErrorMsg struct {
	Err error
}

// RetryingMsg signals that the agent is waiting out a rate limit or a
// dropped connection.
type RetryingMsg struct {
	Attempt int
	Message string
}

// TitledMsg signals that the session was auto-titled.
type TitledMsg struct {
	Title string
}

// SessionPickerMsg delivers sessions for the Ctrl+R picker.
type SessionPickerMsg struct {
	Sessions []domain.Session
	Err      error
}

// sessionLoadedMsg delivers a switched session with its replayed history.
type sessionLoadedMsg struct {
	sess *domain.Session
	msgs []domain.TranscriptMessage
	err  error
}

// attachStagedMsg delivers attachments staged for the next message.
type attachStagedMsg struct {
	atts []domain.Attachment
	err  error
}

// exportDoneMsg reports the result of a table export.
type exportDoneMsg struct {
	path string
	err  error
}

// commitTickMsg paces the release of rendered lines while streaming.
type commitTickMsg struct{}

// resizeSettledMsg fires once a resize burst has gone quiet. The seq
// guards against timers from an earlier burst.
type resizeSettledMsg struct {
	seq int
}

const (
	// commitTickInterval is the cadence of the line release animation.
	commitTickInterval = 35 * time.Millisecond
	// resizeSettleDelay batches a resize burst into one reflow.
	resizeSettleDelay = 150 * time.Millisecond
)

// ---------------------------------------------------------------------------
// Bubble Tea model
// ---------------------------------------------------------------------------

// Model is the Bubble Tea model for the TUI. The transcript lives in a
// viewport whose cells re-render from raw markdown source on width
// changes; while a reply streams, the live block below the finalized
// cells is driven by the holdback controller.
type Model struct {
	width   int
	height  int
	version string

	vp      viewport.Model
	vpReady bool

	input            string
	inputCursor      int
	history          []string
	historyIdx       int
	historyDraft     string
	lastKeypressTime time.Time

	thinking  bool
	streaming bool
	status    string
	spinner   spinner.Model

	cells     []Cell
	cellCache []string

	ctl *stream.Controller

	completionOn  bool
	completions   []string
	completionIdx int

	picker       *SessionPicker
	configPicker *ConfigPicker

	attachments    []domain.Attachment
	lastExportPath string

	resizeSeq int

	lastInputTokens  int
	lastOutputTokens int

	resuming bool

	Agent  *agent.Service
	Store  *store.Store
	Prefs  config.Preferences
	Log    *config.Logger
	APIKey string
}

// InitialModel constructs the TUI model around a ready agent service.
func InitialModel(svc *agent.Service, version string, st *store.Store, prefs config.Preferences, log *config.Logger, apiKey string, resuming bool) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	m := Model{
		version:    version,
		spinner:    sp,
		historyIdx: -1,
		resuming:   resuming,
		Agent:      svc,
		Store:      st,
		Prefs:      prefs,
		Log:        log,
		APIKey:     apiKey,
	}
	if !resuming {
		m.cells = []Cell{RawNotice(WelcomeStyle.Render("Welcome to quill. One prompt away from answers."))}
	}
	return m
}

// Init starts the spinner and, when resuming, loads session history.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.resuming {
		cmds = append(cmds, m.loadSessionHistory())
	}
	return tea.Batch(cmds...)
}

// loadSessionHistory replays persisted messages into transcript cells.
func (m Model) loadSessionHistory() tea.Cmd {
	svc := m.Agent
	return func() tea.Msg {
		sess := svc.Session()
		if sess == nil {
			return sessionLoadedMsg{err: fmt.Errorf("no session to resume")}
		}
		if err := svc.Resume(); err != nil {
			return sessionLoadedMsg{sess: sess, err: err}
		}
		return sessionLoadedMsg{sess: sess, msgs: svc.Messages()}
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case resizeSettledMsg:
		if msg.seq != m.resizeSeq {
			return m, nil
		}
		m.reflowTranscript()
		return m, nil

	case tea.KeyMsg:
		next, cmd := m.handleKey(msg)
		// Chrome height depends on input wrap count, so resync after
		// every keystroke.
		if nm, ok := next.(Model); ok && nm.vpReady {
			nm.refreshViewport(false)
			return nm, cmd
		}
		return next, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd

	case PasteMsg:
		return m.handlePaste(msg)

	case ClipboardWriteMsg:
		return m.handleClipboardWrite(msg)

	case StreamDeltaMsg:
		return m.handleStreamDelta(msg)

	case commitTickMsg:
		if m.ctl == nil || m.ctl.Finished() {
			return m, nil
		}
		m.ctl.OnCommitTick()
		m.refreshViewport(false)
		return m, commitTick()

	case TurnDoneMsg:
		return m.handleTurnDone(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case RetryingMsg:
		m.status = msg.Message
		m.Log.Printf("tui: retrying: %s", msg.Message)
		return m, nil

	case TitledMsg:
		// The agent already set the title on the shared session; the
		// footer picks it up on the next render.
		m.Log.Printf("tui: session titled: %s", msg.Title)
		return m, nil

	case sessionLoadedMsg:
		return m.handleSessionLoaded(msg)

	case SessionPickerMsg:
		if msg.Err != nil {
			return m.pushError("Listing sessions: " + msg.Err.Error())
		}
		m.picker = NewSessionPicker(msg.Sessions)
		return m, nil

	case attachStagedMsg:
		return m.handleAttachStaged(msg)

	case exportDoneMsg:
		return m.handleExportDone(msg)

	case spinner.TickMsg:
		if m.thinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m, nil
}

// handleResize applies the new frame immediately and schedules the
// settled reflow. Cell re-rendering waits for the burst to go quiet so
// a drag does not re-render the transcript on every intermediate size.
func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	if !m.vpReady {
		m.vp = viewport.New(msg.Width, max(3, msg.Height-4))
		m.vpReady = true
		m.refreshViewport(true)
		return m, nil
	}
	m.vp.Width = msg.Width
	m.vp.Height = m.viewportHeight()
	m.resizeSeq++
	seq := m.resizeSeq
	return m, tea.Tick(resizeSettleDelay, func(time.Time) tea.Msg {
		return resizeSettledMsg{seq: seq}
	})
}

// reflowTranscript re-renders every cell at the settled width and
// remaps the in-flight stream to it.
func (m *Model) reflowTranscript() {
	m.cellCache = nil
	if m.ctl != nil && !m.ctl.Finished() {
		m.ctl.SetWidth(contentWidth(m.width) - 2)
	}
	m.refreshViewport(true)
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

// View renders the full-screen frame: transcript viewport on top,
// status line, prompt, completion menu, and footer below.
func (m Model) View() string {
	if m.picker.IsActive() {
		return m.picker.View(m.width)
	}
	if m.configPicker.IsActive() {
		return m.configPicker.View(m.width)
	}
	if !m.vpReady {
		return ""
	}
	return m.vp.View() + "\n" + m.renderChrome()
}

// renderChrome renders everything below the transcript. The first line
// is reserved for the spinner so toggling it does not shift the prompt.
func (m Model) renderChrome() string {
	var b strings.Builder

	if m.thinking {
		label := m.spinner.View()
		switch {
		case m.status != "":
			label += " " + m.status
		case !m.streaming:
			label += " Thinking..."
		}
		b.WriteString(ThinkingStyle.Render(label))
	}
	b.WriteString("\n")

	availWidth := max(10, m.width-2)
	inputLines := strings.Split(withInlineCursor(m.input, m.inputCursor), "\n")
	first := true
	for _, line := range inputLines {
		for _, wl := range hardWrapLine(line, availWidth) {
			if first {
				b.WriteString(PromptStyle.Render("❯ ") + InputStyle.Render(wl))
				first = false
			} else {
				b.WriteString("\n" + PromptStyle.Render("  ") + InputStyle.Render(wl))
			}
		}
	}

	if m.completionOn && len(m.completions) > 0 {
		b.WriteString("\n")
		b.WriteString(RenderCompletionMenu(m.completions, m.completionIdx, max(40, m.width)))
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderFooter() string {
	var b strings.Builder
	footerParts := []string{fmt.Sprintf("quill %s", m.version)}
	if m.Prefs.Model != "" {
		footerParts = append(footerParts, m.Prefs.Model)
	}
	if m.ctl != nil && m.ctl.QueuedLen() > 0 {
		footerParts = append(footerParts, fmt.Sprintf("queued: %d", m.ctl.QueuedLen()))
	}
	b.WriteString(FooterHead.Render(strings.Join(footerParts, " · ")))
	if m.Prefs.FooterTokens && m.Agent != nil {
		b.WriteString("\n")
		inTok, outTok := m.Agent.TokenTotals()
		tokenStr := fmt.Sprintf("   session tokens: %.1fk", float64(inTok+outTok)/1000.0)
		if m.Prefs.FooterCost {
			modelID := m.Agent.ModelID()
			sessionCost := provider.ModelCost(modelID, inTok, outTok)
			turnCost := provider.ModelCost(modelID, m.lastInputTokens, m.lastOutputTokens)
			if sessionCost > 0 {
				tokenStr += fmt.Sprintf(" · session $%.4f · last turn $%.4f", sessionCost, turnCost)
			}
		}
		b.WriteString(FooterTokens.Render(tokenStr))
	}
	if m.Prefs.FooterSession && m.Agent != nil {
		if sess := m.Agent.Session(); sess != nil {
			b.WriteString("\n")
			b.WriteString(FooterMeta.Render("   session: " + sess.DisplayTitle()))
		}
	}
	if m.Prefs.FooterKeybindings {
		b.WriteString("\n")
		b.WriteString(FooterMeta.Render("   Ctrl+J newline · Ctrl+R sessions · Ctrl+Y copy reply · PgUp/PgDn scroll"))
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Key handler
// ---------------------------------------------------------------------------

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Route to overlays when active.
	if m.picker.IsActive() {
		return m.handlePickerKey(msg)
	}
	if m.configPicker.IsActive() {
		return m.handleConfigPickerKey(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		if m.completionOn {
			m.dismissCompletions()
			return m, nil
		}
		if m.thinking {
			m.abortTurn()
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyTab:
		if m.thinking {
			return m, nil
		}
		if strings.HasPrefix(m.input, "/") {
			if !m.completionOn {
				m.completions = ComputeCompletions(m.input, nil)
				if len(m.completions) > 0 {
					m.completionOn = true
					m.completionIdx = 0
					m.setInput(m.completions[0])
				}
			} else if len(m.completions) > 0 {
				m.completionIdx = (m.completionIdx + 1) % len(m.completions)
				m.setInput(m.completions[m.completionIdx])
			}
		}
		return m, nil

	case tea.KeyShiftTab:
		if m.thinking {
			return m, nil
		}
		if m.completionOn && len(m.completions) > 0 {
			m.completionIdx = (m.completionIdx - 1 + len(m.completions)) % len(m.completions)
			m.setInput(m.completions[m.completionIdx])
		}
		return m, nil

	case tea.KeyCtrlJ:
		if !m.thinking {
			m.dismissCompletions()
			m.insertInputAtCursor("\n")
			m.resetHistory()
		}
		return m, nil

	case tea.KeyEnter:
		if m.thinking {
			return m, nil
		}
		// Paste detection: bracketed paste flag OR rapid keystrokes
		// (< 5ms) indicate pasted text; treat Enter as a literal
		// newline, not submit.
		now := time.Now()
		isPaste := msg.Paste || (!m.lastKeypressTime.IsZero() && now.Sub(m.lastKeypressTime) < 5*time.Millisecond)
		m.lastKeypressTime = now
		if isPaste {
			m.insertInputAtCursor("\n")
			return m, nil
		}
		if m.completionOn {
			selected := m.input
			m.dismissCompletions()
			if CommandExpectsArgs(selected) {
				m.setInput(selected + " ")
				return m, nil
			}
			m.setInput(selected)
		}
		trimmed := strings.TrimSpace(m.input)
		if trimmed == "" {
			m.setInput("")
			return m, nil
		}
		return m.submit(trimmed)

	case tea.KeyUp:
		if !m.thinking {
			m.dismissCompletions()
			m.browseHistoryBack()
		}
		return m, nil

	case tea.KeyDown:
		if !m.thinking {
			m.dismissCompletions()
			m.browseHistoryForward()
		}
		return m, nil

	case tea.KeyLeft:
		if !m.thinking {
			m.moveInputCursor(-1)
		}
		return m, nil

	case tea.KeyRight:
		if !m.thinking {
			m.moveInputCursor(1)
		}
		return m, nil

	case tea.KeyHome, tea.KeyCtrlA:
		if !m.thinking {
			m.moveInputCursorToStart()
		}
		return m, nil

	case tea.KeyEnd, tea.KeyCtrlE:
		if !m.thinking {
			m.moveInputCursorToEnd()
		}
		return m, nil

	case tea.KeyBackspace:
		if !m.thinking {
			m.dismissCompletions()
			if m.deleteInputBeforeCursor() {
				m.resetHistory()
			}
		}
		return m, nil

	case tea.KeyDelete:
		if !m.thinking {
			m.dismissCompletions()
			if m.deleteInputAtCursor() {
				m.resetHistory()
			}
		}
		return m, nil

	case tea.KeyPgUp:
		m.vp.ViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.vp.ViewDown()
		return m, nil

	case tea.KeySpace:
		// A lone space arrives as KeySpace, not KeyRunes.
		if !m.thinking {
			m.dismissCompletions()
			m.insertInputAtCursor(" ")
			m.resetHistory()
			m.lastKeypressTime = time.Now()
		}
		return m, nil

	case tea.KeyCtrlV, tea.KeyInsert:
		if m.thinking {
			return m, nil
		}
		m.dismissCompletions()
		return m, ReadClipboardCmd()

	case tea.KeyCtrlY:
		return m, WriteClipboardCmd(m.lastAssistantSource())

	case tea.KeyCtrlK:
		return m, WriteClipboardCmd(m.plainTranscript())

	case tea.KeyCtrlR:
		if !m.thinking {
			return m, m.openSessionPicker()
		}
		return m, nil

	default:
		if !m.thinking {
			m.dismissCompletions()
			if msg.Paste && len(msg.Runes) > 0 {
				m.insertInputAtCursor(filterNulls(msg.Runes))
				m.resetHistory()
				m.lastKeypressTime = time.Now()
			} else if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
				m.insertInputAtCursor(filterNulls(msg.Runes))
				m.resetHistory()
				m.lastKeypressTime = time.Now()
			}
		}
		return m, nil
	}
}

// handlePickerKey intercepts all keys when the session picker is active.
func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.picker.Mode() {
	case pickerRenaming:
		return m.handlePickerRename(msg)
	case pickerConfirmDelete:
		return m.handlePickerDelete(msg)
	default:
		return m.handlePickerBrowse(msg)
	}
}

func (m Model) handlePickerBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		if m.picker.SelectedCount() > 0 {
			m.picker.ClearSelected()
			return m, nil
		}
		m.picker.Dismiss()
		m.picker = nil
		return m, nil

	case tea.KeyEnter:
		if m.picker.SelectedCount() >= 2 {
			return m, nil
		}
		sel := m.picker.SelectedSession()
		if sel == nil {
			return m, nil
		}
		sess := *sel
		m.picker.Dismiss()
		m.picker = nil
		m.history = nil
		m.historyIdx = -1
		m.historyDraft = ""
		m.lastInputTokens = 0
		m.lastOutputTokens = 0
		return m, m.switchToSession(&sess)

	case tea.KeyUp:
		m.picker.MoveUp()
		return m, nil

	case tea.KeyDown:
		m.picker.MoveDown()
		return m, nil

	case tea.KeyBackspace, tea.KeyDelete:
		m.picker.BackspaceFilter()
		return m, nil

	case tea.KeySpace:
		// Space toggles selection, never filters.
		m.picker.ToggleSelected()
		m.picker.MoveDown()
		return m, nil

	default:
		if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
			if len(msg.Runes) == 1 && msg.Runes[0] == ' ' {
				m.picker.ToggleSelected()
				m.picker.MoveDown()
				return m, nil
			}
			for _, r := range msg.Runes {
				// r/d/a act on the list only while the filter is empty.
				if len(msg.Runes) == 1 && m.picker.filter == "" {
					switch msg.Runes[0] {
					case 'r':
						if m.picker.SelectedCount() <= 1 {
							m.picker.StartRename()
							return m, nil
						}
					case 'd':
						m.picker.StartDelete()
						return m, nil
					case 'a':
						m.picker.SelectAll()
						return m, nil
					}
				}
				m.picker.AppendFilter(r)
			}
		}
		return m, nil
	}
}

func (m Model) handlePickerRename(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.picker.CancelMode()
		return m, nil
	case tea.KeyEnter:
		id, newTitle := m.picker.CommitRename()
		if id != "" && newTitle != "" && m.Store != nil {
			if err := m.Store.UpdateSessionTitle(id, newTitle); err != nil {
				m.Log.Warnf("tui: update session title: %v", err)
			}
			if sess := m.Agent.Session(); sess != nil && sess.ID == id {
				sess.Title = newTitle
				m.Agent.SetUserRenamed()
			}
		}
		return m, nil
	case tea.KeyBackspace, tea.KeyDelete:
		m.picker.BackspaceRename()
		return m, nil
	default:
		if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
			for _, r := range msg.Runes {
				m.picker.AppendRename(r)
			}
		}
		return m, nil
	}
}

func (m Model) handlePickerDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.picker.CancelMode()
		return m, nil
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			switch msg.Runes[0] {
			case 'y', 'Y':
				var ids []string
				if m.picker.SelectedCount() > 0 {
					ids = m.picker.RemoveSelectedMulti()
				} else if id := m.picker.RemoveSelected(); id != "" {
					ids = []string{id}
				}
				if m.Store != nil {
					for _, id := range ids {
						if err := m.Store.DeleteSession(id); err != nil {
							m.Log.Warnf("tui: delete session %s: %v", id, err)
						}
					}
				}
				return m, nil
			case 'n', 'N':
				m.picker.CancelMode()
				return m, nil
			}
		}
	}
	return m, nil
}

// openSessionPicker fetches sessions and opens the picker.
func (m Model) openSessionPicker() tea.Cmd {
	st := m.Store
	return func() tea.Msg {
		if st == nil {
			return SessionPickerMsg{Err: fmt.Errorf("no store available")}
		}
		sessions, err := st.ListSessions(100)
		return SessionPickerMsg{Sessions: sessions, Err: err}
	}
}

func (m Model) handleConfigPickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		if m.configPicker.mode == configPickerGroups {
			m.configPicker.Dismiss()
			m.configPicker = nil
			return m, nil
		}
		m.configPicker.Back()
		return m, nil
	case tea.KeyUp:
		m.configPicker.MoveUp()
		return m, nil
	case tea.KeyDown:
		m.configPicker.MoveDown()
		return m, nil
	case tea.KeyEnter:
		switch m.configPicker.mode {
		case configPickerGroups:
			m.configPicker.EnterGroup()
			return m, nil
		case configPickerKeys:
			entry := m.configPicker.selectedEntry()
			if entry == nil {
				return m, nil
			}
			key := entry.Key
			if isBoolConfigKey(key) {
				cur, _ := config.ParseBoolish(m.Prefs.Get(key))
				next := "true"
				if cur {
					next = "false"
				}
				if err := m.Prefs.Set(key, next); err != nil {
					return m.pushError("Config update failed: " + err.Error())
				}
				if err := config.SavePreferences(m.Prefs); err != nil {
					return m.pushError("Config save failed: " + err.Error())
				}
				m.applyConfigSetting(key, next)
				m.configPicker.Refresh(m.Prefs)
				return m, nil
			}
			m.configPicker.StartEdit(key, m.configEditInitialValue(key))
			return m, nil
		case configPickerEdit:
			key, val, ok := m.configPicker.CommitEdit()
			if !ok {
				return m, nil
			}
			if err := m.validateConfigInput(key, val); err != nil {
				return m.pushError("Invalid value: " + err.Error())
			}
			if err := m.Prefs.Set(key, val); err != nil {
				return m.pushError("Config update failed: " + err.Error())
			}
			if err := config.SavePreferences(m.Prefs); err != nil {
				return m.pushError("Config save failed: " + err.Error())
			}
			m.applyConfigSetting(key, val)
			m.configPicker.Refresh(m.Prefs)
			return m, nil
		}
	case tea.KeySpace:
		if m.configPicker.mode == configPickerEdit {
			m.configPicker.AppendEdit(' ')
		}
		return m, nil
	case tea.KeyBackspace, tea.KeyDelete:
		if m.configPicker.mode == configPickerEdit {
			m.configPicker.BackspaceEdit()
		}
		return m, nil
	default:
		if m.configPicker.mode == configPickerEdit && msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
			for _, r := range msg.Runes {
				m.configPicker.AppendEdit(r)
			}
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) dismissCompletions() {
	m.completionOn = false
	m.completions = nil
	m.completionIdx = 0
}

func filterNulls(runes []rune) string {
	clean := make([]rune, 0, len(runes))
	for _, r := range runes {
		if r != 0 {
			clean = append(clean, r)
		}
	}
	return string(clean)
}

// ---------------------------------------------------------------------------
// Submit and streaming
// ---------------------------------------------------------------------------

// submit sends the user's message or handles a slash command.
func (m Model) submit(trimmed string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(trimmed, "/") {
		return m.handleSlashCommand(trimmed)
	}

	if m.Prefs.Model == "" {
		return m.pushError("No model selected. Use /model <name> (e.g. /model claude-sonnet)")
	}
	if m.APIKey == "" && m.Agent.ProviderName() != "ollama" {
		provName := m.Agent.ProviderName()
		if provName == "" {
			provName = "your_provider"
		}
		return m.pushError(fmt.Sprintf("No API key set. Use /config set %s.api_key <key>", provName))
	}

	prompt := trimmed
	if len(m.attachments) > 0 {
		prompt = extract.BuildPrompt(trimmed, m.attachments)
		m.attachments = nil
	}

	m.cells = append(m.cells, Cell{Role: domain.RoleUser, Source: trimmed})
	m.history = append(m.history, trimmed)
	m.historyIdx = -1
	m.historyDraft = ""
	m.setInput("")
	m.thinking = true
	m.streaming = false
	m.status = ""
	m.ctl = stream.NewController(contentWidth(m.width)-2, m.Log)
	m.Log.Printf("tui: submit: %s", summarizeForLog(trimmed))
	m.refreshViewport(true)

	return m, tea.Batch(m.streamTurn(prompt), commitTick(), m.spinner.Tick)
}

// streamTurn runs the agent turn and bridges its events into the
// Bubble Tea loop via Prog.Send.
func (m Model) streamTurn(prompt string) tea.Cmd {
	svc := m.Agent
	return func() tea.Msg {
		svc.Submit(prompt, func(ev agent.Event) {
			if Prog == nil {
				return
			}
			switch ev.Kind {
			case agent.EventDelta:
				Prog.Send(StreamDeltaMsg{Text: ev.DeltaText})
			case agent.EventTurnDone:
				Prog.Send(TurnDoneMsg{
					StopReason:   ev.StopReason,
					InputTokens:  ev.InputTokens,
					OutputTokens: ev.OutputTokens,
				})
			case agent.EventError:
				Prog.Send(StreamErrorMsg{Err: ev.Err})
			case agent.EventRetrying:
				Prog.Send(RetryingMsg{Attempt: ev.RetryAttempt, Message: ev.RetryMessage})
			case agent.EventTitled:
				Prog.Send(TitledMsg{Title: ev.NewTitle})
			}
		})
		return nil
	}
}

// commitTick schedules the next line release.
func commitTick() tea.Cmd {
	return tea.Tick(commitTickInterval, func(time.Time) tea.Msg {
		return commitTickMsg{}
	})
}

func (m Model) handleStreamDelta(msg StreamDeltaMsg) (tea.Model, tea.Cmd) {
	if m.ctl == nil {
		// Delta from a turn aborted locally; the agent still persists
		// its outcome.
		return m, nil
	}
	m.streaming = true
	text := msg.Text
	if m.ctl.Source() == "" {
		// Keep the reply icon on the same line as the first words.
		text = strings.TrimLeft(text, "\n\r")
		if text == "" {
			return m, nil
		}
	}
	m.ctl.Push(text)
	m.refreshViewport(false)
	return m, nil
}

func (m Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	m.lastInputTokens = msg.InputTokens
	m.lastOutputTokens = msg.OutputTokens
	if m.ctl != nil && strings.TrimSpace(m.ctl.Source()) == "" {
		// Mirror the placeholder the agent persists for empty replies.
		m.ctl.Push("I could not generate a text response.")
	}
	m.finalizeStream()
	return m, nil
}

func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if m.ctl == nil {
		// Already aborted locally; drop the late error quietly.
		m.thinking = false
		m.streaming = false
		m.status = ""
		return m, nil
	}
	// The error replaces the reply, matching what the agent persists.
	m.ctl = nil
	m.thinking = false
	m.streaming = false
	m.status = ""
	if msg.Err != nil {
		m.cells = append(m.cells, Cell{Role: domain.RoleAssistant, Source: "Error: " + msg.Err.Error()})
	}
	m.refreshViewport(true)
	return m, nil
}

// finalizeStream ends the live stream: the reply becomes a transcript
// cell owning its raw source, and the controller is dropped. Safe to
// call when no stream is active.
func (m *Model) finalizeStream() {
	if m.ctl != nil {
		m.ctl.Finalize()
		if src := strings.TrimRight(m.ctl.Source(), "\n"); strings.TrimSpace(src) != "" {
			m.cells = append(m.cells, Cell{Role: domain.RoleAssistant, Source: src})
		}
		m.ctl = nil
	}
	m.thinking = false
	m.streaming = false
	m.status = ""
	m.refreshViewport(true)
}

// abortTurn cancels the running turn. Text already collected stays in
// the transcript; the agent absorbs the cancel at its next safe point.
func (m *Model) abortTurn() {
	if m.Agent != nil {
		m.Agent.Cancel()
	}
	m.finalizeStream()
	m.cells = append(m.cells, Notice("Turn cancelled."))
	m.refreshViewport(true)
}

// ---------------------------------------------------------------------------
// Slash commands
// ---------------------------------------------------------------------------

func (m Model) handleSlashCommand(input string) (tea.Model, tea.Cmd) {
	m.setInput("")

	clean := strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	parts := strings.Fields(clean)
	if len(parts) == 0 {
		return m, nil
	}
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "/clear":
		m.cells = nil
		m.cellCache = nil
		m.lastInputTokens = 0
		m.lastOutputTokens = 0
		m.refreshViewport(true)
		return m, nil

	case "/exit", "/quit":
		return m, tea.Quit

	case "/new":
		if err := m.Agent.NewSession(); err != nil {
			return m.pushError("Failed to create session: " + err.Error())
		}
		m.cells = nil
		m.cellCache = nil
		m.history = nil
		m.historyIdx = -1
		m.historyDraft = ""
		m.lastInputTokens = 0
		m.lastOutputTokens = 0
		m.attachments = nil
		return m.pushNotice("New session started.")

	case "/rename":
		if len(parts) < 2 {
			return m.pushError("Usage: /rename <new title>")
		}
		newTitle := strings.Join(parts[1:], " ")
		sess := m.Agent.Session()
		if sess == nil {
			return m.pushError("No active session.")
		}
		if m.Store != nil {
			if err := m.Store.UpdateSessionTitle(sess.ID, newTitle); err != nil {
				return m.pushError("Rename failed: " + err.Error())
			}
		}
		sess.Title = newTitle
		m.Agent.SetUserRenamed()
		return m.pushNotice("Session renamed to: " + newTitle)

	case "/sessions":
		return m, m.openSessionPicker()

	case "/continue", "/resume":
		if len(parts) < 2 {
			return m, m.openSessionPicker()
		}
		return m, m.switchSessionByPrefix(parts[1])

	case "/model":
		if len(parts) < 2 {
			current := m.Prefs.Model
			if current == "" {
				current = "(not set)"
			}
			lines := []string{
				"Current model: " + current,
				"Aliases: " + strings.Join(ModelAliasNames(), ", "),
				"Use /model <name>, e.g. /model claude-sonnet or /model gpt-4o",
			}
			return m.pushMeta(strings.Join(lines, "\n"))
		}
		return m.applyModelChange(strings.Join(parts[1:], " "))

	case "/config":
		if len(parts) == 1 {
			m.configPicker = NewConfigPicker(m.Prefs)
			return m, nil
		}
		if len(parts) == 2 {
			sub := strings.ToLower(strings.TrimSpace(parts[1]))
			switch sub {
			case "models", "theme":
				m.configPicker = NewConfigPickerAtGroup(m.Prefs, sub)
				return m, nil
			}
		}
		result, err := config.ExecuteConfigAction(&m.Prefs, parts[1:])
		if err != nil {
			return m.pushError(err.Error())
		}
		if len(parts) >= 4 && strings.ToLower(parts[1]) == "set" {
			m.applyConfigSetting(parts[2], parts[3])
		}
		return m.pushMeta(result)

	case "/copy":
		return m, WriteClipboardCmd(m.lastAssistantSource())

	case "/attach":
		if len(parts) < 2 {
			return m.pushError("Usage: /attach <glob>")
		}
		pattern := strings.Join(parts[1:], " ")
		return m, func() tea.Msg {
			atts, err := extract.FromGlob(pattern)
			return attachStagedMsg{atts: atts, err: err}
		}

	case "/fetch":
		if len(parts) < 2 {
			return m.pushError("Usage: /fetch <url>")
		}
		rawURL := parts[1]
		return m, func() tea.Msg {
			att, err := extract.FetchURL(rawURL)
			if err != nil {
				return attachStagedMsg{err: err}
			}
			return attachStagedMsg{atts: []domain.Attachment{att}}
		}

	case "/export":
		return m.handleExportCommand()

	case "/qr":
		return m.handleQRCommand(parts[1:])

	case "/help":
		return m.handleHelpCommand()

	default:
		return m.pushError("Unknown command: " + cmd + "  (try /help)")
	}
}

// applyModelChange validates, saves, and activates a model selection.
func (m Model) applyModelChange(name string) (tea.Model, tea.Cmd) {
	name = config.SanitizeValue(name)
	if name == "" {
		return m.pushError("Model cannot be empty.")
	}
	if err := m.validateConfigInput("model", name); err != nil {
		return m.pushError(err.Error())
	}
	if err := m.Prefs.Set("model", name); err != nil {
		return m.pushError("Setting model: " + err.Error())
	}
	if err := config.SavePreferences(m.Prefs); err != nil {
		return m.pushError("Saving preferences: " + err.Error())
	}
	m.applyConfigSetting("model", name)
	return m.pushNotice("Model set to " + name + ".")
}

// applyConfigSetting propagates a changed preference to the running
// agent service.
func (m *Model) applyConfigSetting(key, value string) {
	if m.Agent == nil {
		return
	}
	if strings.HasSuffix(key, ".api_key") {
		provName := strings.TrimSuffix(key, ".api_key")
		if m.Agent.ProviderName() == provName {
			if resolved, err := config.LoadProviderAPIKey(m.Prefs, provName); err == nil {
				m.APIKey = resolved
				if prov, perr := provider.GetProvider(provName); perr == nil {
					m.Agent.SetProvider(prov, resolved)
				}
			}
		}
	}
	if key == "model" {
		currentProv := m.Agent.ProviderName()
		provName, modelID := provider.ResolveProviderAndModel(value, currentProv)
		if provName != currentProv || !m.Agent.HasProvider() {
			if prov, err := provider.GetProvider(provName); err == nil {
				apiKey, _ := config.LoadProviderAPIKey(m.Prefs, provName)
				m.APIKey = apiKey
				m.Agent.SetProvider(prov, apiKey)
			}
		}
		m.Agent.SetModel(modelID)
	}
	if key == "ollama.url" {
		provider.SetOllamaBaseURL(value)
	}
}

func (m Model) validateConfigInput(key, value string) error {
	value = config.SanitizeValue(value)
	switch key {
	case "model":
		currentProv := ""
		if m.Agent != nil {
			currentProv = m.Agent.ProviderName()
		}
		provName, modelID := provider.ResolveProviderAndModel(value, currentProv)
		if strings.TrimSpace(modelID) == "" {
			return fmt.Errorf("model cannot be empty")
		}
		// A bare model name resolves to a provider by shape; warn when
		// that provider has no key so a typo does not strand the user.
		if provName != "ollama" && !strings.Contains(value, "/") {
			if _, err := config.LoadProviderAPIKey(m.Prefs, provName); err != nil {
				return fmt.Errorf("model %q resolved to %s but no API key is set; use %s/%s to pick the provider explicitly",
					value, provName, provName, value)
			}
		}
	case "ollama.url":
		if value != "" && !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("ollama.url must start with http:// or https://")
		}
	}
	return nil
}

func (m Model) configEditInitialValue(key string) string {
	switch key {
	case "anthropic.api_key", "openai.api_key":
		// Stored keys display masked; start the editor empty instead.
		return ""
	default:
		return m.Prefs.Get(key)
	}
}

func (m Model) handleExportCommand() (tea.Model, tea.Cmd) {
	var tbl render.Table
	found := false
	for i := len(m.cells) - 1; i >= 0 && !found; i-- {
		if m.cells[i].Role != domain.RoleAssistant {
			continue
		}
		if t, ok := export.LastTable(m.cells[i].Source); ok {
			tbl = t
			found = true
		}
	}
	if !found {
		return m.pushError("No table found in the transcript.")
	}
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return m, func() tea.Msg {
		path, err := export.WriteXLSX(tbl, dir)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) handleQRCommand(args []string) (tea.Model, tea.Cmd) {
	text := strings.Join(args, " ")
	if text == "" {
		text = m.lastExportPath
	}
	if strings.TrimSpace(text) == "" {
		return m.pushError("Usage: /qr <text>  (bare /qr encodes the last export path)")
	}
	lines, err := export.QRLines(text)
	if err != nil {
		return m.pushError("QR failed: " + err.Error())
	}
	m.cells = append(m.cells, RawNotice(strings.Join(lines, "\n")))
	m.refreshViewport(true)
	return m, nil
}

func (m Model) handleHelpCommand() (tea.Model, tea.Cmd) {
	grouped := make(map[string][]domain.CommandDef)
	for _, c := range domain.CommandDefs {
		grouped[c.Group] = append(grouped[c.Group], c)
	}
	var lines []string
	for _, g := range domain.CommandGroups {
		defs := grouped[g.Key]
		if len(defs) == 0 {
			continue
		}
		lines = append(lines, FooterHead.Render(g.Label))
		for _, c := range defs {
			label := c.Name
			if c.ArgHint != "" {
				label += " " + c.ArgHint
			}
			lines = append(lines, FooterMeta.Render(fmt.Sprintf("  %-22s %s", label, c.Description)))
		}
		lines = append(lines, "")
	}
	lines = append(lines, FooterMeta.Render("  Ctrl+R sessions  |  Tab autocomplete  |  Ctrl+Y copy reply  |  PgUp/PgDn scroll"))
	m.cells = append(m.cells, RawNotice(strings.Join(lines, "\n")))
	m.refreshViewport(true)
	return m, nil
}

// ---------------------------------------------------------------------------
// Transcript cells and viewport
// ---------------------------------------------------------------------------

// pushNotice appends an informational system cell.
func (m Model) pushNotice(text string) (tea.Model, tea.Cmd) {
	m.cells = append(m.cells, Notice(text))
	m.refreshViewport(true)
	return m, nil
}

// pushError appends an error system cell, word-wrapped to the current
// width.
func (m Model) pushError(text string) (tea.Model, tea.Cmd) {
	wrapped := strings.Join(render.WrapWords(text, contentWidth(m.width)), "\n")
	m.cells = append(m.cells, ErrorNotice(wrapped))
	m.refreshViewport(true)
	return m, nil
}

// pushMeta appends a secondary-text system cell.
func (m Model) pushMeta(text string) (tea.Model, tea.Cmd) {
	m.cells = append(m.cells, MetaNotice(text))
	m.refreshViewport(true)
	return m, nil
}

// renderedCells returns every finalized cell rendered at the current
// width, reusing prior renders until reflowTranscript drops the cache.
func (m *Model) renderedCells() []string {
	if len(m.cellCache) > len(m.cells) {
		m.cellCache = m.cellCache[:0]
	}
	for i := len(m.cellCache); i < len(m.cells); i++ {
		m.cellCache = append(m.cellCache, FormatCell(m.cells[i], m.width))
	}
	return m.cellCache
}

// liveBlock renders the in-flight reply: released lines plus the tail
// still animating or mutable.
func (m *Model) liveBlock() string {
	if m.ctl == nil {
		return ""
	}
	lines := append(m.ctl.EmittedLines(), m.ctl.TailLines()...)
	if len(lines) == 0 {
		return ""
	}
	return assistantBlock(lines, true)
}

// transcript joins all finalized cells plus the live streaming block.
func (m *Model) transcript() string {
	blocks := append([]string(nil), m.renderedCells()...)
	if live := m.liveBlock(); live != "" {
		blocks = append(blocks, live)
	}
	return strings.Join(blocks, "\n\n")
}

// refreshViewport re-renders the transcript into the viewport. The
// view follows the bottom unless the user has scrolled up.
func (m *Model) refreshViewport(gotoBottom bool) {
	if !m.vpReady {
		return
	}
	atBottom := m.vp.AtBottom()
	m.vp.Width = m.width
	m.vp.Height = m.viewportHeight()
	m.vp.SetContent(m.transcript())
	if gotoBottom || atBottom {
		m.vp.GotoBottom()
	}
}

// viewportHeight is the terminal height minus the chrome below the
// transcript.
func (m *Model) viewportHeight() int {
	return max(3, m.height-lipgloss.Height(m.renderChrome())-1)
}

// ---------------------------------------------------------------------------
// Session switching
// ---------------------------------------------------------------------------

// switchToSession points the agent at an existing session and loads
// its history.
func (m Model) switchToSession(sess *domain.Session) tea.Cmd {
	svc := m.Agent
	return func() tea.Msg {
		svc.SetSession(sess)
		if err := svc.Resume(); err != nil {
			return sessionLoadedMsg{sess: sess, err: err}
		}
		return sessionLoadedMsg{sess: sess, msgs: svc.Messages()}
	}
}

// switchSessionByPrefix resolves an ID prefix and switches to it.
func (m Model) switchSessionByPrefix(prefix string) tea.Cmd {
	st := m.Store
	svc := m.Agent
	return func() tea.Msg {
		if st == nil {
			return sessionLoadedMsg{err: fmt.Errorf("no store available")}
		}
		sess, err := st.FindSessionByPrefix(prefix)
		if err != nil {
			return sessionLoadedMsg{err: err}
		}
		svc.SetSession(sess)
		if err := svc.Resume(); err != nil {
			return sessionLoadedMsg{sess: sess, err: err}
		}
		return sessionLoadedMsg{sess: sess, msgs: svc.Messages()}
	}
}

func (m Model) handleSessionLoaded(msg sessionLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.pushError("Resume failed: " + msg.err.Error())
	}
	if msg.sess != nil {
		// Follow the session's provider and model so the next turn
		// goes where this conversation was had.
		if msg.sess.Provider != "" && m.Agent != nil && msg.sess.Provider != m.Agent.ProviderName() {
			if prov, err := provider.GetProvider(msg.sess.Provider); err == nil {
				apiKey, _ := config.LoadProviderAPIKey(m.Prefs, msg.sess.Provider)
				m.APIKey = apiKey
				m.Agent.SetProvider(prov, apiKey)
			}
		}
		if msg.sess.Model != "" {
			m.Prefs.Model = msg.sess.Model
		}
	}
	m.cells = nil
	m.cellCache = nil
	m.attachments = nil
	title := "session"
	if msg.sess != nil {
		title = msg.sess.DisplayTitle()
	}
	m.cells = append(m.cells, Notice(fmt.Sprintf("Resumed: %s  (%d messages)", title, len(msg.msgs))))
	for _, tm := range msg.msgs {
		switch tm.Role {
		case domain.RoleUser, domain.RoleAssistant:
			m.cells = append(m.cells, Cell{Role: tm.Role, Source: tm.Content})
		}
	}
	m.refreshViewport(true)
	return m, nil
}

// ---------------------------------------------------------------------------
// Attachments and exports
// ---------------------------------------------------------------------------

func (m Model) handleAttachStaged(msg attachStagedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.pushError("Attach failed: " + msg.err.Error())
	}
	if len(msg.atts) == 0 {
		return m.pushError("No readable files matched.")
	}
	m.attachments = append(m.attachments, msg.atts...)
	names := make([]string, 0, len(msg.atts))
	total := 0
	for _, a := range msg.atts {
		names = append(names, a.Name)
		total += len(a.Text)
	}
	label := strings.Join(names, ", ")
	if len(names) > 5 {
		label = fmt.Sprintf("%s and %d more", strings.Join(names[:5], ", "), len(names)-5)
	}
	return m.pushNotice(fmt.Sprintf("Attached %s (%d chars). Sends with your next message.", label, total))
}

func (m Model) handleExportDone(msg exportDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m.pushError("Export failed: " + msg.err.Error())
	}
	m.lastExportPath = msg.path
	return m.pushNotice("Table exported to " + msg.path)
}

// ---------------------------------------------------------------------------
// Input history
// ---------------------------------------------------------------------------

func (m *Model) browseHistoryBack() {
	if len(m.history) == 0 {
		return
	}
	if m.historyIdx == -1 {
		m.historyDraft = m.input
		m.historyIdx = len(m.history) - 1
	} else if m.historyIdx > 0 {
		m.historyIdx--
	}
	m.setInput(m.history[m.historyIdx])
}

func (m *Model) browseHistoryForward() {
	if m.historyIdx == -1 {
		return
	}
	if m.historyIdx < len(m.history)-1 {
		m.historyIdx++
		m.setInput(m.history[m.historyIdx])
	} else {
		m.historyIdx = -1
		m.setInput(m.historyDraft)
		m.historyDraft = ""
	}
}

func (m *Model) resetHistory() {
	m.historyIdx = -1
	m.historyDraft = ""
}

// ---------------------------------------------------------------------------
// Input editing
// ---------------------------------------------------------------------------

func (m *Model) setInput(s string) {
	m.input = s
	m.inputCursor = len([]rune(s))
}

func (m *Model) moveInputCursor(delta int) {
	limit := len([]rune(m.input))
	m.inputCursor += delta
	if m.inputCursor < 0 {
		m.inputCursor = 0
	}
	if m.inputCursor > limit {
		m.inputCursor = limit
	}
}

func (m *Model) moveInputCursorToStart() {
	m.inputCursor = 0
}

func (m *Model) moveInputCursorToEnd() {
	m.inputCursor = len([]rune(m.input))
}

func (m *Model) insertInputAtCursor(s string) {
	if s == "" {
		return
	}
	r := []rune(m.input)
	if m.inputCursor < 0 {
		m.inputCursor = 0
	}
	if m.inputCursor > len(r) {
		m.inputCursor = len(r)
	}
	ins := []rune(s)
	out := make([]rune, 0, len(r)+len(ins))
	out = append(out, r[:m.inputCursor]...)
	out = append(out, ins...)
	out = append(out, r[m.inputCursor:]...)
	m.input = string(out)
	m.inputCursor += len(ins)
}

func (m *Model) deleteInputBeforeCursor() bool {
	r := []rune(m.input)
	if len(r) == 0 || m.inputCursor <= 0 {
		return false
	}
	if m.inputCursor > len(r) {
		m.inputCursor = len(r)
	}
	out := make([]rune, 0, len(r)-1)
	out = append(out, r[:m.inputCursor-1]...)
	out = append(out, r[m.inputCursor:]...)
	m.input = string(out)
	m.inputCursor--
	return true
}

func (m *Model) deleteInputAtCursor() bool {
	r := []rune(m.input)
	if len(r) == 0 {
		return false
	}
	if m.inputCursor < 0 {
		m.inputCursor = 0
	}
	if m.inputCursor >= len(r) {
		return false
	}
	out := make([]rune, 0, len(r)-1)
	out = append(out, r[:m.inputCursor]...)
	out = append(out, r[m.inputCursor+1:]...)
	m.input = string(out)
	return true
}

func withInlineCursor(input string, cursor int) string {
	r := []rune(input)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(r) {
		cursor = len(r)
	}
	with := make([]rune, 0, len(r)+1)
	with = append(with, r[:cursor]...)
	with = append(with, '█')
	with = append(with, r[cursor:]...)
	return string(with)
}

func hardWrapLine(line string, width int) []string {
	if width < 1 {
		width = 1
	}
	runes := []rune(line)
	if len(runes) <= width {
		return []string{line}
	}
	var lines []string
	for len(runes) > width {
		lines = append(lines, string(runes[:width]))
		runes = runes[width:]
	}
	lines = append(lines, string(runes))
	return lines
}

// ---------------------------------------------------------------------------
// Message handlers
// ---------------------------------------------------------------------------

func (m Model) handlePaste(msg PasteMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil || m.thinking {
		return m, nil
	}
	pasted := strings.ReplaceAll(msg.Text, "\r\n", "\n")
	pasted = strings.ReplaceAll(pasted, "\r", "\n")
	pasted = strings.TrimRight(pasted, "\n")
	if pasted != "" {
		m.insertInputAtCursor(pasted)
		m.resetHistory()
	}
	return m, nil
}

func (m Model) handleClipboardWrite(msg ClipboardWriteMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m.pushError("Copy failed: " + msg.Err.Error())
	}
	if msg.OK {
		return m.pushNotice("Copied to clipboard.")
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// lastAssistantSource returns the raw markdown of the most recent
// assistant cell.
func (m Model) lastAssistantSource() string {
	for i := len(m.cells) - 1; i >= 0; i-- {
		if m.cells[i].Role == domain.RoleAssistant {
			return m.cells[i].Source
		}
	}
	return ""
}

// plainTranscript renders the conversation as plain text for the
// clipboard. System cells carry ANSI styling, so they are skipped.
func (m Model) plainTranscript() string {
	var b strings.Builder
	for _, c := range m.cells {
		switch c.Role {
		case domain.RoleAssistant:
			b.WriteString("Assistant: ")
		case domain.RoleUser:
			b.WriteString("User: ")
		default:
			continue
		}
		b.WriteString(c.Source)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}

// TimeAgo returns a human-readable time-ago string.
func TimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func summarizeForLog(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 180 {
		return s[:180] + "..."
	}
	return s
}
