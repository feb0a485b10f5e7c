package tui

import (
	"fmt"
	"strings"

	"github.com/quillchat/quill/internal/config"
)

type configPickerMode int

const (
	configPickerGroups configPickerMode = iota
	configPickerKeys
	configPickerEdit
)

// ConfigPicker is the /config overlay: pick a group, pick a key, then
// toggle it (booleans) or type a new value (everything else).
type ConfigPicker struct {
	groups   []config.ConfigGroup
	groupIdx int
	keyIdx   int
	mode     configPickerMode
	active   bool

	editKey string
	editBuf string
}

// NewConfigPicker creates a picker over the current preferences.
func NewConfigPicker(prefs config.Preferences) *ConfigPicker {
	return &ConfigPicker{
		groups: prefs.Grouped(),
		active: true,
	}
}

// NewConfigPickerAtGroup creates a picker opened directly inside the
// named group.
func NewConfigPickerAtGroup(prefs config.Preferences, group string) *ConfigPicker {
	p := NewConfigPicker(prefs)
	group = strings.ToLower(strings.TrimSpace(group))
	for i, g := range p.groups {
		if strings.ToLower(g.Name) == group {
			p.groupIdx = i
			p.mode = configPickerKeys
			break
		}
	}
	return p
}

// IsActive reports whether the picker is currently shown.
func (p *ConfigPicker) IsActive() bool { return p != nil && p.active }

// Dismiss closes the picker.
func (p *ConfigPicker) Dismiss() { p.active = false }

// Refresh reloads entries after a preference change so displayed
// values stay current.
func (p *ConfigPicker) Refresh(prefs config.Preferences) {
	p.groups = prefs.Grouped()
	if p.groupIdx >= len(p.groups) {
		p.groupIdx = max(0, len(p.groups)-1)
	}
	if g := p.currentGroup(); g != nil && p.keyIdx >= len(g.Entries) {
		p.keyIdx = max(0, len(g.Entries)-1)
	}
}

func (p *ConfigPicker) currentGroup() *config.ConfigGroup {
	if len(p.groups) == 0 || p.groupIdx < 0 || p.groupIdx >= len(p.groups) {
		return nil
	}
	return &p.groups[p.groupIdx]
}

// selectedEntry returns the highlighted preference entry, or nil while
// browsing at the group level.
func (p *ConfigPicker) selectedEntry() *config.PrefEntry {
	if p.mode == configPickerGroups {
		return nil
	}
	g := p.currentGroup()
	if g == nil || len(g.Entries) == 0 || p.keyIdx < 0 || p.keyIdx >= len(g.Entries) {
		return nil
	}
	return &g.Entries[p.keyIdx]
}

// MoveUp moves the selection up at the current level.
func (p *ConfigPicker) MoveUp() {
	switch p.mode {
	case configPickerGroups:
		if p.groupIdx > 0 {
			p.groupIdx--
		}
	case configPickerKeys:
		if p.keyIdx > 0 {
			p.keyIdx--
		}
	}
}

// MoveDown moves the selection down at the current level.
func (p *ConfigPicker) MoveDown() {
	switch p.mode {
	case configPickerGroups:
		if p.groupIdx < len(p.groups)-1 {
			p.groupIdx++
		}
	case configPickerKeys:
		if g := p.currentGroup(); g != nil && p.keyIdx < len(g.Entries)-1 {
			p.keyIdx++
		}
	}
}

// EnterGroup descends from the group list into its keys.
func (p *ConfigPicker) EnterGroup() {
	if p.mode == configPickerGroups && p.currentGroup() != nil {
		p.mode = configPickerKeys
		p.keyIdx = 0
	}
}

// Back ascends one level: edit to keys, keys to groups.
func (p *ConfigPicker) Back() {
	switch p.mode {
	case configPickerEdit:
		p.mode = configPickerKeys
		p.editKey = ""
		p.editBuf = ""
	case configPickerKeys:
		p.mode = configPickerGroups
		p.keyIdx = 0
	}
}

// StartEdit enters value-edit mode for the given key.
func (p *ConfigPicker) StartEdit(key, initial string) {
	p.mode = configPickerEdit
	p.editKey = key
	p.editBuf = initial
}

// AppendEdit adds a rune to the edit buffer.
func (p *ConfigPicker) AppendEdit(r rune) {
	p.editBuf += string(r)
}

// BackspaceEdit removes the last rune from the edit buffer.
func (p *ConfigPicker) BackspaceEdit() {
	if len(p.editBuf) == 0 {
		return
	}
	rs := []rune(p.editBuf)
	p.editBuf = string(rs[:len(rs)-1])
}

// CommitEdit leaves edit mode and returns the key and entered value.
func (p *ConfigPicker) CommitEdit() (key, value string, ok bool) {
	if p.mode != configPickerEdit {
		return "", "", false
	}
	key = p.editKey
	value = p.editBuf
	p.mode = configPickerKeys
	p.editKey = ""
	p.editBuf = ""
	return key, value, true
}

// isBoolConfigKey reports whether the key holds a boolean preference
// and should toggle in place instead of opening the editor.
func isBoolConfigKey(key string) bool {
	switch key {
	case "footer.tokens", "footer.cost", "footer.session", "footer.keybindings":
		return true
	default:
		return false
	}
}

// View renders the picker as a string.
func (p *ConfigPicker) View(width int) string {
	if width < 40 {
		width = 40
	}
	var b strings.Builder
	b.WriteString(FooterHead.Render("Preferences"))
	b.WriteString("\n")

	switch p.mode {
	case configPickerGroups:
		b.WriteString(FooterMeta.Render("  Enter=open group  Esc=close"))
		b.WriteString("\n\n")
		for i, g := range p.groups {
			label := fmt.Sprintf("  %-8s (%d keys)", g.Name, len(g.Entries))
			if i == p.groupIdx {
				b.WriteString(CompletionSelStyle.Render("> " + label[2:]))
			} else {
				b.WriteString(FooterMeta.Render(label))
			}
			b.WriteString("\n")
		}

	case configPickerKeys:
		g := p.currentGroup()
		if g == nil || len(g.Entries) == 0 {
			b.WriteString(FooterMeta.Render("  No entries."))
			b.WriteString("\n")
			return b.String()
		}
		hint := "Enter=edit"
		if e := p.selectedEntry(); e != nil && isBoolConfigKey(e.Key) {
			hint = "Enter=toggle"
		}
		b.WriteString(FooterMeta.Render("  " + g.Name + "  " + hint + "  Esc=back"))
		b.WriteString("\n\n")
		for i, e := range g.Entries {
			label := fmt.Sprintf("  %-24s %s", e.Key, e.Value)
			if i == p.keyIdx {
				b.WriteString(CompletionSelStyle.Render("> " + label[2:]))
			} else {
				b.WriteString(FooterMeta.Render(label))
			}
			b.WriteString("\n")
		}

	case configPickerEdit:
		b.WriteString(FooterMeta.Render("  " + p.editKey + "  Enter=save  Esc=cancel"))
		b.WriteString("\n\n")
		b.WriteString(FooterMeta.Render("  Value: " + p.editBuf))
		b.WriteString(CursorStyle.Render("█"))
		b.WriteString("\n")
	}

	return b.String()
}
