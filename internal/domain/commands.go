package domain

// CommandDef describes a slash command available in the prompt.
type CommandDef struct {
	Name        string
	Description string
	Group       string // display group for /help
	ArgHint     string // e.g. "<glob>", shown in completion
}

// CommandDefs is the single source of truth for all slash commands.
var CommandDefs = []CommandDef{
	// Session
	{Name: "/new", Description: "start a new session", Group: "session"},
	{Name: "/sessions", Description: "list recent sessions", Group: "session"},
	{Name: "/continue", Description: "resume a session by ID", Group: "session", ArgHint: "<id>"},
	{Name: "/rename", Description: "rename current session", Group: "session", ArgHint: "<title>"},
	// Input
	{Name: "/attach", Description: "attach file contents to next message", Group: "input", ArgHint: "<glob>"},
	{Name: "/fetch", Description: "attach readable text of a URL", Group: "input", ArgHint: "<url>"},
	// Output
	{Name: "/copy", Description: "copy last reply to clipboard", Group: "output"},
	{Name: "/export", Description: "export last table to .xlsx", Group: "output"},
	{Name: "/qr", Description: "render text as an ASCII QR code", Group: "output", ArgHint: "[text]"},
	// Config
	{Name: "/model", Description: "switch model", Group: "config", ArgHint: "<id>"},
	{Name: "/config", Description: "show/set preferences", Group: "config", ArgHint: "[show|set|reset]"},
	// General
	{Name: "/help", Description: "show this help", Group: "general"},
	{Name: "/clear", Description: "clear the transcript view", Group: "general"},
	{Name: "/quit", Description: "quit quill", Group: "general"},
}

// CommandGroups defines the display order and labels for help groups.
var CommandGroups = []struct {
	Key   string
	Label string
}{
	{"session", "Sessions"},
	{"input", "Input"},
	{"output", "Output"},
	{"config", "Config"},
	{"general", "General"},
}

// LookupCommand returns the definition for an exact command name.
func LookupCommand(name string) (CommandDef, bool) {
	for _, c := range CommandDefs {
		if c.Name == name {
			return c, true
		}
	}
	return CommandDef{}, false
}
