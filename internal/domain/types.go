package domain

import (
	"strings"
	"time"
)

// Message roles as stored and sent to providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// TranscriptMessage is one message of a conversation. Content holds the
// raw markdown source exactly as received; rendering happens at display
// time from this source.
type TranscriptMessage struct {
	Role    string
	Content string
}

// IsUser reports whether the message was authored by the user.
func (m TranscriptMessage) IsUser() bool {
	return m.Role == RoleUser
}

// FirstLine returns the first non-blank line of the content, trimmed.
// Used for session titles and list previews.
func (m TranscriptMessage) FirstLine() string {
	for _, line := range strings.Split(m.Content, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// Session holds metadata about a conversation session.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	TotalTokens  int       `json:"total_tokens"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayTitle returns the title, or a placeholder for untitled sessions.
func (s Session) DisplayTitle() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return "(untitled)"
}

// Attachment is extracted file or URL content staged for the next user
// message.
type Attachment struct {
	Name string
	Text string
}

// APIModelInfo holds information about an available model from a provider API.
type APIModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
}

// ModelPricing holds per-million-token USD prices for one model.
type ModelPricing struct {
	InputPerMillion  float64 `json:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million"`
}

// Cost returns the USD cost of the given token counts.
func (p ModelPricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*p.InputPerMillion/1e6 +
		float64(outputTokens)*p.OutputPerMillion/1e6
}
