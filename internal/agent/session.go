package agent

import (
	"fmt"
	"os"

	"github.com/quillchat/quill/internal/domain"
	"github.com/quillchat/quill/internal/provider"
)

// titleMaxLen caps auto-generated session titles.
const titleMaxLen = 50

// setTitleFromFirstMessage titles the session after the first exchange
// using the first non-blank line of the first user message.
func (a *Service) setTitleFromFirstMessage(onEvent EventFunc) {
	a.mu.Lock()
	var title string
	for _, m := range a.messages {
		if m.Role == domain.RoleUser {
			title = m.FirstLine()
			break
		}
	}
	a.mu.Unlock()

	if title == "" {
		return
	}
	if len(title) > titleMaxLen {
		title = title[:titleMaxLen] + "..."
	}

	a.mu.Lock()
	a.session.Title = title
	a.mu.Unlock()

	if err := a.store.UpdateSessionTitle(a.session.ID, title); err != nil {
		fmt.Fprintf(os.Stderr, "agent: update session title: %v\n", err)
	}
	onEvent(Event{Kind: EventTitled, NewTitle: title})
}

// Cancel signals the running Submit to stop at the next safe point.
// An in-flight HTTP stream runs to completion; cancellation takes
// effect between attempts and during retry waits.
func (a *Service) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = true
}

// Resume loads the message history from the store for the current
// session.
func (a *Service) Resume() error {
	if a.store == nil {
		return fmt.Errorf("no store available")
	}
	if a.session == nil {
		return fmt.Errorf("no session available")
	}
	msgs, err := a.store.GetMessages(a.session.ID)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	a.mu.Lock()
	a.messages = msgs
	a.titled = len(msgs) > 0
	a.mu.Unlock()
	return nil
}

// SetModel changes the active model and persists it on the session.
func (a *Service) SetModel(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.modelID = id
	if a.store != nil && a.session != nil {
		a.session.Model = id
		if err := a.store.UpdateSessionModel(a.session.ID, id); err != nil {
			fmt.Fprintf(os.Stderr, "agent: update session model: %v\n", err)
		}
	}
}

// ModelID returns the active model ID.
func (a *Service) ModelID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.modelID
}

// SetProvider changes the active provider and API key.
func (a *Service) SetProvider(prov provider.Provider, apiKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prov = prov
	a.apiKey = apiKey
}

// HasProvider reports whether a provider is configured.
func (a *Service) HasProvider() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prov != nil
}

// ProviderName returns the active provider's name, empty when none is
// configured.
func (a *Service) ProviderName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.prov == nil {
		return ""
	}
	return a.prov.Name()
}

// Messages returns a copy of the current message history.
func (a *Service) Messages() []domain.TranscriptMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.TranscriptMessage, len(a.messages))
	copy(out, a.messages)
	return out
}

// NewSession creates a new session and resets conversation state.
func (a *Service) NewSession() error {
	if a.store == nil {
		return fmt.Errorf("no store available")
	}
	providerName := ""
	if a.prov != nil {
		providerName = a.prov.Name()
	}
	sess, err := a.store.CreateSession(providerName, a.modelID)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	a.mu.Lock()
	a.session = sess
	a.messages = nil
	a.inputTokens = 0
	a.outputTokens = 0
	a.titled = false
	a.userRenamed = false
	a.mu.Unlock()
	return nil
}

// SetSession switches to an existing session without loading messages;
// call Resume to load them.
func (a *Service) SetSession(sess *domain.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = sess
	a.messages = nil
	if sess != nil {
		a.inputTokens = sess.InputTokens
		a.outputTokens = sess.OutputTokens
		if sess.Model != "" {
			a.modelID = sess.Model
		}
	} else {
		a.inputTokens = 0
		a.outputTokens = 0
	}
	a.titled = false
	a.userRenamed = false
}

// Session returns the current session.
func (a *Service) Session() *domain.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// SetUserRenamed marks the session as manually renamed by the user,
// preventing the auto-title from overwriting it.
func (a *Service) SetUserRenamed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userRenamed = true
	a.titled = true
}

// TokenTotals returns the session's accumulated input and output token
// counts.
func (a *Service) TokenTotals() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inputTokens, a.outputTokens
}

// IsRunning reports whether a Submit is currently in progress.
func (a *Service) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
