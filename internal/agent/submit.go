package agent

import (
	"fmt"
	"os"

	"github.com/quillchat/quill/internal/domain"
	"github.com/quillchat/quill/internal/provider"
)

// Submit sends a user message and runs one full turn synchronously.
// The caller should wrap this in a goroutine. Events are delivered via
// onEvent. Submit blocks until the turn is complete or cancelled.
//
// The assistant reply is persisted as raw markdown source, verbatim;
// rendering always happens at display time from that source.
func (a *Service) Submit(userText string, onEvent EventFunc) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		onEvent(Event{Kind: EventError, Err: fmt.Errorf("a reply is already streaming")})
		return
	}
	a.running = true
	a.cancelled = false
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	// 1. Append user message and persist
	userMsg := domain.TranscriptMessage{Role: domain.RoleUser, Content: userText}
	a.mu.Lock()
	a.messages = append(a.messages, userMsg)
	messages := make([]domain.TranscriptMessage, len(a.messages))
	copy(messages, a.messages)
	a.mu.Unlock()

	if a.store != nil && a.session != nil {
		if err := a.store.AppendMessage(a.session.ID, domain.RoleUser, userText, 0); err != nil {
			fmt.Fprintf(os.Stderr, "agent: persist user message: %v\n", err)
		}
	}

	a.mu.Lock()
	if a.cancelled {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	// 2. Stream the reply
	system := provider.BuildSystemPrompt()
	text, stopReason, usage, err := a.callProviderWithRetry(
		messages, system,
		func(delta string) {
			onEvent(Event{Kind: EventDelta, DeltaText: delta})
		},
		onEvent,
	)
	if err != nil {
		onEvent(Event{Kind: EventError, Err: err})
		// Persist the error as an assistant message so the transcript
		// stays coherent on resume.
		errMsg := domain.TranscriptMessage{Role: domain.RoleAssistant, Content: "Error: " + err.Error()}
		a.mu.Lock()
		a.messages = append(a.messages, errMsg)
		a.mu.Unlock()
		if a.store != nil && a.session != nil {
			if err := a.store.AppendMessage(a.session.ID, domain.RoleAssistant, errMsg.Content, 0); err != nil {
				fmt.Fprintf(os.Stderr, "agent: persist error message: %v\n", err)
			}
		}
		return
	}

	// 3. Update token counts and persist the reply
	if text == "" {
		text = "I could not generate a text response."
	}
	asstMsg := domain.TranscriptMessage{Role: domain.RoleAssistant, Content: text}

	a.mu.Lock()
	a.inputTokens += usage.InputTokens
	a.outputTokens += usage.OutputTokens
	a.messages = append(a.messages, asstMsg)
	inTok, outTok := a.inputTokens, a.outputTokens
	a.mu.Unlock()

	if a.store != nil && a.session != nil {
		if err := a.store.AppendMessage(a.session.ID, domain.RoleAssistant, text, usage.OutputTokens); err != nil {
			fmt.Fprintf(os.Stderr, "agent: persist assistant message: %v\n", err)
		}
		if err := a.store.UpdateSessionTokens(a.session.ID, inTok, outTok); err != nil {
			fmt.Fprintf(os.Stderr, "agent: update session tokens: %v\n", err)
		}
	}

	// 4. Auto-title on first exchange
	a.mu.Lock()
	shouldTitle := !a.titled && !a.userRenamed && a.store != nil && a.session != nil
	if shouldTitle {
		a.titled = true
	}
	a.mu.Unlock()

	if shouldTitle {
		a.setTitleFromFirstMessage(onEvent)
	}

	onEvent(Event{
		Kind:         EventTurnDone,
		StopReason:   stopReason,
		InputTokens:  usage.InputTokens,
		OutputTokens: usage.OutputTokens,
	})
}
