// Package agent runs the conversation turn: persist the user message,
// stream the assistant reply with retry, persist the finalized reply.
// It is UI-agnostic; adapters observe progress through an event
// callback.
package agent

import (
	"sync"
	"time"

	"github.com/quillchat/quill/internal/domain"
	"github.com/quillchat/quill/internal/provider"
)

// ---------------------------------------------------------------------------
// Agent event types -- used by adapters to observe turn progress
// ---------------------------------------------------------------------------

// EventKind classifies agent events.
type EventKind int

const (
	EventDelta    EventKind = iota // streaming text chunk
	EventTurnDone                  // turn complete: reply persisted
	EventError                     // unrecoverable error
	EventRetrying                  // rate limit / stream retry in progress
	EventTitled                    // session title set from first exchange
)

// Event carries data for a single agent event.
type Event struct {
	Kind         EventKind
	DeltaText    string        // EventDelta
	StopReason   string        // EventTurnDone
	InputTokens  int           // EventTurnDone
	OutputTokens int           // EventTurnDone
	Err          error         // EventError
	NewTitle     string        // EventTitled
	RetryAttempt int           // EventRetrying
	RetryAfter   time.Duration // EventRetrying
	RetryMessage string        // EventRetrying
}

// EventFunc is the callback signature for agent event delivery.
// Called synchronously from Submit's goroutine. The adapter handles
// thread safety on its side.
type EventFunc func(Event)

// ---------------------------------------------------------------------------
// Store interface -- decouples agent from concrete store implementation
// ---------------------------------------------------------------------------

// Store is the interface the agent uses for persistence. The concrete
// implementation lives in the store package.
type Store interface {
	AppendMessage(sessionID, role, content string, tokens int) error
	UpdateSessionTokens(sessionID string, inputTokens, outputTokens int) error
	UpdateSessionTitle(sessionID, title string) error
	UpdateSessionModel(sessionID, model string) error
	GetMessages(sessionID string) ([]domain.TranscriptMessage, error)
	CreateSession(providerName, model string) (*domain.Session, error)
}

// ---------------------------------------------------------------------------
// Service -- one conversation, drivable by any adapter
// ---------------------------------------------------------------------------

// Service owns the conversation state for one session. Adapters (TUI,
// replay driver) call Submit() from a goroutine and receive progress
// via the callback.
type Service struct {
	mu sync.Mutex

	apiKey  string
	modelID string
	prov    provider.Provider

	store   Store
	session *domain.Session

	messages     []domain.TranscriptMessage
	inputTokens  int
	outputTokens int

	running     bool
	cancelled   bool
	titled      bool
	userRenamed bool // true when user manually renamed the session
}

// NewService creates a Service for the given session.
func NewService(apiKey, modelID string, store Store, session *domain.Session, prov provider.Provider) *Service {
	var inTok, outTok int
	if session != nil {
		inTok = session.InputTokens
		outTok = session.OutputTokens
	}
	return &Service{
		apiKey:       apiKey,
		modelID:      modelID,
		prov:         prov,
		store:        store,
		session:      session,
		inputTokens:  inTok,
		outputTokens: outTok,
	}
}
