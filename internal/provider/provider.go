package provider

import (
	"fmt"
	"strings"

	"github.com/quillchat/quill/internal/domain"
)

// Usage contains token accounting for one streamed model call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is implemented once per upstream chat API. Implementations
// stream the assistant reply as raw markdown text: onDelta receives
// each chunk exactly as it arrived off the wire, and the full text
// comes back at the end for storage.
type Provider interface {
	// StreamMessage sends the conversation and streams the reply.
	// Returns the complete reply text, the stop reason, and usage.
	StreamMessage(
		apiKey, modelID string,
		history []domain.TranscriptMessage,
		system string,
		onDelta func(string),
	) (string, string, Usage, error)

	// FetchModels retrieves the models this provider can serve.
	FetchModels(apiKey string) ([]domain.APIModelInfo, error)

	// Name returns the provider name ("anthropic", "openai", "ollama").
	Name() string
}

// GetProvider returns a Provider implementation by name.
func GetProvider(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case "":
		return nil, fmt.Errorf("no provider specified; use /config set model <provider>/<model>")
	case "anthropic":
		return &AnthropicProvider{}, nil
	case "openai":
		return &OpenAIProvider{}, nil
	case "ollama":
		return &OllamaProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: anthropic, openai, ollama)", name)
	}
}

// ResolveProviderAndModel parses a model specifier like "openai/gpt-4o"
// or "claude-sonnet" into a (provider, modelID) pair.
//
// Rules:
//   - "openai/gpt-4o" -> ("openai", "gpt-4o")
//   - "anthropic/claude-opus" -> ("anthropic", resolved alias)
//   - "claude-sonnet" -> ("anthropic", resolved alias)
//   - "gemma3:4b" -> ("ollama", "gemma3:4b") -- tag suffix means local
//   - "some-model" -> (currentProvider, "some-model")
func ResolveProviderAndModel(spec, currentProvider string) (string, string) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return currentProvider, ""
	}

	if idx := strings.Index(spec, "/"); idx > 0 {
		prefix := strings.ToLower(spec[:idx])
		model := spec[idx+1:]
		switch prefix {
		case "anthropic":
			return "anthropic", ResolveModel(model)
		case "openai", "ollama":
			return prefix, model
		}
		// Unknown prefix: fall through and treat the whole spec as a
		// model name.
	}

	lower := strings.ToLower(spec)
	if _, ok := ModelAliases[lower]; ok {
		return "anthropic", ResolveModel(spec)
	}
	if strings.HasPrefix(lower, "claude-") {
		return "anthropic", ResolveModel(spec)
	}
	if strings.HasPrefix(lower, "gpt-") || strings.HasPrefix(lower, "o1") ||
		strings.HasPrefix(lower, "o3") || strings.HasPrefix(lower, "o4") {
		return "openai", spec
	}
	// Local model IDs usually carry a tag suffix (e.g. "gemma3:4b").
	if strings.Contains(spec, ":") {
		return "ollama", spec
	}
	return currentProvider, spec
}
