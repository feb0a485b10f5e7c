package provider

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/quillchat/quill/internal/domain"
)

// DefaultAnthropicModel is used when the user picks "anthropic" without
// naming a model.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// ModelAliases maps user-friendly names to Anthropic API model IDs.
var ModelAliases = map[string]string{
	"claude-sonnet": "claude-sonnet-4-20250514",
	"claude-opus":   "claude-opus-4-1-20250805",
	"claude-haiku":  "claude-3-5-haiku-20241022",
}

// ResolveModel maps user-friendly names to Anthropic API model IDs.
func ResolveModel(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultAnthropicModel
	}
	trimmed = strings.TrimPrefix(trimmed, "anthropic/")
	if resolved, ok := ModelAliases[strings.ToLower(trimmed)]; ok {
		return resolved
	}
	return trimmed
}

// PricingMap is populated at startup from ~/.config/quill/pricing.json,
// falling back to built-in defaults. Set from main via SetPricingMap.
var PricingMap map[string]domain.ModelPricing

// SetPricingMap sets the global pricing map.
func SetPricingMap(m map[string]domain.ModelPricing) {
	PricingMap = m
}

// ModelCost returns the estimated USD cost for the given token counts,
// zero for models without a pricing entry.
func ModelCost(modelID string, inputTokens, outputTokens int) float64 {
	p, ok := PricingMap[modelID]
	if !ok {
		return 0
	}
	return p.Cost(inputTokens, outputTokens)
}

// BuildSystemPrompt returns the system prompt for a chat session.
func BuildSystemPrompt() string {
	return fmt.Sprintf(`You are quill, a chat assistant running in the user's terminal.

Environment:
- Platform: %s/%s
- Date: %s

Guidelines:
- Answer in markdown. Pipe tables, fenced code blocks, lists, and
  headings all render natively in the transcript.
- Prefer a pipe table when comparing or enumerating structured facts.
- Keep code inside fenced blocks with a language tag so it gets
  syntax highlighting and line numbers.
- Be concise. The transcript is a terminal, not a document.`,
		runtime.GOOS, runtime.GOARCH, time.Now().Format("2006-01-02"))
}
