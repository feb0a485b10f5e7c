package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quillchat/quill/internal/domain"
)

// OpenAIChatURL is the OpenAI chat completions endpoint.
const OpenAIChatURL = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider implements Provider for the OpenAI Chat Completions API.
type OpenAIProvider struct{}

// Name returns "openai".
func (p *OpenAIProvider) Name() string { return "openai" }

// FetchModels retrieves chat-capable models from the OpenAI API.
func (p *OpenAIProvider) FetchModels(apiKey string) ([]domain.APIModelInfo, error) {
	req, err := http.NewRequest(http.MethodGet, "https://api.openai.com/v1/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		errType, errMessage := parseErrorBody(raw, resp.StatusCode)
		return nil, NewAPIError(resp.StatusCode, errType, errMessage, resp.Header)
	}

	var listResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var models []domain.APIModelInfo
	for _, m := range listResp.Data {
		if !isOpenAIChatModel(m.ID) {
			continue
		}
		models = append(models, domain.APIModelInfo{ID: m.ID, DisplayName: m.ID})
	}
	return models, nil
}

// isOpenAIChatModel filters the model list down to chat completion
// models; the listing endpoint also returns embeddings, TTS, etc.
func isOpenAIChatModel(id string) bool {
	for _, prefix := range []string{"gpt-4", "gpt-3.5", "o1", "o3", "o4"} {
		if strings.HasPrefix(id, prefix) {
			return true
		}
	}
	return false
}

// StreamMessage sends the conversation to the OpenAI API and streams
// the reply.
func (p *OpenAIProvider) StreamMessage(
	apiKey, modelID string,
	history []domain.TranscriptMessage,
	system string,
	onDelta func(string),
) (string, string, Usage, error) {
	reqBody := openaiRequest{
		Model:         modelID,
		Messages:      buildOpenAIMessages(history, system),
		Stream:        true,
		StreamOptions: &openaiStreamOptions{IncludeUsage: true},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", Usage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, OpenAIChatURL, bytes.NewReader(body))
	if err != nil {
		return "", "", Usage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Accept-Encoding", "identity")

	waitSendSlot("openai")
	resp, err := streamHTTPClient.Do(req)
	if err != nil {
		return "", "", Usage{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		errType, errMessage := parseErrorBody(raw, resp.StatusCode)
		return "", "", Usage{}, NewAPIError(resp.StatusCode, errType, errMessage, resp.Header)
	}

	return parseOpenAISSE(&lenientReader{r: resp.Body}, onDelta)
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openaiRequest struct {
	Model         string               `json:"model"`
	Messages      []openaiMessage      `json:"messages"`
	Stream        bool                 `json:"stream"`
	StreamOptions *openaiStreamOptions `json:"stream_options,omitempty"`
}

type openaiSSEChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// buildOpenAIMessages converts transcript messages to API format; the
// system prompt goes first as a system-role message.
func buildOpenAIMessages(history []domain.TranscriptMessage, system string) []openaiMessage {
	msgs := make([]openaiMessage, 0, len(history)+1)
	if system != "" {
		msgs = append(msgs, openaiMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		msgs = append(msgs, openaiMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// parseOpenAISSE consumes the chat completions event stream.
func parseOpenAISSE(body io.Reader, onDelta func(string)) (string, string, Usage, error) {
	var text strings.Builder
	usage := Usage{}
	finishReason := ""

	scanner := sseScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk openaiSSEChunk
		if json.Unmarshal([]byte(data), &chunk) != nil {
			continue
		}

		if chunk.Usage != nil {
			usage.InputTokens = chunk.Usage.PromptTokens
			usage.OutputTokens = chunk.Usage.CompletionTokens
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				text.WriteString(choice.Delta.Content)
				if onDelta != nil {
					onDelta(choice.Delta.Content)
				}
			}
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				finishReason = *choice.FinishReason
			}
		}
	}

	var transportErr error
	if lr, ok := body.(*lenientReader); ok {
		transportErr = lr.err
	}
	if scanErr := scanner.Err(); scanErr != nil {
		transportErr = scanErr
	}
	if transportErr != nil && finishReason == "" {
		if text.Len() > 0 {
			return text.String(), "end_turn", usage, nil
		}
		return "", "", usage, fmt.Errorf("reading stream: %w", transportErr)
	}

	return text.String(), normalizeOpenAIStop(finishReason), usage, nil
}

// normalizeOpenAIStop maps OpenAI finish reasons onto the Anthropic
// vocabulary the rest of quill speaks.
func normalizeOpenAIStop(reason string) string {
	switch reason {
	case "", "stop", "content_filter":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return reason
	}
}
