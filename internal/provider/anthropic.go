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

// TestAPIURL is overridden in tests to point at a local httptest server.
var TestAPIURL string

// AnthropicMessagesURL is the default Anthropic Messages API endpoint.
const AnthropicMessagesURL = "https://api.anthropic.com/v1/messages"

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct{}

// Name returns "anthropic".
func (p *AnthropicProvider) Name() string { return "anthropic" }

// FetchModels retrieves the available models from the Anthropic API.
func (p *AnthropicProvider) FetchModels(apiKey string) ([]domain.APIModelInfo, error) {
	req, err := http.NewRequest(http.MethodGet, "https://api.anthropic.com/v1/models?limit=100", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

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
		Data []domain.APIModelInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return listResp.Data, nil
}

// StreamMessage sends the conversation to the Anthropic API and streams
// the reply.
func (p *AnthropicProvider) StreamMessage(
	apiKey, modelID string,
	history []domain.TranscriptMessage,
	system string,
	onDelta func(string),
) (string, string, Usage, error) {
	url := AnthropicMessagesURL
	if TestAPIURL != "" {
		url = TestAPIURL
	}
	return anthropicStreamWithURL(url, apiKey, modelID, history, system, onDelta)
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
	System    string             `json:"system,omitempty"`
}

// anthropicSSEEvent covers the event shapes quill consumes; unknown
// event types fall through harmlessly.
type anthropicSSEEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Message *struct {
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ---------------------------------------------------------------------------
// Streaming implementation
// ---------------------------------------------------------------------------

func anthropicStreamWithURL(
	apiURL, apiKey, modelID string,
	history []domain.TranscriptMessage,
	system string,
	onDelta func(string),
) (string, string, Usage, error) {
	reqBody := anthropicRequest{
		Model:     modelID,
		MaxTokens: 8192,
		Messages:  buildAnthropicMessages(history),
		Stream:    true,
		System:    system,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", Usage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return "", "", Usage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	// Prevent proxies from injecting compression on the SSE stream.
	req.Header.Set("Accept-Encoding", "identity")

	waitSendSlot("anthropic")
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

	return parseAnthropicSSE(&lenientReader{r: resp.Body}, onDelta)
}

// parseErrorBody extracts {"error":{"type","message"}} from an error
// response body, falling back to the HTTP status.
func parseErrorBody(raw []byte, statusCode int) (string, string) {
	var errResp struct {
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error != nil {
		return errResp.Error.Type, errResp.Error.Message
	}
	return "", fmt.Sprintf("HTTP %d", statusCode)
}

// buildAnthropicMessages converts transcript messages to API format.
func buildAnthropicMessages(history []domain.TranscriptMessage) []anthropicMessage {
	msgs := make([]anthropicMessage, 0, len(history))
	for _, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// parseAnthropicSSE consumes the event stream. The body should be a
// *lenientReader so transport errors are absorbed and everything that
// arrived still gets parsed; a transport error after the text already
// streamed is salvaged as a normal end_turn.
func parseAnthropicSSE(body io.Reader, onDelta func(string)) (string, string, Usage, error) {
	var text strings.Builder
	usage := Usage{}
	stopReason := ""

	scanner := sseScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var event anthropicSSEEvent
		if json.Unmarshal([]byte(data), &event) != nil {
			continue
		}

		switch event.Type {
		case "error":
			// Mid-stream error from the API (e.g. overloaded_error).
			errType := ""
			errMsg := "unknown API error"
			if event.Error != nil {
				errType = event.Error.Type
				errMsg = event.Error.Message
			}
			return text.String(), stopReason, usage,
				&APIError{StatusCode: 0, ErrorType: errType, Message: errMsg}

		case "message_start":
			if event.Message != nil {
				usage.InputTokens = event.Message.Usage.InputTokens
			}

		case "content_block_delta":
			if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
				text.WriteString(event.Delta.Text)
				if onDelta != nil {
					onDelta(event.Delta.Text)
				}
			}

		case "message_delta":
			if event.Usage.OutputTokens > 0 {
				usage.OutputTokens = event.Usage.OutputTokens
			}
			if event.Delta.StopReason != "" {
				stopReason = event.Delta.StopReason
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
	if transportErr != nil && stopReason == "" {
		if text.Len() > 0 {
			return text.String(), "end_turn", usage, nil
		}
		return "", "", usage, fmt.Errorf("reading stream: %w", transportErr)
	}

	return text.String(), stopReason, usage, nil
}
