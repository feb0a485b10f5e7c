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

var ollamaBaseURL = "http://localhost:11434"

// SetOllamaBaseURL overrides the Ollama server address. An empty value
// restores the default localhost endpoint.
func SetOllamaBaseURL(url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		ollamaBaseURL = "http://localhost:11434"
		return
	}
	ollamaBaseURL = strings.TrimRight(url, "/")
}

// OllamaProvider implements Provider for a local Ollama server. No API
// key is required; the apiKey argument is ignored.
type OllamaProvider struct{}

// Name returns "ollama".
func (p *OllamaProvider) Name() string { return "ollama" }

// FetchModels lists the models installed on the Ollama server.
func (p *OllamaProvider) FetchModels(apiKey string) ([]domain.APIModelInfo, error) {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(ollamaBaseURL + "/api/tags")
	if err != nil {
		return nil, fmt.Errorf("connecting to ollama at %s: %w", ollamaBaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, NewAPIError(resp.StatusCode, "", strings.TrimSpace(string(raw)), resp.Header)
	}

	var listResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var models []domain.APIModelInfo
	for _, m := range listResp.Models {
		models = append(models, domain.APIModelInfo{ID: m.Name, DisplayName: m.Name})
	}
	return models, nil
}

// StreamMessage sends the conversation to the Ollama /api/chat endpoint
// and streams the reply as NDJSON.
func (p *OllamaProvider) StreamMessage(
	apiKey, modelID string,
	history []domain.TranscriptMessage,
	system string,
	onDelta func(string),
) (string, string, Usage, error) {
	reqBody := ollamaRequest{
		Model:    modelID,
		Messages: buildOllamaMessages(history, system),
		Stream:   true,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", "", Usage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, ollamaBaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", "", Usage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("content-type", "application/json")

	waitSendSlot("ollama")
	resp, err := streamHTTPClient.Do(req)
	if err != nil {
		return "", "", Usage{}, fmt.Errorf("connecting to ollama at %s: %w", ollamaBaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		var errResp struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return "", "", Usage{}, NewAPIError(resp.StatusCode, "", msg, resp.Header)
	}

	return parseOllamaStream(&lenientReader{r: resp.Body}, onDelta)
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChunk struct {
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// buildOllamaMessages converts transcript messages to API format; the
// system prompt goes first as a system-role message.
func buildOllamaMessages(history []domain.TranscriptMessage, system string) []ollamaMessage {
	msgs := make([]ollamaMessage, 0, len(history)+1)
	if system != "" {
		msgs = append(msgs, ollamaMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			continue
		}
		msgs = append(msgs, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// parseOllamaStream consumes the NDJSON response stream.
func parseOllamaStream(body io.Reader, onDelta func(string)) (string, string, Usage, error) {
	var text strings.Builder
	usage := Usage{}
	doneReason := ""
	done := false

	scanner := sseScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var chunk ollamaChunk
		if json.Unmarshal([]byte(line), &chunk) != nil {
			continue
		}

		if chunk.Message != nil && chunk.Message.Content != "" {
			text.WriteString(chunk.Message.Content)
			if onDelta != nil {
				onDelta(chunk.Message.Content)
			}
		}
		if chunk.Done {
			done = true
			doneReason = chunk.DoneReason
			if chunk.PromptEvalCount > 0 {
				usage.InputTokens = chunk.PromptEvalCount
			}
			if chunk.EvalCount > 0 {
				usage.OutputTokens = chunk.EvalCount
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
	if transportErr != nil && !done {
		if text.Len() > 0 {
			return text.String(), "end_turn", usage, nil
		}
		return "", "", usage, fmt.Errorf("reading stream: %w", transportErr)
	}

	return text.String(), normalizeOllamaStop(doneReason), usage, nil
}

// normalizeOllamaStop maps Ollama done reasons onto the Anthropic
// vocabulary the rest of quill speaks.
func normalizeOllamaStop(reason string) string {
	switch reason {
	case "", "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	default:
		return reason
	}
}
