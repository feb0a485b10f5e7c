package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/quillchat/quill/internal/domain"
)

func TestAnthropicProvider_StreamMessage(t *testing.T) {
	var gotReq anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("anthropic-version = %q", r.Header.Get("anthropic-version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\n")
		fmt.Fprint(w, `data: {"type":"message_start","message":{"usage":{"input_tokens":42}}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello "}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"world"}}`+"\n\n")
		fmt.Fprint(w, `data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":7}}`+"\n\n")
	}))
	defer ts.Close()

	TestAPIURL = ts.URL
	t.Cleanup(func() { TestAPIURL = "" })

	history := []domain.TranscriptMessage{
		{Role: domain.RoleUser, Content: "say hello"},
	}
	p := &AnthropicProvider{}
	var deltas []string
	text, stop, usage, err := p.StreamMessage("test-key", "claude-sonnet-4-20250514", history, "be brief", func(s string) {
		deltas = append(deltas, s)
	})
	if err != nil {
		t.Fatalf("StreamMessage error: %v", err)
	}
	if text != "Hello world" {
		t.Fatalf("text = %q", text)
	}
	if stop != "end_turn" {
		t.Fatalf("stop = %q, want end_turn", stop)
	}
	if usage.InputTokens != 42 || usage.OutputTokens != 7 {
		t.Fatalf("usage = %+v, want input=42 output=7", usage)
	}
	if got := strings.Join(deltas, ""); got != "Hello world" {
		t.Fatalf("delta concat = %q", got)
	}

	if gotReq.Model != "claude-sonnet-4-20250514" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if !gotReq.Stream {
		t.Error("request should set stream:true")
	}
	if gotReq.System != "be brief" {
		t.Errorf("request system = %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "say hello" {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
}

func TestAnthropicProvider_StreamMessage_RateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("retry-after-ms", "350")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer ts.Close()

	TestAPIURL = ts.URL
	t.Cleanup(func() { TestAPIURL = "" })

	p := &AnthropicProvider{}
	_, _, _, err := p.StreamMessage("test-key", "claude-sonnet-4-20250514", nil, "", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if apiErr.ErrorType != "rate_limit_error" {
		t.Errorf("ErrorType = %q", apiErr.ErrorType)
	}
	if apiErr.RetryAfterMs != 350 {
		t.Errorf("RetryAfterMs = %d, want 350", apiErr.RetryAfterMs)
	}
	if !apiErr.IsRetryable() {
		t.Error("429 should be retryable")
	}
}

func TestParseAnthropicSSE_MidStreamError(t *testing.T) {
	sse := `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"partial"}}

data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}
`
	text, _, _, err := parseAnthropicSSE(strings.NewReader(sse), nil)
	if text != "partial" {
		t.Fatalf("text = %q, want partial text preserved", text)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 0 || apiErr.ErrorType != "overloaded_error" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if !apiErr.IsRetryable() {
		t.Error("mid-stream overloaded_error should be retryable")
	}
}

// failingReader simulates a connection dropped mid-stream.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestParseAnthropicSSE_SalvagesTruncatedStream(t *testing.T) {
	sse := `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"kept text"}}
`
	body := &lenientReader{r: io.MultiReader(strings.NewReader(sse), failingReader{})}
	text, stop, _, err := parseAnthropicSSE(body, nil)
	if err != nil {
		t.Fatalf("expected salvage, got error: %v", err)
	}
	if text != "kept text" {
		t.Fatalf("text = %q", text)
	}
	if stop != "end_turn" {
		t.Fatalf("stop = %q, want end_turn", stop)
	}
}

func TestParseAnthropicSSE_TruncatedStreamWithNoTextFails(t *testing.T) {
	body := &lenientReader{r: failingReader{}}
	_, _, _, err := parseAnthropicSSE(body, nil)
	if err == nil {
		t.Fatal("expected error for empty truncated stream")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("err = %v, want wrapped transport error", err)
	}
}

func TestParseErrorBody(t *testing.T) {
	errType, errMessage := parseErrorBody([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`), 401)
	if errType != "authentication_error" {
		t.Errorf("errType = %q", errType)
	}
	if errMessage != "invalid x-api-key" {
		t.Errorf("errMessage = %q", errMessage)
	}

	errType, errMessage = parseErrorBody([]byte("not json"), 502)
	if errType != "" {
		t.Errorf("errType = %q, want empty", errType)
	}
	if errMessage != "HTTP 502" {
		t.Errorf("errMessage = %q, want HTTP 502", errMessage)
	}
}
