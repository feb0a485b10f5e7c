package agent

import (
	"testing"

	"github.com/quillchat/quill/internal/domain"
)

func TestService_Session(t *testing.T) {
	sess := &domain.Session{ID: "sess-1", Title: "test"}
	svc := &Service{session: sess}
	got := svc.Session()
	if got != sess {
		t.Errorf("expected session pointer %p, got %p", sess, got)
	}
}

func TestService_SetProvider(t *testing.T) {
	svc := &Service{apiKey: "old-key"}
	svc.SetProvider(&mockProvider{}, "new-key")
	if svc.apiKey != "new-key" {
		t.Errorf("expected apiKey=new-key, got %s", svc.apiKey)
	}
	if !svc.HasProvider() {
		t.Error("expected provider to be set")
	}
	if svc.ProviderName() != "mock" {
		t.Errorf("provider name = %q", svc.ProviderName())
	}
}

func TestService_Resume_noStore(t *testing.T) {
	svc := &Service{}
	if err := svc.Resume(); err == nil {
		t.Error("expected error when store is nil")
	}
}

func TestService_Resume_noSession(t *testing.T) {
	svc := &Service{store: newMockStore()}
	if err := svc.Resume(); err == nil {
		t.Error("expected error when session is nil")
	}
}

func TestService_Resume_loadsMessages(t *testing.T) {
	st := newMockStore()
	sess := &domain.Session{ID: "sess-resume"}
	st.addSession(sess)
	if err := st.AppendMessage(sess.ID, "user", "hi", 0); err != nil {
		t.Fatal(err)
	}
	if err := st.AppendMessage(sess.ID, "assistant", "hello", 0); err != nil {
		t.Fatal(err)
	}

	svc := &Service{store: st, session: sess}
	if err := svc.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	msgs := svc.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	// Resumed sessions must not be retitled.
	if !svc.titled {
		t.Error("expected titled=true after resuming a non-empty session")
	}
}

func TestService_NewSession(t *testing.T) {
	st := newMockStore()
	svc := NewService("k", "model-x", st, nil, &mockProvider{})
	svc.messages = []domain.TranscriptMessage{{Role: "user", Content: "old"}}
	svc.inputTokens = 10
	svc.outputTokens = 20

	if err := svc.NewSession(); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if svc.Session() == nil {
		t.Fatal("expected a session")
	}
	if svc.Session().Provider != "mock" || svc.Session().Model != "model-x" {
		t.Errorf("session = %+v", svc.Session())
	}
	if len(svc.Messages()) != 0 {
		t.Error("expected conversation state reset")
	}
	if in, out := svc.TokenTotals(); in != 0 || out != 0 {
		t.Errorf("token totals = %d/%d, want 0/0", in, out)
	}
}

func TestService_SetSession(t *testing.T) {
	svc := NewService("k", "fallback-model", nil, nil, nil)
	sess := &domain.Session{ID: "s2", Model: "stored-model", InputTokens: 7, OutputTokens: 3}
	svc.SetSession(sess)

	if svc.ModelID() != "stored-model" {
		t.Errorf("model = %q, want the session's model", svc.ModelID())
	}
	if in, out := svc.TokenTotals(); in != 7 || out != 3 {
		t.Errorf("token totals = %d/%d, want 7/3", in, out)
	}
}

func TestService_SetModel(t *testing.T) {
	st := newMockStore()
	sess := &domain.Session{ID: "s3"}
	st.addSession(sess)
	svc := NewService("k", "old", st, sess, nil)

	svc.SetModel("new-model")
	if svc.ModelID() != "new-model" {
		t.Errorf("model = %q", svc.ModelID())
	}
	if st.session("s3").Model != "new-model" {
		t.Errorf("persisted model = %q", st.session("s3").Model)
	}
}

func TestService_Messages_returnsCopy(t *testing.T) {
	svc := &Service{messages: []domain.TranscriptMessage{{Role: "user", Content: "a"}}}
	got := svc.Messages()
	got[0].Content = "mutated"
	if svc.messages[0].Content != "a" {
		t.Error("Messages() must return a copy")
	}
}
