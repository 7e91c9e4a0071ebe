package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zoobzio/phasr"
)

func TestProvider_Call(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotBody messagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "{\"ok\": true}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 12, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	provider := New(Config{APIKey: "default-key", BaseURL: server.URL})
	resp, err := provider.Call(context.Background(), phasr.CallRequest{
		SystemPrompt: "be terse",
		UserPrompt:   "plan",
		Model:        "claude-test",
		APIKey:       "stage-key",
		MaxTokens:    1000,
	})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}

	if gotPath != "/messages" {
		t.Errorf("expected /messages, got %s", gotPath)
	}
	if gotKey != "stage-key" {
		t.Errorf("expected per-call api key, got %q", gotKey)
	}
	if gotVersion != APIVersion {
		t.Errorf("expected version header %q, got %q", APIVersion, gotVersion)
	}
	if gotBody.System != "be terse" || gotBody.MaxTokens != 1000 || gotBody.Model != "claude-test" {
		t.Errorf("unexpected request body %+v", gotBody)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" || gotBody.Messages[0].Content != "plan" {
		t.Errorf("unexpected messages %+v", gotBody.Messages)
	}

	if resp.Text != `{"ok": true}` {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Usage.Total != 17 {
		t.Errorf("expected 17 total tokens, got %d", resp.Usage.Total)
	}
	var sent messagesRequest
	if err := json.Unmarshal([]byte(resp.RequestBody), &sent); err != nil || sent.System != "be terse" {
		t.Errorf("request body not recorded: %q", resp.RequestBody)
	}
}

func TestProvider_Defaults(t *testing.T) {
	var gotBody messagesRequest
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"content": []}`))
	}))
	defer server.Close()

	provider := New(Config{APIKey: "default-key", BaseURL: server.URL})
	resp, err := provider.Call(context.Background(), phasr.CallRequest{UserPrompt: "plan"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if gotKey != "default-key" || gotBody.Model != "claude-sonnet-4-20250514" || gotBody.MaxTokens != phasr.DefaultMaxTokens {
		t.Errorf("defaults not applied: key=%q body=%+v", gotKey, gotBody)
	}
	if resp.Text != "" {
		t.Errorf("expected empty text for empty content, got %q", resp.Text)
	}
}

func TestProvider_HTTPError(t *testing.T) {
	const body = `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(529)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	provider := New(Config{APIKey: "k", BaseURL: server.URL})
	resp, err := provider.Call(context.Background(), phasr.CallRequest{UserPrompt: "plan"})

	var httpErr *phasr.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *phasr.HTTPError, got %v", err)
	}
	if err.Error() != body {
		t.Errorf("expected verbatim body, got %q", err.Error())
	}
	if httpErr.StatusCode != 529 {
		t.Errorf("expected 529, got %d", httpErr.StatusCode)
	}
	if resp == nil || resp.RequestBody == "" {
		t.Error("request body should be returned with the error")
	}
	if calls != 1 {
		t.Errorf("expected no retry, got %d calls", calls)
	}
}

func TestProvider_Identity(t *testing.T) {
	p := New(Config{})
	if p.Name() != "anthropic" || p.Family() != phasr.FamilyMessages {
		t.Errorf("unexpected identity %s/%s", p.Name(), p.Family())
	}
}
