package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inkforge/atlasforge/internal/config"
	"github.com/inkforge/atlasforge/internal/model"
)

func TestNewGateway_UnsupportedProvider(t *testing.T) {
	if _, err := NewGateway("gemini", ClientConfig{}); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestOpenAIGateway_Call_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("expected Bearer auth")
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o" {
			t.Errorf("expected model gpt-4o, got %v", body["model"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	gw, err := NewGateway("openai", ClientConfig{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}

	result, err := gw.Call(context.Background(), CallOptions{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		NovelID:  "novel-1",
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Content != "hello" {
		t.Errorf("Content = %q, want hello", result.Content)
	}
	if result.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", result.Usage.TotalTokens)
	}
}

func TestOpenAIGateway_Call_ContentPolicyClassifiedAndNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"rejected: content_filter triggered"}}`))
	}))
	defer server.Close()

	gw, _ := NewGateway("openai", ClientConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o", Timeout: 5 * time.Second})

	_, err := gw.Call(context.Background(), CallOptions{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error")
	}
	failure, ok := err.(*model.Failure)
	if !ok {
		t.Fatalf("expected *model.Failure, got %T", err)
	}
	if failure.Kind != model.FailureContentPolicy {
		t.Errorf("Kind = %s, want content_policy", failure.Kind)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (non-OK non-429 responses are not retried)", attempts)
	}
}

func TestOpenAIGateway_Call_RetriesOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	config.SetLLMTimeouts(config.LLMTimeouts{
		HTTPClientTimeout: 5 * time.Second,
		PerCallTimeout:    5 * time.Second,
		RetryBackoffBase:  1 * time.Millisecond,
		RetryBackoffMax:   5 * time.Millisecond,
		MaxRetries:        3,
	})
	defer config.SetLLMTimeouts(config.DefaultLLMTimeouts())

	gw, _ := NewGateway("openai", ClientConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o", Timeout: 5 * time.Second})
	result, err := gw.Call(context.Background(), CallOptions{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Content != "ok" {
		t.Errorf("Content = %q, want ok", result.Content)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestOpenAIGateway_DetectContextWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"context_length":32768}`))
	}))
	defer server.Close()

	gw, _ := NewGateway("openai", ClientConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o"})
	if got := gw.DetectContextWindow(context.Background()); got != 32768 {
		t.Errorf("DetectContextWindow = %d, want 32768", got)
	}
	// Cached on second call.
	if got := gw.DetectContextWindow(context.Background()); got != 32768 {
		t.Errorf("cached DetectContextWindow = %d, want 32768", got)
	}
}

func TestOpenAIGateway_DetectContextWindow_FallsBackOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	gw, _ := NewGateway("openai", ClientConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o"})
	if got := gw.DetectContextWindow(context.Background()); got != 8192 {
		t.Errorf("DetectContextWindow = %d, want fallback 8192", got)
	}
}

func TestOpenAIGateway_SetModel_InvalidatesWindowCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"context_length":4096}`))
	}))
	defer server.Close()

	gw, _ := NewGateway("openai", ClientConfig{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o"})
	gw.DetectContextWindow(context.Background())
	gw.SetModel("gpt-4o-mini")
	gw.DetectContextWindow(context.Background())

	if calls != 2 {
		t.Errorf("calls = %d, want 2 (SetModel should invalidate the cache)", calls)
	}
}

func TestAnthropicGateway_Call_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("expected x-api-key auth")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("expected anthropic-version header")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"content":[{"type":"text","text":"hello from claude"}],"usage":{"input_tokens":20,"output_tokens":8}}`))
	}))
	defer server.Close()

	gw, _ := NewGateway("anthropic", ClientConfig{APIKey: "test-key", BaseURL: server.URL, Model: "claude-sonnet-4-5", Timeout: 5 * time.Second})

	result, err := gw.Call(context.Background(), CallOptions{
		Messages: []Message{
			{Role: RoleSystem, Content: "system prompt"},
			{Role: RoleUser, Content: "hi"},
		},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Content != "hello from claude" {
		t.Errorf("Content = %q", result.Content)
	}
	if result.Usage.TotalTokens != 28 {
		t.Errorf("TotalTokens = %d, want 28", result.Usage.TotalTokens)
	}
}

func TestAnthropicGateway_Call_InjectsSchemaIntoSystemPrompt(t *testing.T) {
	var capturedSystem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		capturedSystem, _ = body["system"].(string)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"content":[{"type":"text","text":"{}"}]}`))
	}))
	defer server.Close()

	gw, _ := NewGateway("anthropic", ClientConfig{APIKey: "k", BaseURL: server.URL, Model: "claude-sonnet-4-5", Timeout: 5 * time.Second})
	_, err := gw.Call(context.Background(), CallOptions{
		Messages:       []Message{{Role: RoleUser, Content: "extract facts"}},
		ResponseFormat: ResponseFormatJSONSchema,
		SchemaName:     "ChapterFact",
		Schema:         map[string]any{"type": "object"},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(capturedSystem, "ChapterFact") {
		t.Errorf("expected schema name injected into system prompt, got %q", capturedSystem)
	}
}

func TestAnthropicGateway_DetectContextWindow_AlwaysUnknown(t *testing.T) {
	gw, _ := NewGateway("anthropic", ClientConfig{APIKey: "k", BaseURL: "http://unused", Model: "claude-sonnet-4-5"})
	if got := gw.DetectContextWindow(context.Background()); got != 0 {
		t.Errorf("DetectContextWindow = %d, want 0 (no introspection endpoint)", got)
	}
}
