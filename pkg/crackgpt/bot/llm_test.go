package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func ollamaTestConfig(url string) OllamaConfig {
	return OllamaConfig{
		BaseURL:        url,
		Model:          "llama3",
		TimeoutSeconds: 5,
		MaxAttempts:    3,
	}
}

func TestCompleteSuccess(t *testing.T) {
	var gotReq chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Message: ChatMessage{Role: "assistant", Content: "  hello there  "},
			Done:    true,
		})
	}))
	defer ts.Close()

	c := NewOllamaClient(ollamaTestConfig(ts.URL), testLogger())
	reply, err := c.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "be nice"},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "hello there" {
		t.Errorf("expected trimmed reply, got %q", reply)
	}
	if gotReq.Model != "llama3" {
		t.Errorf("expected model llama3, got %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("expected stream=false")
	}
	if len(gotReq.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(gotReq.Messages))
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewOllamaClient(ollamaTestConfig(ts.URL), testLogger())
	_, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrInferenceUnavailable) {
		t.Errorf("expected ErrInferenceUnavailable, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestCompleteEmptyResponseRetried(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		content := ""
		if n >= 2 {
			content = "finally"
		}
		json.NewEncoder(w).Encode(chatResponse{
			Message: ChatMessage{Role: "assistant", Content: content},
			Done:    true,
		})
	}))
	defer ts.Close()

	c := NewOllamaClient(ollamaTestConfig(ts.URL), testLogger())
	reply, err := c.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "finally" {
		t.Errorf("expected reply from second attempt, got %q", reply)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestCompleteStopsOnCancelledContext(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewOllamaClient(ollamaTestConfig(ts.URL), testLogger())
	_, err := c.Complete(ctx, []ChatMessage{{Role: "user", Content: "hi"}})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got > 1 {
		t.Errorf("expected no retries after cancellation, got %d attempts", got)
	}
}

func TestPing(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer ts.Close()

	c := NewOllamaClient(ollamaTestConfig(ts.URL), testLogger())
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	ts.Close()
	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected Ping to fail against closed server")
	}
}

func TestNewOllamaClientDefaults(t *testing.T) {
	c := NewOllamaClient(OllamaConfig{Model: "llama3"}, nil)
	if c.baseURL != "http://localhost:11434" {
		t.Errorf("expected default base URL, got %q", c.baseURL)
	}
	if c.maxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", c.maxAttempts)
	}
}
