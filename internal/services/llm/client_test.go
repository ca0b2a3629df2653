package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func chatServer(t *testing.T, handler func(calls int) map[string]any) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := json.NewEncoder(w).Encode(handler(calls)); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestClientCompleteSendsTextRequest(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "carinspect narrative" {
			t.Errorf("unexpected title header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "  Overall the car looks fine.\n"}}},
		})
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:      "test",
		BaseURL:     server.URL,
		Model:       "demo-model",
		Title:       "carinspect narrative",
		Temperature: 0.4,
		MaxTokens:   420,
	})
	text, err := client.Complete(context.Background(), "You write inspection notes.", "Summarize.")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "Overall the car looks fine." {
		t.Fatalf("unexpected text %q", text)
	}
	if captured["max_tokens"] != float64(420) || captured["temperature"] != 0.4 {
		t.Fatalf("unexpected sampling settings: %v", captured)
	}
	messages, _ := captured["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", messages)
	}
}

func TestClientCompleteRequiresKeyAndPrompt(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Model: "demo"})
	if _, err := client.Complete(context.Background(), "", "hello"); err == nil || !strings.Contains(err.Error(), "api key") {
		t.Fatalf("expected api key error, got %v", err)
	}
	client = NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1", Model: "demo"})
	if _, err := client.Complete(context.Background(), "", "   "); err == nil || !strings.Contains(err.Error(), "user prompt") {
		t.Fatalf("expected user prompt error, got %v", err)
	}
}

func TestClientEmptyContentHasSnippet(t *testing.T) {
	server, _ := chatServer(t, func(int) map[string]any {
		return map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message":       map[string]any{"content": ""},
				},
			},
		}
	})

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Complete(context.Background(), "", "write")
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "response_snippet=") {
		t.Fatalf("expected empty-content error to include snippet, got %v", err)
	}
}

func TestClientDeltaAndLegacyText(t *testing.T) {
	for name, choice := range map[string]map[string]any{
		"delta":  {"delta": map[string]any{"content": "from delta"}},
		"legacy": {"finish_reason": "stop", "text": "from text"},
	} {
		t.Run(name, func(t *testing.T) {
			server, _ := chatServer(t, func(int) map[string]any {
				return map[string]any{"choices": []any{choice}}
			})
			client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
			text, err := client.Complete(context.Background(), "", "write")
			if err != nil {
				t.Fatalf("Complete returned error: %v", err)
			}
			if !strings.HasPrefix(text, "from ") {
				t.Fatalf("unexpected text %q", text)
			}
		})
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": "narrative"}},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	text, err := client.Complete(context.Background(), "", "write")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "narrative" {
		t.Fatalf("unexpected text %q", text)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	server, calls := chatServer(t, func(call int) map[string]any {
		content := ""
		if call >= 3 {
			content = "third time"
		}
		return map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message":       map[string]any{"content": content},
				},
			},
		}
	})

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	text, err := client.Complete(context.Background(), "", "write")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "third time" {
		t.Fatalf("unexpected text %q", text)
	}
	if *calls != 3 {
		t.Fatalf("expected 3 calls, got %d", *calls)
	}
}

func TestClientSingleAttemptDoesNotRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"}, WithRetryMaxAttempts(1))
	if _, err := client.Complete(context.Background(), "", "write"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestClientRefusalIsReported(t *testing.T) {
	server, calls := chatServer(t, func(int) map[string]any {
		return map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "content_filter",
					"message":       map[string]any{"content": "", "refusal": "cannot comment"},
				},
			},
		}
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo"}, WithRetryMaxAttempts(1))
	_, err := client.Complete(context.Background(), "", "write")
	var empty *EmptyReplyError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyReplyError, got %v", err)
	}
	if empty.FinishReason != "content_filter" || empty.Refusal != "cannot comment" {
		t.Fatalf("unexpected reply details: %+v", empty)
	}
	if *calls != 1 {
		t.Fatalf("expected one call, got %d", *calls)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"}, WithSleeper(func(time.Duration) {}))
	_, err := client.Complete(context.Background(), "", "write")
	var status *StatusError
	if !errors.As(err, &status) || status.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := retryPolicy{attempts: 5, base: time.Second, ceiling: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := p.backoff(i + 1); got != w {
			t.Fatalf("attempt %d: got %s want %s", i+1, got, w)
		}
	}
	if d, ok := p.delay(&StatusError{Code: 503, RetryAfter: time.Minute}, 1); !ok || d != 5*time.Second {
		t.Fatalf("expected retry-after clamped to ceiling, got %s %v", d, ok)
	}
	if _, ok := p.delay(context.Canceled, 1); ok {
		t.Fatal("expected cancellation to stop retries")
	}
	if (retryPolicy{}).maxAttempts() != 1 {
		t.Fatal("expected at least one attempt")
	}
}

func TestRetryAfterHeader(t *testing.T) {
	if got := retryAfter("3"); got != 3*time.Second {
		t.Fatalf("unexpected seconds delay %s", got)
	}
	if got := retryAfter("-1"); got != 0 {
		t.Fatalf("expected negative to be ignored, got %s", got)
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if got := retryAfter(future); got <= 0 {
		t.Fatalf("expected positive delay from http date, got %s", got)
	}
}
