package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noWait(t *testing.T) {
	t.Helper()
	orig := waitFn
	waitFn = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	t.Cleanup(func() { waitFn = orig })
}

func TestCompleteOpenAI(t *testing.T) {
	var hit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hit, 1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "generated code"}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := &Client{Provider: ProviderOpenAI, BaseURL: srv.URL, APIKey: "key", Model: "gpt-4o"}
	out, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "generated code" {
		t.Fatalf("unexpected output %q", out)
	}
	if atomic.LoadInt32(&hit) != 1 {
		t.Fatalf("expected 1 request, got %d", hit)
	}
}

func TestCompleteAnthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Errorf("missing anthropic-version header")
		}
		var req struct {
			System string `json:"system"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.System != "sys" {
			t.Errorf("system prompt not set: %q", req.System)
		}
		resp := map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": "anthropic output"},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := &Client{Provider: ProviderAnthropic, BaseURL: srv.URL, APIKey: "key", Model: "claude-sonnet-4-20250514"}
	out, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "anthropic output" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestCompleteRetriesOn5xx(t *testing.T) {
	noWait(t)
	var hit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hit, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"boom"}`))
			return
		}
		resp := map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "ok"}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := &Client{Provider: ProviderAnthropic, BaseURL: srv.URL, Model: "m"}
	out, err := client.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	if atomic.LoadInt32(&hit) != 2 {
		t.Fatalf("expected 2 requests, got %d", hit)
	}
}

func TestCompleteHonorsRetryAfter(t *testing.T) {
	var waits []time.Duration
	orig := waitFn
	waitFn = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { waitFn = orig })

	var hit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hit, 1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		resp := map[string]interface{}{
			"content": []map[string]string{{"type": "text", "text": "ok"}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := &Client{Provider: ProviderAnthropic, BaseURL: srv.URL, Model: "m"}
	if _, err := client.Complete(context.Background(), "sys", "user"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if len(waits) != 1 || waits[0] != 7*time.Second {
		t.Fatalf("expected one 7s wait, got %v", waits)
	}
}

func TestCompleteFailsOn4xxWithoutRetry(t *testing.T) {
	var hit int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hit, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	client := &Client{Provider: ProviderAnthropic, BaseURL: srv.URL, Model: "m"}
	if _, err := client.Complete(context.Background(), "sys", "user"); err == nil {
		t.Fatalf("expected error on 401")
	}
	if atomic.LoadInt32(&hit) != 1 {
		t.Fatalf("401 must not be retried, got %d requests", hit)
	}
}

func TestStripMarkdownCodeBlock(t *testing.T) {
	in := "```python\nprint('hi')\n```"
	if got := stripMarkdownCodeBlock(in); got != "print('hi')" {
		t.Fatalf("unexpected strip result %q", got)
	}
	if got := stripMarkdownCodeBlock("plain"); got != "plain" {
		t.Fatalf("plain text changed: %q", got)
	}
}
