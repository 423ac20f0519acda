package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yourorg/integbuilder/internal/config"
	"github.com/yourorg/integbuilder/pkg/types"
)

func TestGenerateDemoModeIsDeterministic(t *testing.T) {
	cfg := config.LLMConfig{Provider: "anthropic", Model: "m", MaxTokens: 4000}
	g := New(cfg, nil)

	first, err := g.Generate(context.Background(), "https://api.calendly.com/docs", types.AuthAPIKey, "Python")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !first.DemoMode {
		t.Fatalf("expected demo mode without api key")
	}
	if first.Code != DemoCode() {
		t.Fatalf("demo code is not the fixed string")
	}

	second, err := g.Generate(context.Background(), "https://other.example/docs", types.AuthOAuth2, "Go")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if second.Code != first.Code {
		t.Fatalf("demo output must be input-independent")
	}
}

func TestGenerateLiveCallStripsFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"content": []map[string]string{
				{"type": "text", "text": "```python\nimport os\n```"},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg := config.LLMConfig{Provider: "anthropic", APIKey: "key", BaseURL: srv.URL, Model: "m", MaxTokens: 4000}
	g := New(cfg, nil)
	res, err := g.Generate(context.Background(), "https://x.test/docs", types.AuthOAuth2, "Python")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.DemoMode {
		t.Fatalf("live generation marked as demo")
	}
	if res.Code != "import os" {
		t.Fatalf("fences not stripped: %q", res.Code)
	}
}

func TestGenerateWrapsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := config.LLMConfig{Provider: "anthropic", APIKey: "key", BaseURL: srv.URL, Model: "m", MaxTokens: 4000}
	g := New(cfg, nil)
	_, err := g.Generate(context.Background(), "https://x.test/docs", types.AuthOAuth2, "Python")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
}

func TestBuildUserPromptEmbedsConfiguration(t *testing.T) {
	p := BuildUserPrompt("https://api.calendly.com/docs", types.AuthAPIKey, "Python")
	for _, want := range []string{"https://api.calendly.com/docs", "API Key", "Python"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if EstimateTokens("") != 0 {
		t.Fatalf("empty text should be zero tokens")
	}
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 100 {
		t.Fatalf("expected 100 tokens, got %d", got)
	}
}

func TestExtractInsights(t *testing.T) {
	code := "def get_users():\n    # cursor pagination with retry\n    pass\n"
	insights := ExtractInsights(code)
	joined := strings.Join(insights, "\n")
	if !strings.Contains(joined, "cursor") {
		t.Fatalf("expected cursor insight, got %v", insights)
	}
	if !strings.Contains(joined, "retrieval methods") {
		t.Fatalf("expected method count insight, got %v", insights)
	}
}
