package generator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/yourorg/integbuilder/internal/config"
	"github.com/yourorg/integbuilder/pkg/types"
)

// GenerationError wraps any failure of the external generation call. It is
// surfaced inline at the generate step; the workflow stays there for retry.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generation failed: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// Result is the outcome of one successful generation.
type Result struct {
	Code     string
	DemoMode bool
	Insights []string
	Model    string
	Duration time.Duration
}

// Generator produces integration code for a workflow configuration,
// falling back to the bundled demo code when no credential is configured.
type Generator struct {
	cfg    config.LLMConfig
	client *Client
	logger *zap.Logger
}

// New builds a Generator from the LLM config.
func New(cfg config.LLMConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		cfg:    cfg,
		logger: logger,
		client: &Client{
			Provider:    Provider(cfg.Provider),
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Limiter:     rate.NewLimiter(rate.Limit(1), 2),
			Logger:      logger,
		},
	}
}

// Model returns the model name generation runs against, "demo" without a
// credential.
func (g *Generator) Model() string {
	if g.cfg.APIKey == "" {
		return "demo"
	}
	return g.cfg.Model
}

// Generate produces integration code for the given configuration. Without
// an API key it returns the fixed demo code deterministically; that path is
// a design choice, not an error.
func (g *Generator) Generate(ctx context.Context, docURL string, auth types.AuthMethod, language string) (*Result, error) {
	start := time.Now()

	if g.cfg.APIKey == "" {
		g.logger.Info("no llm credential configured, using demo mode",
			zap.String("doc_url", docURL))
		return &Result{
			Code:     DemoCode(),
			DemoMode: true,
			Insights: DemoInsights(),
			Model:    "demo",
			Duration: time.Since(start),
		}, nil
	}

	user := BuildUserPrompt(docURL, auth, language)
	if est := EstimateTokens(user); est > maxPromptTokens {
		return nil, &GenerationError{Err: fmt.Errorf("prompt too large: ~%d tokens", est)}
	}

	content, err := g.client.Complete(ctx, BuildSystemPrompt(), user)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	code := stripMarkdownCodeBlock(content)
	if code == "" {
		return nil, &GenerationError{Err: fmt.Errorf("model returned empty output")}
	}

	g.logger.Info("generation complete",
		zap.String("model", g.cfg.Model),
		zap.Int("code_bytes", len(code)),
		zap.Duration("duration", time.Since(start)))

	return &Result{
		Code:     code,
		Insights: ExtractInsights(code),
		Model:    g.cfg.Model,
		Duration: time.Since(start),
	}, nil
}
