package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Provider selects the wire format of the LLM endpoint.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

const anthropicVersion = "2023-06-01"

// Client talks to a hosted LLM endpoint, speaking either the Anthropic
// messages API or OpenAI-compatible chat completions.
type Client struct {
	Provider    Provider
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
	Limiter     *rate.Limiter
	Logger      *zap.Logger
}

// waitFn is a test seam for retry backoff.
var waitFn = func(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Complete sends one prompt pair and returns the model's text output.
// Retries transient failures (network errors, 429, 5xx) with exponential
// backoff, honoring Retry-After on 429.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	endpoint, body, err := c.buildRequest(systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}
	if c.Logger != nil {
		c.Logger.Debug("llm request",
			zap.String("provider", string(c.Provider)),
			zap.String("url", endpoint),
			zap.String("model", c.Model),
			zap.Int("prompt_bytes", len(userPrompt)))
	}

	var lastErr error
	maxRetries := 3
	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		c.setHeaders(req)

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				if werr := waitFn(ctx, backoff(attempt)); werr != nil {
					return "", werr
				}
				continue
			}
			return "", err
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < maxRetries {
				if werr := waitFn(ctx, backoff(attempt)); werr != nil {
					return "", werr
				}
				continue
			}
			return "", err
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("llm error status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
			if attempt < maxRetries {
				wait := backoff(attempt)
				if resp.StatusCode == http.StatusTooManyRequests {
					if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
						if secs, err := strconv.Atoi(ra); err == nil {
							wait = time.Duration(secs) * time.Second
						}
					}
				}
				if werr := waitFn(ctx, wait); werr != nil {
					return "", werr
				}
				continue
			}
			return "", lastErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", fmt.Errorf("llm error status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}

		content, err := c.parseResponse(data)
		if err != nil {
			return "", err
		}
		if c.Logger != nil {
			c.Logger.Debug("llm response", zap.Int("content_bytes", len(content)))
		}
		return content, nil
	}
	if lastErr == nil {
		lastErr = errors.New("llm request failed")
	}
	return "", lastErr
}

func (c *Client) buildRequest(systemPrompt, userPrompt string) (string, []byte, error) {
	base := strings.TrimRight(c.BaseURL, "/")
	switch c.Provider {
	case ProviderOpenAI:
		if base == "" {
			base = "https://api.openai.com/v1"
		}
		payload := map[string]interface{}{
			"model":       c.Model,
			"max_tokens":  c.MaxTokens,
			"temperature": c.Temperature,
			"messages": []map[string]string{
				{"role": "system", "content": systemPrompt},
				{"role": "user", "content": userPrompt},
			},
		}
		body, err := json.Marshal(payload)
		return base + "/chat/completions", body, err
	default:
		if base == "" {
			base = "https://api.anthropic.com"
		}
		payload := map[string]interface{}{
			"model":       c.Model,
			"max_tokens":  c.MaxTokens,
			"temperature": c.Temperature,
			"system":      systemPrompt,
			"messages": []map[string]string{
				{"role": "user", "content": userPrompt},
			},
		}
		body, err := json.Marshal(payload)
		return base + "/v1/messages", body, err
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	switch c.Provider {
	case ProviderOpenAI:
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
	default:
		if c.APIKey != "" {
			req.Header.Set("x-api-key", c.APIKey)
		}
		req.Header.Set("anthropic-version", anthropicVersion)
	}
}

func (c *Client) parseResponse(data []byte) (string, error) {
	switch c.Provider {
	case ProviderOpenAI:
		var out struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return "", err
		}
		if len(out.Choices) == 0 {
			return "", errors.New("llm response has no choices")
		}
		return out.Choices[0].Message.Content, nil
	default:
		var out struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return "", err
		}
		for _, block := range out.Content {
			if block.Type == "text" && block.Text != "" {
				return block.Text, nil
			}
		}
		return "", errors.New("llm response has no text content")
	}
}

func stripMarkdownCodeBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.Index(trimmed, "\n"); idx != -1 {
			trimmed = trimmed[idx+1:]
		}
		if end := strings.LastIndex(trimmed, "```"); end != -1 {
			trimmed = trimmed[:end]
		}
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

func backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	return time.Second << attempt
}
