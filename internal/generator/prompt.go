package generator

import (
	"fmt"

	"github.com/yourorg/integbuilder/pkg/types"
)

const systemPrompt = `You are an expert integration engineer building production-grade API integration code. You receive an API documentation URL, an authentication method, and a target language, and you respond with a complete, runnable integration module.

Requirements for every integration you produce:
- No hardcoded credentials; read secrets from environment variables.
- Comprehensive error handling with retry and exponential backoff.
- Rate limit awareness, including 429 handling with Retry-After.
- Pagination support (cursor, offset, or link-header, as the API requires).
- Structured logging with correlation IDs.
- Idiomatic style, type annotations, and docstrings for the target language.

Respond with ONLY the code, with clear comments. No prose before or after.`

const userPromptTemplate = `API Documentation URL: %s
Authentication Method: %s
Target Language: %s

Based on the API documentation, generate a complete, production-ready integration that includes:

1. Authentication setup for %s, with token refresh logic where applicable and secure credential management via environment variables.
2. An API client with base URL configuration, request/response handling, and rate limit awareness.
3. Data retrieval methods: users, usage/analytics data, and nested resources.
4. Pagination implementation with an iterator pattern and empty-response handling.
5. Error handling: retries with exponential backoff, 429 rate limits, network errors, and API-specific error codes.
6. Structured logging with correlation IDs and appropriate log levels.

Generate ONLY the %s code with clear comments. Make it production-ready.`

// maxPromptTokens bounds the user prompt; anything bigger is rejected
// before any network call.
const maxPromptTokens = 16000

// BuildSystemPrompt returns the static system prompt.
func BuildSystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt builds the generation prompt for one configuration.
func BuildUserPrompt(docURL string, auth types.AuthMethod, language string) string {
	label := auth.Label()
	return fmt.Sprintf(userPromptTemplate, docURL, label, language, label, language)
}

// EstimateTokens provides a rough token estimate, about four characters
// per token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
