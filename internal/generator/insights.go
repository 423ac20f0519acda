package generator

import (
	"fmt"
	"strings"
)

// ExtractInsights scans generated code for notable implementation traits.
func ExtractInsights(code string) []string {
	lower := strings.ToLower(code)
	var insights []string

	if strings.Contains(lower, "oauth") {
		insights = append(insights, "Detected OAuth 2.0 with refresh token flow")
	}
	if strings.Contains(lower, "cursor") {
		insights = append(insights, "Pagination uses cursor-based method")
	}
	if strings.Contains(lower, "offset") {
		insights = append(insights, "Pagination uses offset-based method")
	}
	if strings.Contains(lower, "rate_limit") || strings.Contains(lower, "rate limit") {
		insights = append(insights, "Rate limiting implemented with backoff")
	}
	if strings.Contains(lower, "retry") {
		insights = append(insights, "Automatic retry logic included")
	}

	count := strings.Count(code, "def get_") + strings.Count(code, "def list_") +
		strings.Count(lower, "func get") + strings.Count(lower, "func list")
	if count > 0 {
		insights = append(insights, fmt.Sprintf("Found %d data retrieval methods", count))
	}
	return insights
}
