// Package analyzer derives the review-stage quality report and the
// sandbox check outcomes from the generated integration code. The checks
// are static text heuristics; nothing is executed.
package analyzer

import (
	"math"
	"strings"

	"github.com/yourorg/integbuilder/pkg/types"
)

type qualityRule struct {
	name    string
	passMsg string
	warnMsg string
	match   func(code, lower string) bool
}

var qualityRules = []qualityRule{
	{
		name:    "security",
		passMsg: "credentials read from the environment, none hardcoded",
		warnMsg: "no environment-based credential handling found",
		match: func(code, lower string) bool {
			return containsAny(lower, "os.environ", "os.getenv", "getenv(", "process.env") &&
				!strings.Contains(lower, "hardcode")
		},
	},
	{
		name:    "error_handling",
		passMsg: "failure paths are caught and handled",
		warnMsg: "no exception or error handling detected",
		match: func(code, lower string) bool {
			return containsAny(lower, "try:", "except ", "except:", "if err != nil", "catch (", "catch(")
		},
	},
	{
		name:    "pagination",
		passMsg: "pagination handling present",
		warnMsg: "no pagination handling detected",
		match: func(code, lower string) bool {
			return containsAny(lower, "pagination", "cursor", "next_page", "page_token", "nextpagetoken")
		},
	},
	{
		name:    "rate_limiting",
		passMsg: "rate limit responses are handled",
		warnMsg: "no rate limit handling detected",
		match: func(code, lower string) bool {
			return containsAny(lower, "rate_limit", "rate limit", "429", "retry-after")
		},
	},
	{
		name:    "logging",
		passMsg: "structured logging in place",
		warnMsg: "no logging detected",
		match: func(code, lower string) bool {
			return containsAny(lower, "logging", "logger", "log.")
		},
	},
	{
		name:    "best_practices",
		passMsg: "typed interfaces and docstrings present",
		warnMsg: "missing type annotations or docstrings",
		match: func(code, lower string) bool {
			return containsAny(code, "Optional[", "-> ", "interface ", "struct ", ": str", ": int") ||
				strings.Contains(code, `"""`)
		},
	},
}

// AnalyzeQuality scores the generated code across the six review
// dimensions. Score is checks passed out of ten.
func AnalyzeQuality(code string) *types.QualityReport {
	lower := strings.ToLower(code)
	report := &types.QualityReport{Checks: make([]types.QualityCheck, 0, len(qualityRules))}
	passed := 0
	for _, rule := range qualityRules {
		ok := rule.match(code, lower)
		detail := rule.warnMsg
		if ok {
			passed++
			detail = rule.passMsg
		}
		report.Checks = append(report.Checks, types.QualityCheck{Name: rule.name, Passed: ok, Detail: detail})
	}
	report.Score = math.Round(float64(passed)/float64(len(qualityRules))*100) / 10
	return report
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
