package analyzer

import (
	"strings"
	"time"

	"github.com/yourorg/integbuilder/pkg/types"
)

// Sandbox check names, in the order they run.
const (
	CheckAuthentication = "authentication"
	CheckDataRetrieval  = "data_retrieval"
	CheckPagination     = "pagination"
	CheckErrorHandling  = "error_handling"
)

type sandboxRule struct {
	name    string
	passMsg string
	failMsg string
	match   func(lower string) bool
}

var sandboxRules = []sandboxRule{
	{
		name:    CheckAuthentication,
		passMsg: "authentication flow with token handling found",
		failMsg: "no authentication handling in generated code",
		match: func(lower string) bool {
			return containsAny(lower, "auth", "token", "api_key", "apikey")
		},
	},
	{
		name:    CheckDataRetrieval,
		passMsg: "data retrieval methods found",
		failMsg: "no data retrieval methods in generated code",
		match: func(lower string) bool {
			return containsAny(lower, "get_", "list_", "func get", "func list", "fetch")
		},
	},
	{
		name:    CheckPagination,
		passMsg: "pagination iteration found",
		failMsg: "no pagination handling in generated code",
		match: func(lower string) bool {
			return containsAny(lower, "pagination", "cursor", "next_page", "page_token", "nextpagetoken")
		},
	},
	{
		name:    CheckErrorHandling,
		passMsg: "error paths including rate limits are handled",
		failMsg: "no error handling in generated code",
		match: func(lower string) bool {
			return containsAny(lower, "try:", "except ", "except:", "if err != nil", "catch (", "catch(", "429")
		},
	},
}

// RunSandbox evaluates the four sandbox checks against the generated code.
// The result gates the deploy transition.
func RunSandbox(code string, now time.Time) *types.SandboxResult {
	lower := strings.ToLower(code)
	res := &types.SandboxResult{RanAt: now, Checks: make([]types.SandboxCheck, 0, len(sandboxRules))}
	for _, rule := range sandboxRules {
		ok := code != "" && rule.match(lower)
		detail := rule.failMsg
		if ok {
			detail = rule.passMsg
		}
		res.Checks = append(res.Checks, types.SandboxCheck{Name: rule.name, Passed: ok, Detail: detail})
	}
	return res
}
