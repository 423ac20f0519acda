package types

import "time"

// Step identifies one stage of the integration workflow.
type Step string

const (
	StepConfigure Step = "configure"
	StepGenerate  Step = "generate"
	StepReview    Step = "review"
	StepTest      Step = "test"
	StepDeploy    Step = "deploy"
)

// Steps lists all workflow steps in order.
var Steps = []Step{StepConfigure, StepGenerate, StepReview, StepTest, StepDeploy}

// Ord returns the 1-based position of the step, or 0 for an unknown step.
func (s Step) Ord() int {
	for i, st := range Steps {
		if st == s {
			return i + 1
		}
	}
	return 0
}

// AuthMethod is the authentication scheme the generated integration targets.
type AuthMethod string

const (
	AuthOAuth2 AuthMethod = "oauth2"
	AuthAPIKey AuthMethod = "api_key"
	AuthBearer AuthMethod = "bearer_token"
)

// Valid reports whether the auth method is one of the supported schemes.
func (a AuthMethod) Valid() bool {
	switch a {
	case AuthOAuth2, AuthAPIKey, AuthBearer:
		return true
	}
	return false
}

// Label returns the human-readable name used in prompts and the UI.
func (a AuthMethod) Label() string {
	switch a {
	case AuthOAuth2:
		return "OAuth 2.0"
	case AuthAPIKey:
		return "API Key"
	case AuthBearer:
		return "Bearer Token"
	}
	return string(a)
}

// Workflow is the full state of one integration build session.
type Workflow struct {
	ID         string         `json:"id"`
	Step       Step           `json:"step"`
	DocURL     string         `json:"doc_url"`
	AuthMethod AuthMethod     `json:"auth_method"`
	Language   string         `json:"language"`
	Code       string         `json:"code,omitempty"`
	DemoMode   bool           `json:"demo_mode"`
	Insights   []string       `json:"insights,omitempty"`
	ErrorMsg   string         `json:"error_msg,omitempty"`
	Quality    *QualityReport `json:"quality,omitempty"`
	Sandbox    *SandboxResult `json:"sandbox,omitempty"`
	DeployedAt *time.Time     `json:"deployed_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// QualityCheck is one code-quality dimension of the review report.
type QualityCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// QualityReport is the review-stage report computed from the generated code.
type QualityReport struct {
	Checks []QualityCheck `json:"checks"`
	Score  float64        `json:"score"`
}

// SandboxCheck is one sandbox verification outcome.
type SandboxCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// SandboxResult holds the sandbox check outcomes gating deployment.
type SandboxResult struct {
	Checks []SandboxCheck `json:"checks"`
	RanAt  time.Time      `json:"ran_at"`
}

// AllPassed reports whether every sandbox check passed.
func (r *SandboxResult) AllPassed() bool {
	if r == nil || len(r.Checks) == 0 {
		return false
	}
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// GenerationRecord is one recorded generation attempt.
type GenerationRecord struct {
	WorkflowID string    `json:"workflow_id"`
	Attempt    int       `json:"attempt"`
	Model      string    `json:"model"`
	Status     string    `json:"status"`
	DemoMode   bool      `json:"demo_mode"`
	DurationMs int64     `json:"duration_ms"`
	ErrorMsg   string    `json:"error_msg,omitempty"`
	RawOutput  string    `json:"raw_output,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
