// Package workflow implements the five-step integration build state machine:
// Configure, Generate, Review, Test, Deploy. Transitions are strictly
// forward; the only backward move is a full reset. The machine is a pure
// function of state and event so it can be exercised without the HTTP layer.
package workflow

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/yourorg/integbuilder/pkg/types"
)

var (
	// ErrInvalidTransition marks an event that is not legal in the
	// workflow's current step.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrDeployBlocked marks a deploy attempt before all sandbox checks
	// have passed.
	ErrDeployBlocked = errors.New("deploy blocked: sandbox checks have not all passed")

	// ErrEmptyURL marks a configure event without a documentation URL.
	ErrEmptyURL = errors.New("documentation url is required")

	// ErrBadAuthMethod marks a configure event with an unknown auth method.
	ErrBadAuthMethod = errors.New("unsupported auth method")
)

// Event is one user or system action applied to a workflow.
type Event interface {
	name() string
}

// Configure submits the documentation URL and auth selection.
type Configure struct {
	DocURL     string
	AuthMethod types.AuthMethod
	Language   string
}

// GenerationSucceeded records a completed code generation.
type GenerationSucceeded struct {
	Code     string
	DemoMode bool
	Insights []string
	Quality  *types.QualityReport
}

// GenerationFailed records a failed code generation. The workflow stays on
// the generate step so the user can retry by re-submitting.
type GenerationFailed struct {
	Message string
}

// Advance moves from review to the sandbox test step.
type Advance struct{}

// TestsRun records the sandbox check outcomes.
type TestsRun struct {
	Result *types.SandboxResult
}

// Deploy requests the simulated production rollout.
type Deploy struct {
	Now time.Time
}

// Reset starts the workflow over, discarding everything but its identity.
// DefaultAuth and DefaultLanguage restore the configured defaults; when
// empty the built-in defaults apply.
type Reset struct {
	DefaultAuth     types.AuthMethod
	DefaultLanguage string
}

func (Configure) name() string           { return "configure" }
func (GenerationSucceeded) name() string { return "generation_succeeded" }
func (GenerationFailed) name() string    { return "generation_failed" }
func (Advance) name() string             { return "advance" }
func (TestsRun) name() string            { return "tests_run" }
func (Deploy) name() string              { return "deploy" }
func (Reset) name() string               { return "reset" }

// New returns a fresh workflow positioned at the configure step.
func New(id string, defaultAuth types.AuthMethod, language string, now time.Time) types.Workflow {
	return types.Workflow{
		ID:         id,
		Step:       types.StepConfigure,
		AuthMethod: defaultAuth,
		Language:   language,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Apply returns the workflow state after ev, or an error leaving the input
// untouched. The input is never mutated.
func Apply(w types.Workflow, ev Event) (types.Workflow, error) {
	next := clone(w)

	switch e := ev.(type) {
	case Configure:
		if w.Step != types.StepConfigure {
			return w, transitionErr(w.Step, ev)
		}
		docURL := strings.TrimSpace(e.DocURL)
		if docURL == "" {
			return w, ErrEmptyURL
		}
		if u, err := url.Parse(docURL); err != nil || u.Scheme == "" || u.Host == "" {
			return w, fmt.Errorf("%w: %q is not an absolute url", ErrEmptyURL, docURL)
		}
		if !e.AuthMethod.Valid() {
			return w, fmt.Errorf("%w: %q", ErrBadAuthMethod, e.AuthMethod)
		}
		next.DocURL = docURL
		next.AuthMethod = e.AuthMethod
		if lang := strings.TrimSpace(e.Language); lang != "" {
			next.Language = lang
		}
		next.ErrorMsg = ""
		next.Step = types.StepGenerate

	case GenerationSucceeded:
		if w.Step != types.StepGenerate {
			return w, transitionErr(w.Step, ev)
		}
		next.Code = e.Code
		next.DemoMode = e.DemoMode
		next.Insights = append([]string(nil), e.Insights...)
		next.Quality = e.Quality
		next.ErrorMsg = ""
		next.Sandbox = nil
		next.Step = types.StepReview

	case GenerationFailed:
		if w.Step != types.StepGenerate {
			return w, transitionErr(w.Step, ev)
		}
		next.Code = ""
		next.DemoMode = false
		next.Insights = nil
		next.Quality = nil
		next.ErrorMsg = e.Message
		// Stays on generate for retry by re-submission.

	case Advance:
		if w.Step != types.StepReview {
			return w, transitionErr(w.Step, ev)
		}
		next.Step = types.StepTest

	case TestsRun:
		if w.Step != types.StepTest {
			return w, transitionErr(w.Step, ev)
		}
		if e.Result == nil {
			return w, fmt.Errorf("%w: tests_run without a result", ErrInvalidTransition)
		}
		next.Sandbox = e.Result

	case Deploy:
		if w.Step != types.StepTest {
			return w, transitionErr(w.Step, ev)
		}
		if !w.Sandbox.AllPassed() {
			return w, ErrDeployBlocked
		}
		t := e.Now
		next.DeployedAt = &t
		next.Step = types.StepDeploy

	case Reset:
		auth := e.DefaultAuth
		if !auth.Valid() {
			auth = types.AuthOAuth2
		}
		lang := strings.TrimSpace(e.DefaultLanguage)
		if lang == "" {
			lang = "Python"
		}
		next = New(w.ID, auth, lang, w.CreatedAt)

	default:
		return w, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
	}

	next.UpdatedAt = nowFn()
	return next, nil
}

// nowFn is a test seam for UpdatedAt stamping.
var nowFn = func() time.Time { return time.Now().UTC() }

func transitionErr(step types.Step, ev Event) error {
	return fmt.Errorf("%w: %s not allowed in step %s", ErrInvalidTransition, ev.name(), step)
}

func clone(w types.Workflow) types.Workflow {
	out := w
	out.Insights = append([]string(nil), w.Insights...)
	if w.Quality != nil {
		q := *w.Quality
		q.Checks = append([]types.QualityCheck(nil), w.Quality.Checks...)
		out.Quality = &q
	}
	if w.Sandbox != nil {
		s := *w.Sandbox
		s.Checks = append([]types.SandboxCheck(nil), w.Sandbox.Checks...)
		out.Sandbox = &s
	}
	if w.DeployedAt != nil {
		t := *w.DeployedAt
		out.DeployedAt = &t
	}
	return out
}
