package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/yourorg/integbuilder/pkg/types"
)

func passingSandbox() *types.SandboxResult {
	return &types.SandboxResult{
		Checks: []types.SandboxCheck{
			{Name: "authentication", Passed: true},
			{Name: "data_retrieval", Passed: true},
			{Name: "pagination", Passed: true},
			{Name: "error_handling", Passed: true},
		},
		RanAt: time.Now().UTC(),
	}
}

func TestHappyPathToDeploy(t *testing.T) {
	w := New("wf-1", types.AuthOAuth2, "Python", time.Now().UTC())

	w, err := Apply(w, Configure{DocURL: "https://api.calendly.com/docs", AuthMethod: types.AuthAPIKey})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if w.Step != types.StepGenerate {
		t.Fatalf("step = %s, want generate", w.Step)
	}
	if w.AuthMethod != types.AuthAPIKey {
		t.Fatalf("auth = %s", w.AuthMethod)
	}

	w, err = Apply(w, GenerationSucceeded{Code: "code body", DemoMode: true, Insights: []string{"x"}})
	if err != nil {
		t.Fatalf("generation succeeded: %v", err)
	}
	if w.Step != types.StepReview || w.Code != "code body" || w.ErrorMsg != "" {
		t.Fatalf("unexpected state after generation: %+v", w)
	}

	w, err = Apply(w, Advance{})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if w.Step != types.StepTest {
		t.Fatalf("step = %s, want test", w.Step)
	}

	// Deploy before running tests must be blocked.
	if _, err := Apply(w, Deploy{Now: time.Now()}); !errors.Is(err, ErrDeployBlocked) {
		t.Fatalf("expected ErrDeployBlocked, got %v", err)
	}

	w, err = Apply(w, TestsRun{Result: passingSandbox()})
	if err != nil {
		t.Fatalf("tests run: %v", err)
	}
	w, err = Apply(w, Deploy{Now: time.Now()})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if w.Step != types.StepDeploy || w.DeployedAt == nil {
		t.Fatalf("unexpected deploy state: %+v", w)
	}
}

func TestConfigureValidation(t *testing.T) {
	w := New("wf-1", types.AuthOAuth2, "Python", time.Now().UTC())

	if _, err := Apply(w, Configure{DocURL: "  ", AuthMethod: types.AuthOAuth2}); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected ErrEmptyURL, got %v", err)
	}
	if _, err := Apply(w, Configure{DocURL: "not a url", AuthMethod: types.AuthOAuth2}); !errors.Is(err, ErrEmptyURL) {
		t.Fatalf("expected url error, got %v", err)
	}
	if _, err := Apply(w, Configure{DocURL: "https://x.test/docs", AuthMethod: "magic"}); !errors.Is(err, ErrBadAuthMethod) {
		t.Fatalf("expected ErrBadAuthMethod, got %v", err)
	}
}

func TestGenerationFailureKeepsStepAndClearsCode(t *testing.T) {
	w := New("wf-1", types.AuthOAuth2, "Python", time.Now().UTC())
	w, _ = Apply(w, Configure{DocURL: "https://x.test/docs", AuthMethod: types.AuthOAuth2})

	w, err := Apply(w, GenerationFailed{Message: "upstream timeout"})
	if err != nil {
		t.Fatalf("generation failed event: %v", err)
	}
	if w.Step != types.StepGenerate {
		t.Fatalf("step = %s, want generate", w.Step)
	}
	if w.Code != "" || w.ErrorMsg != "upstream timeout" {
		t.Fatalf("code and error must be mutually exclusive: %+v", w)
	}

	// Retry by re-submission succeeds and clears the error.
	w, err = Apply(w, GenerationSucceeded{Code: "ok"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if w.ErrorMsg != "" || w.Code != "ok" {
		t.Fatalf("retry did not clear error: %+v", w)
	}
}

func TestDeployBlockedOnFailingCheck(t *testing.T) {
	w := New("wf-1", types.AuthOAuth2, "Python", time.Now().UTC())
	w, _ = Apply(w, Configure{DocURL: "https://x.test/docs", AuthMethod: types.AuthOAuth2})
	w, _ = Apply(w, GenerationSucceeded{Code: "code"})
	w, _ = Apply(w, Advance{})

	res := passingSandbox()
	res.Checks[2].Passed = false
	w, err := Apply(w, TestsRun{Result: res})
	if err != nil {
		t.Fatalf("tests run: %v", err)
	}
	if _, err := Apply(w, Deploy{Now: time.Now()}); !errors.Is(err, ErrDeployBlocked) {
		t.Fatalf("expected ErrDeployBlocked, got %v", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	w := New("wf-1", types.AuthOAuth2, "Python", time.Now().UTC())

	cases := []Event{GenerationSucceeded{}, GenerationFailed{}, Advance{}, TestsRun{Result: passingSandbox()}, Deploy{}}
	for _, ev := range cases {
		if _, err := Apply(w, ev); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("event %T in configure step: expected ErrInvalidTransition, got %v", ev, err)
		}
	}

	w, _ = Apply(w, Configure{DocURL: "https://x.test/docs", AuthMethod: types.AuthOAuth2})
	if _, err := Apply(w, Configure{DocURL: "https://x.test/docs", AuthMethod: types.AuthOAuth2}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("configure should not be repeatable mid-flow")
	}
}

func TestResetFromAnyStep(t *testing.T) {
	w := New("wf-1", types.AuthOAuth2, "Python", time.Now().UTC())
	w, _ = Apply(w, Configure{DocURL: "https://x.test/docs", AuthMethod: types.AuthBearer, Language: "Go"})
	w, _ = Apply(w, GenerationSucceeded{Code: "code", Insights: []string{"a"}})
	w, _ = Apply(w, Advance{})
	w, _ = Apply(w, TestsRun{Result: passingSandbox()})
	w, _ = Apply(w, Deploy{Now: time.Now()})

	w, err := Apply(w, Reset{DefaultAuth: types.AuthOAuth2, DefaultLanguage: "Python"})
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if w.ID != "wf-1" {
		t.Fatalf("reset must keep identity")
	}
	if w.Step != types.StepConfigure || w.DocURL != "" || w.Code != "" ||
		w.Sandbox != nil || w.Quality != nil || w.DeployedAt != nil || len(w.Insights) != 0 {
		t.Fatalf("reset left stale state: %+v", w)
	}
	if w.AuthMethod != types.AuthOAuth2 || w.Language != "Python" {
		t.Fatalf("reset did not restore defaults: %+v", w)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	w := New("wf-1", types.AuthOAuth2, "Python", time.Now().UTC())
	w, _ = Apply(w, Configure{DocURL: "https://x.test/docs", AuthMethod: types.AuthOAuth2})
	before := w

	if _, err := Apply(w, GenerationSucceeded{Code: "new"}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if w.Code != before.Code || w.Step != before.Step {
		t.Fatalf("input state mutated")
	}
}
