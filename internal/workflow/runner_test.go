package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/model"
)

// stubExecutor returns a fixed status/output per call, optionally failing
// the first N calls before succeeding, to exercise retryConfig.
type stubExecutor struct {
	failFirstN int
	calls      int
	output     string
}

func (s *stubExecutor) ExecuteStep(ctx context.Context, req StepExecRequest) (StepExecResult, error) {
	s.calls++
	if s.calls <= s.failFirstN {
		return StepExecResult{Status: "failed"}, nil
	}
	return StepExecResult{SessionID: "sess-1", Status: "completed", Output: s.output, DurationMs: 1}, nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunner_RunWorkflow_CompletesLinearSteps(t *testing.T) {
	store := newTestStore(t)
	exec := &stubExecutor{output: "done"}
	runner := New(store, bus.New(), exec, nil)

	def := &model.WorkflowDef{
		Name: "simple",
		Steps: []model.Step{
			{ID: "a", Type: model.StepAgent, Prompt: "do it"},
			{ID: "b", Type: model.StepTransform, Transform: "$a.output"},
		},
	}

	run, err := runner.RunWorkflow(context.Background(), "scope-1", def)
	if err != nil {
		t.Fatalf("runWorkflow: %v", err)
	}
	if run.Status != model.RunCompleted {
		t.Fatalf("expected RunCompleted, got %v", run.Status)
	}
	if run.StepResults["b"].Output != "done" {
		t.Fatalf("expected transform step to carry forward step a's output, got %v", run.StepResults["b"].Output)
	}
}

func TestRunner_RunWorkflow_PausesAtApprove(t *testing.T) {
	store := newTestStore(t)
	exec := &stubExecutor{output: "draft text"}
	runner := New(store, bus.New(), exec, nil)

	def := &model.WorkflowDef{
		Name: "needs-approval",
		Steps: []model.Step{
			{ID: "draft", Type: model.StepAgent, Prompt: "write"},
			{ID: "gate", Type: model.StepApprove, ApprovePrompt: "ok?"},
			{ID: "publish", Type: model.StepTransform, Transform: "$draft.output", Condition: "$gate.approved"},
		},
	}

	run, err := runner.RunWorkflow(context.Background(), "scope-1", def)
	if err != nil {
		t.Fatalf("runWorkflow: %v", err)
	}
	if run.Status != model.RunPaused {
		t.Fatalf("expected RunPaused, got %v", run.Status)
	}
	if run.ResumeToken == "" {
		t.Fatalf("expected a resume token to be issued")
	}

	resumed, err := runner.ResumeWorkflow(context.Background(), run.ResumeToken, true)
	if err != nil {
		t.Fatalf("resumeWorkflow: %v", err)
	}
	if resumed.Status != model.RunCompleted {
		t.Fatalf("expected RunCompleted after approval, got %v", resumed.Status)
	}
	if resumed.StepResults["publish"].Output != "draft text" {
		t.Fatalf("expected the publish step to run after approval, got %v", resumed.StepResults["publish"])
	}
}

func TestRunner_RunWorkflow_RejectedApprovalSkipsDownstreamCondition(t *testing.T) {
	store := newTestStore(t)
	exec := &stubExecutor{output: "draft text"}
	runner := New(store, bus.New(), exec, nil)

	def := &model.WorkflowDef{
		Name: "needs-approval",
		Steps: []model.Step{
			{ID: "gate", Type: model.StepApprove, ApprovePrompt: "ok?"},
			{ID: "publish", Type: model.StepTransform, Transform: "$gate.approved", Condition: "$gate.approved"},
		},
	}

	run, err := runner.RunWorkflow(context.Background(), "scope-1", def)
	if err != nil {
		t.Fatalf("runWorkflow: %v", err)
	}

	resumed, err := runner.ResumeWorkflow(context.Background(), run.ResumeToken, false)
	if err != nil {
		t.Fatalf("resumeWorkflow: %v", err)
	}
	if resumed.StepResults["publish"].Status != "skipped" {
		t.Fatalf("expected publish to be skipped on a falsy condition, got %v", resumed.StepResults["publish"].Status)
	}
}

func TestRunner_RunWorkflow_RetriesOnFailureUpToMax(t *testing.T) {
	store := newTestStore(t)
	exec := &stubExecutor{failFirstN: 2, output: "eventually"}
	runner := New(store, bus.New(), exec, nil)

	def := &model.WorkflowDef{
		Name: "retrying",
		Steps: []model.Step{
			{ID: "a", Type: model.StepAgent, Prompt: "try", RetryConfig: &model.RetryConfig{
				RetryOn: []string{"failed"}, MaxRetries: 3, RetryDelayMs: 1,
			}},
		},
	}

	run, err := runner.RunWorkflow(context.Background(), "scope-1", def)
	if err != nil {
		t.Fatalf("runWorkflow: %v", err)
	}
	if run.Status != model.RunCompleted {
		t.Fatalf("expected the run to recover within maxRetries, got %v", run.Status)
	}
	if exec.calls != 3 {
		t.Fatalf("expected 3 calls (2 failures + 1 success), got %d", exec.calls)
	}
}

func TestRunner_RunWorkflow_FailFastHaltsOnFailure(t *testing.T) {
	store := newTestStore(t)
	exec := &stubExecutor{failFirstN: 99}
	runner := New(store, bus.New(), exec, nil)

	def := &model.WorkflowDef{
		Name: "fails",
		Steps: []model.Step{
			{ID: "a", Type: model.StepAgent, Prompt: "try"},
			{ID: "b", Type: model.StepTransform, Transform: "$a.output"},
		},
	}

	run, err := runner.RunWorkflow(context.Background(), "scope-1", def)
	if err != nil {
		t.Fatalf("runWorkflow: %v", err)
	}
	if run.Status != model.RunFailed {
		t.Fatalf("expected RunFailed, got %v", run.Status)
	}
	if _, ran := run.StepResults["b"]; ran {
		t.Fatalf("expected fail_fast to halt before step b ran")
	}
}

func TestRunner_CancelWorkflow_SetsTerminalStatus(t *testing.T) {
	store := newTestStore(t)
	exec := &stubExecutor{output: "x"}
	runner := New(store, bus.New(), exec, nil)

	def := &model.WorkflowDef{
		Name:  "cancel-me",
		Steps: []model.Step{{ID: "gate", Type: model.StepApprove, ApprovePrompt: "ok?"}},
	}
	run, err := runner.RunWorkflow(context.Background(), "scope-1", def)
	if err != nil {
		t.Fatalf("runWorkflow: %v", err)
	}

	if err := runner.CancelWorkflow(run.ID); err != nil {
		t.Fatalf("cancelWorkflow: %v", err)
	}

	loaded, _, err := store.GetRunByID(run.ID)
	if err != nil {
		t.Fatalf("getRunById: %v", err)
	}
	if loaded.Status != model.RunCancelled {
		t.Fatalf("expected RunCancelled, got %v", loaded.Status)
	}
}

func TestStore_ListAndPruneRuns(t *testing.T) {
	store := newTestStore(t)
	exec := &stubExecutor{output: "x"}
	runner := New(store, bus.New(), exec, nil)

	def := &model.WorkflowDef{Name: "one-shot", Steps: []model.Step{{ID: "a", Type: model.StepAgent, Prompt: "go"}}}
	run, err := runner.RunWorkflow(context.Background(), "scope-list", def)
	if err != nil {
		t.Fatalf("runWorkflow: %v", err)
	}

	runs, err := store.ListRuns("scope-list", "", 10)
	if err != nil {
		t.Fatalf("listRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("expected to find the run just created, got %v", runs)
	}

	n, err := store.PruneRuns(-1000)
	if err != nil {
		t.Fatalf("pruneRuns: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected pruneRuns with a cutoff in the future to remove the completed run, got %d", n)
	}
}
