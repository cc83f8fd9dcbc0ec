package workflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/errs"
	"github.com/prizm-dev/prizm/internal/model"
)

// StepExecRequest is the contract an agent step dispatches to the injected
// StepExecutor. sessionId is set only on resume/continuation calls that
// target an existing step-owned session; the zero value means "derive one".
type StepExecRequest struct {
	SessionID     string
	Prompt        string
	Input         map[string]interface{}
	Model         string
	TimeoutMs     int
	SessionConfig map[string]interface{}
	RetryConfig   *model.RetryConfig
}

// StepExecResult is what an agent step execution reports back.
type StepExecResult struct {
	SessionID      string
	Status         string // completed, failed, timeout
	Output         interface{}
	StructuredData map[string]interface{}
	Artifacts      map[string]string
	DurationMs     int64
}

// StepExecutor runs one agent step. Grounded on the teacher's
// internal/agent.Loop as the thing that would sit behind this interface in
// a full wiring (internal/chat.Runtime satisfies it via a thin adapter),
// kept as an injected interface here since the workflow runner's core
// contract is agnostic to how a step's agent turn actually executes.
type StepExecutor interface {
	ExecuteStep(ctx context.Context, req StepExecRequest) (StepExecResult, error)
}

// LinkedActionExecutor runs a step's linkedActions after it completes. The
// implementation is out of core scope per §4.5; only the call contract is
// defined here.
type LinkedActionExecutor interface {
	RunLinkedAction(ctx context.Context, scope string, action model.LinkedAction, result model.StepResult) error
}

// Runner drives WorkflowDef executions and persists resumable run records.
type Runner struct {
	store  *Store
	bus    *bus.Bus
	exec   StepExecutor
	linked LinkedActionExecutor // optional; nil disables linkedActions dispatch
}

// New constructs a Runner. linked may be nil if no workflow in this
// deployment uses linkedActions.
func New(store *Store, eventBus *bus.Bus, exec StepExecutor, linked LinkedActionExecutor) *Runner {
	return &Runner{store: store, bus: eventBus, exec: exec, linked: linked}
}

// RunWorkflow validates def, creates a new run record, and drives steps in
// order starting at index 0. Returns on pause or a terminal state.
func (r *Runner) RunWorkflow(ctx context.Context, scope string, def *model.WorkflowDef) (*model.WorkflowRun, error) {
	if err := ValidateDef(def); err != nil {
		return nil, err
	}

	now := time.Now()
	run := &model.WorkflowRun{
		ID:             uuid.NewString(),
		Scope:          scope,
		WorkflowName:   def.Name,
		Status:         model.RunRunning,
		StepResults:    make(map[string]*model.StepResult),
		CurrentStepIdx: 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.bus.Emit(bus.EventWorkflowStarted, map[string]interface{}{"scope": scope, "runId": run.ID, "workflow": def.Name})
	slog.Info("workflow: started", "scope", scope, "runId", run.ID, "workflow", def.Name)

	r.drive(ctx, scope, run, def)
	return run, r.store.Save(run, def)
}

// ResumeWorkflow continues a paused run from its approve step, recording
// the approval decision and driving the remaining steps.
func (r *Runner) ResumeWorkflow(ctx context.Context, resumeToken string, approved bool) (*model.WorkflowRun, error) {
	run, def, err := r.store.GetRunByResumeToken(resumeToken)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("no paused run for resume token %q", resumeToken))
	}

	pausedStep := def.Steps[run.CurrentStepIdx]
	run.StepResults[pausedStep.ID] = &model.StepResult{Status: "completed", Approved: &approved}
	run.ResumeToken = ""
	run.Status = model.RunRunning
	run.CurrentStepIdx++

	r.drive(ctx, run.Scope, run, def)
	return run, r.store.Save(run, def)
}

// CancelWorkflow sets a run's status to cancelled. Matches §5's semantics:
// an in-flight step continues, but its result is discarded — there is no
// step-level cancellation signal here, only the terminal status flip.
func (r *Runner) CancelWorkflow(runID string) error {
	run, def, err := r.store.GetRunByID(runID)
	if err != nil {
		return err
	}
	if run == nil {
		return errs.New(errs.NotFound, fmt.Sprintf("workflow run %q not found", runID))
	}
	run.Status = model.RunCancelled
	run.UpdatedAt = time.Now()
	return r.store.Save(run, def)
}

// drive executes steps starting at run.CurrentStepIdx until the run pauses
// or reaches a terminal state, mutating run in place.
func (r *Runner) drive(ctx context.Context, scope string, run *model.WorkflowRun, def *model.WorkflowDef) {
	outputs := stepOutputsFromResults(run.StepResults)

	for run.CurrentStepIdx < len(def.Steps) {
		step := def.Steps[run.CurrentStepIdx]

		if !evalCondition(step.Condition, outputs) {
			run.StepResults[step.ID] = &model.StepResult{Status: "skipped"}
			run.CurrentStepIdx++
			continue
		}

		if step.Type == model.StepApprove {
			token := newResumeToken()
			run.Status = model.RunPaused
			run.ResumeToken = token
			run.ApprovePrompt = firstNonEmpty(step.ApprovePrompt, step.Prompt)
			run.UpdatedAt = time.Now()
			r.bus.Emit(bus.EventWorkflowPaused, map[string]interface{}{"scope": scope, "runId": run.ID, "stepId": step.ID, "resumeToken": token})
			return
		}

		result, execErr := r.runStepWithRetry(ctx, step, outputs)
		run.StepResults[step.ID] = &result
		outputs[step.ID] = stepResultOutput(result)
		run.UpdatedAt = time.Now()

		if result.Status != "skipped" {
			r.bus.Emit(bus.EventWorkflowStepCompleted, map[string]interface{}{
				"scope": scope, "runId": run.ID, "stepId": step.ID, "status": result.Status,
			})
		}

		if step.LinkedActions != nil && r.linked != nil {
			for _, action := range step.LinkedActions {
				if err := r.linked.RunLinkedAction(ctx, scope, action, result); err != nil {
					slog.Warn("workflow: linked action failed", "runId", run.ID, "stepId", step.ID, "action", action.Name, "error", err)
				}
			}
		}

		failed := result.Status != "completed"
		if failed && execErr != nil {
			slog.Warn("workflow: step failed", "runId", run.ID, "stepId", step.ID, "error", execErr)
		}

		strategy := def.ErrorStrategy
		if strategy == "" {
			strategy = model.ErrorFailFast
		}
		if failed && strategy == model.ErrorFailFast {
			run.Status = model.RunFailed
			r.bus.Emit(bus.EventWorkflowFailed, map[string]interface{}{"scope": scope, "runId": run.ID, "stepId": step.ID})
			return
		}

		run.CurrentStepIdx++
	}

	run.Status = model.RunCompleted
	run.UpdatedAt = time.Now()
	r.bus.Emit(bus.EventWorkflowCompleted, map[string]interface{}{"scope": scope, "runId": run.ID})
}

// runStepWithRetry executes one agent/transform step, retrying per
// step.RetryConfig when its terminal status is in retryOn.
func (r *Runner) runStepWithRetry(ctx context.Context, step model.Step, outputs stepOutputs) (model.StepResult, error) {
	attempts := 1
	if step.RetryConfig != nil && step.RetryConfig.MaxRetries > 0 {
		attempts += step.RetryConfig.MaxRetries
	}

	var result model.StepResult
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err = r.runStepOnce(ctx, step, outputs)
		if !step.RetryConfig.ShouldRetry(result.Status) {
			return result, err
		}
		if attempt < attempts-1 && step.RetryConfig.RetryDelayMs > 0 {
			select {
			case <-time.After(time.Duration(step.RetryConfig.RetryDelayMs) * time.Millisecond):
			case <-ctx.Done():
				return model.StepResult{Status: "failed"}, ctx.Err()
			}
		}
	}
	return result, err
}

func (r *Runner) runStepOnce(ctx context.Context, step model.Step, outputs stepOutputs) (model.StepResult, error) {
	switch step.Type {
	case model.StepTransform:
		return model.StepResult{Status: "completed", Output: evalTransform(step.Transform, outputs)}, nil
	case model.StepAgent:
		return r.runAgentStep(ctx, step, outputs)
	default:
		return model.StepResult{Status: "failed"}, fmt.Errorf("workflow: unsupported step type %q at execution time", step.Type)
	}
}

func (r *Runner) runAgentStep(ctx context.Context, step model.Step, outputs stepOutputs) (model.StepResult, error) {
	stepCtx := ctx
	var cancel context.CancelFunc
	if step.TimeoutMs > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, time.Duration(step.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	req := StepExecRequest{
		Prompt:        resolveTokens(step.Prompt, outputs),
		Input:         step.Input,
		Model:         step.Model,
		TimeoutMs:     step.TimeoutMs,
		SessionConfig: step.SessionConfig,
		RetryConfig:   step.RetryConfig,
	}

	start := time.Now()
	res, err := r.exec.ExecuteStep(stepCtx, req)
	if err != nil {
		status := "failed"
		if stepCtx.Err() == context.DeadlineExceeded {
			status = "timeout"
		}
		return model.StepResult{Status: status, SessionID: res.SessionID, DurationMs: time.Since(start).Milliseconds()}, err
	}

	return model.StepResult{
		Status:     res.Status,
		Output:     res.Output,
		SessionID:  res.SessionID,
		DurationMs: res.DurationMs,
	}, nil
}

// resolveTokens substitutes $stepId.field references inside a prompt string
// with their resolved values, the same substitution evalTransform performs
// for a transform expression.
func resolveTokens(prompt string, outputs stepOutputs) string {
	if prompt == "" {
		return prompt
	}
	v := evalTransform(prompt, outputs)
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

func stepOutputsFromResults(results map[string]*model.StepResult) stepOutputs {
	out := make(stepOutputs, len(results))
	for id, res := range results {
		out[id] = stepResultOutput(*res)
	}
	return out
}

// stepResultOutput flattens a StepResult into the map a downstream
// $stepId.field reference resolves against: .output plus .approved/
// .sessionId when set.
func stepResultOutput(res model.StepResult) map[string]interface{} {
	m := map[string]interface{}{"output": res.Output, "status": res.Status}
	if res.Approved != nil {
		m["approved"] = *res.Approved
	}
	if res.SessionID != "" {
		m["sessionId"] = res.SessionID
	}
	return m
}

func newResumeToken() string {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(b)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
