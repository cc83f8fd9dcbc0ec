package model

import "time"

// StepType is the kind of a workflow step.
type StepType string

const (
	StepAgent     StepType = "agent"
	StepApprove   StepType = "approve"
	StepTransform StepType = "transform"
)

// ErrorStrategy controls how a run reacts to a non-success step.
type ErrorStrategy string

const (
	ErrorFailFast ErrorStrategy = "fail_fast"
	ErrorContinue ErrorStrategy = "continue"
)

// RetryConfig governs step-level retry on transient failure.
type RetryConfig struct {
	RetryOn       []string `json:"retryOn,omitempty"` // subset of {failed, timeout}
	MaxRetries    int      `json:"maxRetries,omitempty"`
	RetryDelayMs  int      `json:"retryDelayMs,omitempty"`
}

// ShouldRetry reports whether a terminal step status warrants a retry.
func (r *RetryConfig) ShouldRetry(status string) bool {
	if r == nil {
		return false
	}
	for _, s := range r.RetryOn {
		if s == status {
			return true
		}
	}
	return false
}

// LinkedAction is a side-effect invocation to run after a step completes.
// The executor implementing these calls is out of core scope; only the
// call contract is modeled here.
type LinkedAction struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Step is one node of a WorkflowDef's linear step sequence.
type Step struct {
	ID             string                 `json:"id"`
	Type           StepType               `json:"type"`
	Prompt         string                 `json:"prompt,omitempty"`
	ApprovePrompt  string                 `json:"approvePrompt,omitempty"`
	Transform      string                 `json:"transform,omitempty"`
	Input          map[string]interface{} `json:"input,omitempty"`
	Condition      string                 `json:"condition,omitempty"`
	Model          string                 `json:"model,omitempty"`
	TimeoutMs      int                    `json:"timeoutMs,omitempty"`
	SessionConfig  map[string]interface{} `json:"sessionConfig,omitempty"`
	RetryConfig    *RetryConfig           `json:"retryConfig,omitempty"`
	LinkedActions  []LinkedAction         `json:"linkedActions,omitempty"`
}

// WorkflowDef is a named, ordered sequence of steps.
type WorkflowDef struct {
	Name          string                 `json:"name"`
	Description   string                 `json:"description,omitempty"`
	Steps         []Step                 `json:"steps"`
	Triggers      []string               `json:"triggers,omitempty"`
	Config        map[string]interface{} `json:"config,omitempty"`
	ErrorStrategy ErrorStrategy          `json:"errorStrategy,omitempty"`
}

// RunStatus is the workflow run state machine.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunPaused    RunStatus = "paused"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// StepResult is the recorded outcome of one executed (or skipped) step.
type StepResult struct {
	Status      string      `json:"status"` // completed, failed, timeout, skipped, paused
	Output      interface{} `json:"output,omitempty"`
	Approved    *bool       `json:"approved,omitempty"`
	SessionID   string      `json:"sessionId,omitempty"`
	DurationMs  int64       `json:"durationMs,omitempty"`
}

// WorkflowRun is one execution of a WorkflowDef.
type WorkflowRun struct {
	ID            string                  `json:"id"`
	Scope         string                  `json:"scope"`
	WorkflowName  string                  `json:"workflowName"`
	Status        RunStatus               `json:"status"`
	StepResults   map[string]*StepResult  `json:"stepResults"`
	CurrentStepIdx int                    `json:"currentStepIdx"`
	ResumeToken   string                  `json:"resumeToken,omitempty"`
	ApprovePrompt string                  `json:"approvePrompt,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}
