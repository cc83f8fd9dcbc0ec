package runtimectx

import (
	"context"
	"fmt"
	"time"

	"github.com/prizm-dev/prizm/internal/chat"
	"github.com/prizm-dev/prizm/internal/model"
	"github.com/prizm-dev/prizm/internal/workflow"
)

// chatStepExecutor adapts a chat.Runtime into a workflow.StepExecutor,
// draining one full turn's chunk stream into a single StepExecResult. This
// is the adapter the workflow package's doc comment anticipates
// ("internal/chat.Runtime satisfies it via a thin adapter").
type chatStepExecutor struct {
	chat  *chat.Runtime
	scope string
}

func newChatStepExecutor(rt *chat.Runtime, scope string) *chatStepExecutor {
	return &chatStepExecutor{chat: rt, scope: scope}
}

func (e *chatStepExecutor) ExecuteStep(ctx context.Context, req workflow.StepExecRequest) (workflow.StepExecResult, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("wf-%d", time.Now().UnixNano())
	}

	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	opts := chat.DefaultOptions()
	opts.Model = req.Model

	start := time.Now()
	var text string
	var usage *model.Usage
	var toolNames []string
	var stepErr error

	for ch := range e.chat.Chat(ctx, e.scope, sessionID, req.Prompt, opts) {
		switch ch.Type {
		case chat.ChunkText:
			text += ch.Text
		case chat.ChunkError:
			stepErr = ch.Err
		case chat.ChunkDone:
			usage = ch.Usage
			toolNames = ch.ToolCalls
		}
	}

	durationMs := time.Since(start).Milliseconds()
	if stepErr != nil {
		return workflow.StepExecResult{
			SessionID:  sessionID,
			Status:     "failed",
			Output:     stepErr.Error(),
			DurationMs: durationMs,
		}, stepErr
	}

	res := workflow.StepExecResult{
		SessionID:  sessionID,
		Status:     "completed",
		Output:     text,
		DurationMs: durationMs,
	}
	if usage != nil {
		res.StructuredData = map[string]interface{}{
			"usage":     usage,
			"toolCalls": toolNames,
		}
	}
	return res, nil
}

// noopLinkedActions implements workflow.LinkedActionExecutor by doing
// nothing, matching the core contract's "out-of-core-scope" note on
// linkedActions: only the call shape is defined, dispatch is left to a
// deployment-specific executor.
type noopLinkedActions struct{}

func (noopLinkedActions) RunLinkedAction(ctx context.Context, scope string, action model.LinkedAction, result model.StepResult) error {
	return nil
}
