package providers

import "context"

// Option keys recognized in ChatRequest.Options by provider implementations.
const (
	OptMaxTokens     = "max_tokens"
	OptTemperature   = "temperature"
	OptThinkingLevel = "thinking_level"

	// OptReasoningEffort carries OptThinkingLevel's value through to an
	// OpenAI-compatible body's reasoning_effort field for o-series models.
	OptReasoningEffort = "reasoning_effort"
	// OptEnableThinking/OptThinkingBudget are DashScope-specific passthrough
	// keys; dashscope.go derives them from OptThinkingLevel before handing
	// the request to the shared OpenAIProvider body builder.
	OptEnableThinking = "enable_thinking"
	OptThinkingBudget = "thinking_budget"
)

// ThinkingCapable is implemented by providers that can be asked to emit
// extended-thinking/reasoning content via OptThinkingLevel.
type ThinkingCapable interface {
	SupportsThinking() bool
}

// RetryHook is invoked by a provider's internal retry loop before each
// retried attempt, letting the caller surface retry progress (e.g. as a
// run.retrying chunk) without the provider knowing about chunk types.
type RetryHook func(attempt, maxAttempts int, err error)

type retryHookKey struct{}

// WithRetryHook attaches hook to ctx, following the same
// context.WithValue-keyed-by-private-type pattern the teacher uses
// throughout internal/store and internal/tools (WithAgentID, WithUserID,
// WithToolWorkspace) for request-scoped wiring.
func WithRetryHook(ctx context.Context, hook RetryHook) context.Context {
	return context.WithValue(ctx, retryHookKey{}, hook)
}

// RetryHookFromContext returns the hook attached by WithRetryHook, or nil.
func RetryHookFromContext(ctx context.Context) RetryHook {
	hook, _ := ctx.Value(retryHookKey{}).(RetryHook)
	return hook
}
