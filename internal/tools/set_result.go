package tools

import "context"

// SetResultTool implements prizm_set_result, the contract every background
// session must call exactly once to report its terminal output. Modeled
// after WebFetchTool's plain Name/Description/Parameters/Execute shape; the
// actual bookkeeping is delegated to whatever BgResultSetter the background
// session manager injected into ctx for this turn.
type SetResultTool struct{}

func NewSetResultTool() *SetResultTool { return &SetResultTool{} }

func (t *SetResultTool) Name() string { return "prizm_set_result" }

func (t *SetResultTool) Description() string {
	return "Report the final result of this background task. Call this exactly once when the task is done, with the outcome to hand back to the caller."
}

func (t *SetResultTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"result": map[string]interface{}{
				"type":        "string",
				"description": "The task's final output, in a form suitable for the caller to read directly.",
			},
			"artifacts": map[string]interface{}{
				"type":        "object",
				"description": "Optional named artifacts (paths, ids, URLs) produced alongside the result.",
			},
		},
		"required": []string{"result"},
	}
}

func (t *SetResultTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	result, _ := args["result"].(string)
	if result == "" {
		return ErrorResult("result is required")
	}
	setter := BgResultSetterFromCtx(ctx)
	if setter == nil {
		return ErrorResult("prizm_set_result is only available inside a background session")
	}

	var artifacts map[string]string
	if raw, ok := args["artifacts"].(map[string]interface{}); ok {
		artifacts = make(map[string]string, len(raw))
		for k, v := range raw {
			if s, ok := v.(string); ok {
				artifacts[k] = s
			}
		}
	}

	setter(result, artifacts)
	return SilentResult("result recorded")
}
