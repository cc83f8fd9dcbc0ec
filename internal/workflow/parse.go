package workflow

import (
	"fmt"

	"github.com/prizm-dev/prizm/internal/errs"
	"github.com/prizm-dev/prizm/internal/model"
)

// ValidateDef checks the parse-time invariants: duplicate step ids, unknown
// step types, forward $stepId references, and type-specific required
// fields. Returns the first violation found, tagged errs.Validation (the
// *WorkflowParse* error kind named in §7).
func ValidateDef(def *model.WorkflowDef) error {
	if def.Name == "" {
		return errs.New(errs.Validation, "workflow name is required")
	}
	if len(def.Steps) == 0 {
		return errs.New(errs.Validation, "workflow must have at least one step")
	}

	seen := make(map[string]bool, len(def.Steps))
	for i, step := range def.Steps {
		if step.ID == "" {
			return errs.New(errs.Validation, fmt.Sprintf("step %d: id is required", i))
		}
		if seen[step.ID] {
			return errs.New(errs.Validation, fmt.Sprintf("duplicate step id %q", step.ID))
		}
		seen[step.ID] = true

		switch step.Type {
		case model.StepAgent:
			if step.Prompt == "" {
				return errs.New(errs.Validation, fmt.Sprintf("step %q: agent step requires prompt", step.ID))
			}
		case model.StepApprove:
			if step.ApprovePrompt == "" && step.Prompt == "" {
				return errs.New(errs.Validation, fmt.Sprintf("step %q: approve step requires approvePrompt or prompt", step.ID))
			}
		case model.StepTransform:
			if step.Transform == "" {
				return errs.New(errs.Validation, fmt.Sprintf("step %q: transform step requires transform", step.ID))
			}
		default:
			return errs.New(errs.Validation, fmt.Sprintf("step %q: unknown step type %q", step.ID, step.Type))
		}

		for _, ref := range referencedStepIDs(step) {
			if !seen[ref] {
				return errs.New(errs.Validation, fmt.Sprintf("step %q references unknown or forward step %q", step.ID, ref))
			}
		}
	}

	switch def.ErrorStrategy {
	case "", model.ErrorFailFast, model.ErrorContinue:
	default:
		return errs.New(errs.Validation, fmt.Sprintf("unknown errorStrategy %q", def.ErrorStrategy))
	}

	return nil
}

// referencedStepIDs collects every $stepId token a step's condition and
// transform expressions mention, for the forward-reference check.
func referencedStepIDs(step model.Step) []string {
	var ids []string
	ids = append(ids, extractStepRefs(step.Condition)...)
	ids = append(ids, extractStepRefs(step.Transform)...)
	return ids
}
