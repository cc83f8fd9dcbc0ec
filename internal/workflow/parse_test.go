package workflow

import (
	"testing"

	"github.com/prizm-dev/prizm/internal/model"
)

func TestValidateDef_RejectsDuplicateStepIDs(t *testing.T) {
	def := &model.WorkflowDef{
		Name: "dup",
		Steps: []model.Step{
			{ID: "a", Type: model.StepAgent, Prompt: "do x"},
			{ID: "a", Type: model.StepAgent, Prompt: "do y"},
		},
	}
	if err := ValidateDef(def); err == nil {
		t.Fatalf("expected a duplicate-id parse error")
	}
}

func TestValidateDef_RejectsUnknownStepType(t *testing.T) {
	def := &model.WorkflowDef{
		Name:  "bad-type",
		Steps: []model.Step{{ID: "a", Type: "launch_rocket"}},
	}
	if err := ValidateDef(def); err == nil {
		t.Fatalf("expected an unknown-step-type parse error")
	}
}

func TestValidateDef_RejectsForwardReference(t *testing.T) {
	def := &model.WorkflowDef{
		Name: "forward-ref",
		Steps: []model.Step{
			{ID: "a", Type: model.StepAgent, Prompt: "hi", Condition: "$b.output"},
			{ID: "b", Type: model.StepAgent, Prompt: "hi"},
		},
	}
	if err := ValidateDef(def); err == nil {
		t.Fatalf("expected a forward-reference parse error")
	}
}

func TestValidateDef_RejectsMissingRequiredFields(t *testing.T) {
	cases := []model.WorkflowDef{
		{Name: "no-prompt", Steps: []model.Step{{ID: "a", Type: model.StepAgent}}},
		{Name: "no-approve-prompt", Steps: []model.Step{{ID: "a", Type: model.StepApprove}}},
		{Name: "no-transform", Steps: []model.Step{{ID: "a", Type: model.StepTransform}}},
	}
	for _, def := range cases {
		def := def
		if err := ValidateDef(&def); err == nil {
			t.Errorf("%s: expected a missing-required-field parse error", def.Name)
		}
	}
}

func TestValidateDef_AcceptsWellFormedDef(t *testing.T) {
	def := &model.WorkflowDef{
		Name: "ok",
		Steps: []model.Step{
			{ID: "draft", Type: model.StepAgent, Prompt: "write a draft"},
			{ID: "gate", Type: model.StepApprove, ApprovePrompt: "approve the draft?"},
			{ID: "publish", Type: model.StepTransform, Transform: "$draft.output", Condition: "$gate.approved"},
		},
	}
	if err := ValidateDef(def); err != nil {
		t.Fatalf("expected a well-formed def to validate, got %v", err)
	}
}
