package workflow

import "testing"

func TestEvalCondition_TruthyAndFalsy(t *testing.T) {
	outputs := stepOutputs{
		"gate": map[string]interface{}{"approved": true, "output": nil},
		"draft": map[string]interface{}{"output": ""},
	}
	if !evalCondition("$gate.approved", outputs) {
		t.Fatalf("expected $gate.approved to be truthy")
	}
	if evalCondition("$draft.output", outputs) {
		t.Fatalf("expected an empty string output to be falsy")
	}
	if !evalCondition("", outputs) {
		t.Fatalf("expected an empty condition to default truthy")
	}
	if evalCondition("$missing.field", outputs) {
		t.Fatalf("expected a reference to a missing step to be falsy")
	}
}

func TestEvalTransform_BareReferencePreservesType(t *testing.T) {
	outputs := stepOutputs{
		"step1": map[string]interface{}{"output": map[string]interface{}{"count": 3}},
	}
	got := evalTransform("$step1.output", outputs)
	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("expected a bare reference to preserve the underlying type, got %T", got)
	}
	if m["count"] != 3 {
		t.Fatalf("expected count 3, got %v", m["count"])
	}
}

func TestEvalTransform_InterpolatesIntoString(t *testing.T) {
	outputs := stepOutputs{
		"step1": map[string]interface{}{"output": "hello"},
	}
	got := evalTransform("prefix: $step1.output!", outputs)
	if got != "prefix: hello!" {
		t.Fatalf("expected interpolation, got %v", got)
	}
}

func TestExtractStepRefs_DistinctInFirstSeenOrder(t *testing.T) {
	refs := extractStepRefs("$b.x and $a.y and $b.z")
	if len(refs) != 2 || refs[0] != "b" || refs[1] != "a" {
		t.Fatalf("expected [b a], got %v", refs)
	}
}
