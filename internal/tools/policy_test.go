package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/providers"
)

// simpleTool is a no-op Tool used to populate a Registry for policy tests.
type simpleTool struct{ name string }

func (s simpleTool) Name() string                      { return s.name }
func (s simpleTool) Description() string               { return "" }
func (s simpleTool) Parameters() map[string]interface{} { return map[string]interface{}{} }
func (s simpleTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	return nil
}

func newPolicyTestRegistry() *Registry {
	r := NewRegistry()
	for _, name := range []string{
		"read_file", "prizm_file_write", "prizm_file_move", "prizm_file_delete",
		"prizm_create_document", "prizm_update_document", "prizm_delete_document",
		"exec", "prizm_set_result",
		"sessions_list", "sessions_history", "sessions_send", "sessions_spawn", "subagents", "session_status",
		"memory_search", "memory_get", "web_search", "web_fetch", "read_image", "create_image",
	} {
		r.Register(simpleTool{name})
	}
	return r
}

func defNames(defs []providers.ToolDefinition) []string {
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Function.Name
	}
	return out
}

func TestPolicyEngineFullProfileAllowsEverything(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "full"})

	defs := pe.FilterTools(registry, "agent-1", "anthropic", nil, nil, false, false)

	assert.Len(t, defs, len(registry.List()))
}

func TestPolicyEngineMinimalProfileAllowsOnlyNamedTool(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "minimal"})

	defs := pe.FilterTools(registry, "agent-1", "anthropic", nil, nil, false, false)

	require.Len(t, defs, 1)
	assert.Equal(t, "session_status", defs[0].Function.Name)
}

func TestPolicyEngineCodingProfileExpandsGroups(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "coding"})

	defs := pe.FilterTools(registry, "agent-1", "anthropic", nil, nil, false, false)

	names := defNames(defs)
	assert.Contains(t, names, "prizm_file_write")
	assert.Contains(t, names, "exec")
	assert.Contains(t, names, "memory_search")
	assert.NotContains(t, names, "web_search")
}

func TestPolicyEngineGlobalDenyRemovesTool(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "full", Deny: []string{"exec"}})

	defs := pe.FilterTools(registry, "agent-1", "anthropic", nil, nil, false, false)

	assert.NotContains(t, defNames(defs), "exec")
}

func TestPolicyEngineAgentAllowIntersectsGlobal(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "full"})
	agentPolicy := &config.ToolPolicySpec{Allow: []string{"read_file", "exec"}}

	defs := pe.FilterTools(registry, "agent-1", "anthropic", agentPolicy, nil, false, false)

	names := defNames(defs)
	assert.ElementsMatch(t, []string{"read_file", "exec"}, names)
}

func TestPolicyEngineAlsoAllowAddsBackDeniedTool(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{
		Profile: "minimal", AlsoAllow: []string{"exec"},
	})

	defs := pe.FilterTools(registry, "agent-1", "anthropic", nil, nil, false, false)

	names := defNames(defs)
	assert.Contains(t, names, "session_status")
	assert.Contains(t, names, "exec")
}

func TestPolicyEngineSubagentDenyListAppliesOnTopOfAllow(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "full"})

	defs := pe.FilterTools(registry, "agent-1", "anthropic", nil, nil, true, false)

	names := defNames(defs)
	assert.NotContains(t, names, "exec")
	assert.NotContains(t, names, "session_status")
	assert.Contains(t, names, "read_file")
}

func TestPolicyEngineLeafSubagentDenyListIsAdditive(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "full"})

	defs := pe.FilterTools(registry, "agent-1", "anthropic", nil, nil, true, true)

	names := defNames(defs)
	assert.NotContains(t, names, "sessions_list")
	assert.NotContains(t, names, "exec") // still denied via subagentDenyList
}

func TestPolicyEngineGroupToolAllowIntersects(t *testing.T) {
	registry := newPolicyTestRegistry()
	pe := NewPolicyEngine(&config.ToolsConfig{Profile: "full"})

	defs := pe.FilterTools(registry, "agent-1", "anthropic", nil, []string{"group:memory"}, false, false)

	names := defNames(defs)
	assert.ElementsMatch(t, []string{"memory_search", "memory_get"}, names)
}

func TestResolveAliasMapsBashToExec(t *testing.T) {
	assert.Equal(t, "exec", resolveAlias("bash"))
	assert.Equal(t, "read_file", resolveAlias("read_file"))
}
