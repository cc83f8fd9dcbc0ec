package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prizm-dev/prizm/internal/providers"
)

// Tool is the shape every builtin tool in this package implements, matching
// the teacher's own tool files (Name/Description/Parameters/Execute) rather
// than the pack's eino-flavored Tool/EinoTool split (telnet2-opencode's
// internal/tool.Tool), since nothing here needs an eino runtime.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// Registry holds every registered tool by name. Grounded on
// telnet2-opencode's internal/tool.Registry (mutex-guarded map, Register/
// Get/List), trimmed of its eino-specific ToolInfos/EinoTools conversions
// since this module talks to providers through providers.ToolDefinition
// directly.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool under its own Name().
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every registered tool's name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// ToProviderDef converts a Tool into the function-call schema a provider
// sends upstream.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		},
	}
}

// ProviderDefs resolves an allow-list of tool names (aliases included) into
// provider-ready definitions, implementing internal/chat.ToolRegistry's
// schema half. Unknown names are skipped rather than erroring, since an
// allow-list entry naming a tool this registry never got (a disabled MCP
// server, say) shouldn't break every other tool in the call.
func (r *Registry) ProviderDefs(allowed []string) []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(allowed))
	for _, name := range allowed {
		canonical := resolveAlias(name)
		if t, ok := r.Get(canonical); ok {
			defs = append(defs, ToProviderDef(t))
		}
	}
	return defs
}

// Execute runs a tool by name, implementing internal/chat.ToolRegistry's
// execution half. scope and sessionID are injected into ctx (ToolScopeFromCtx/
// ToolSandboxKeyFromCtx) so a tool can address other sessions in the same
// scope (sessions_list, sessions_send) without every tool's Execute
// signature carrying them explicitly.
func (r *Registry) Execute(ctx context.Context, scope, sessionID, name string, args map[string]interface{}) *Result {
	canonical := resolveAlias(name)
	t, ok := r.Get(canonical)
	if !ok {
		return ErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	ctx = WithToolScope(ctx, scope)
	ctx = WithToolSandboxKey(ctx, sessionID)

	slog.Debug("tools: executing", "tool", canonical, "scope", scope, "sessionId", sessionID)
	return t.Execute(ctx, args)
}
