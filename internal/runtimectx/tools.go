package runtimectx

import (
	"github.com/prizm-dev/prizm/internal/chat"
	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/providers"
	"github.com/prizm-dev/prizm/internal/scopestore"
	"github.com/prizm-dev/prizm/internal/tools"
)

// buildToolRegistry assembles the builtin tool set against one agent's
// workspace, mirroring the plain (non-sandboxed) branch of the teacher's
// cmd/gateway.go tool-registry construction: every tool talks to the host
// filesystem/shell directly rather than through a sandbox broker.
func buildToolRegistry(cfg *config.Config, workspace string, restrict bool, provReg *providers.Registry, sessions *chat.MemoryStore, scopes *scopestore.Scopes, scopeRoots func(string) string) *tools.Registry {
	reg := tools.NewRegistry()

	reg.Register(tools.NewReadFileTool(workspace, restrict))
	reg.Register(tools.NewExecTool(workspace, restrict))
	reg.Register(tools.NewSetResultTool())
	reg.Register(tools.NewSessionsSpawnTool())
	reg.Register(tools.NewSubagentsTool())

	reg.Register(tools.NewWriteFileTool(workspace, restrict))
	reg.Register(tools.NewMoveFileTool(workspace, restrict))
	reg.Register(tools.NewDeleteFileTool(workspace, restrict))
	reg.Register(tools.NewCreateDocumentTool(scopes, scopeRoots))
	reg.Register(tools.NewUpdateDocumentTool(scopes, scopeRoots))
	reg.Register(tools.NewDeleteDocumentTool(scopes, scopeRoots))

	reg.Register(tools.NewSessionsListTool(sessions))
	reg.Register(tools.NewSessionStatusTool(sessions))
	reg.Register(tools.NewSessionsHistoryTool(sessions))
	reg.Register(tools.NewSessionsSendTool(sessions))

	reg.Register(tools.NewCreateImageTool(provReg))
	reg.Register(tools.NewReadImageTool(provReg))

	web := cfg.Tools.Web
	reg.Register(tools.NewWebFetchTool(tools.WebFetchConfig{}))
	if search := tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveAPIKey:     web.Brave.APIKey,
		BraveEnabled:    web.Brave.Enabled,
		BraveMaxResults: web.Brave.MaxResults,
		DDGEnabled:      web.DuckDuckGo.Enabled,
		DDGMaxResults:   web.DuckDuckGo.MaxResults,
	}); search != nil {
		reg.Register(search)
	}

	return reg
}
