// Package runtimectx is the dependency container: it owns construction of
// every collaborator the HTTP/WebSocket bridge needs (providers, tools,
// the chat runtime, background sessions, workflows, terminals, locks,
// scope storage, memory, tracing) and threads them through explicit
// constructors rather than package-level singletons, mirroring the
// teacher's cmd/gateway.go runGateway wiring sequence.
package runtimectx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prizm-dev/prizm/internal/background"
	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/chat"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/config"
	"github.com/prizm-dev/prizm/internal/locks"
	"github.com/prizm-dev/prizm/internal/memory"
	"github.com/prizm-dev/prizm/internal/providers"
	"github.com/prizm-dev/prizm/internal/scheduler"
	"github.com/prizm-dev/prizm/internal/scopestore"
	"github.com/prizm-dev/prizm/internal/terminal"
	"github.com/prizm-dev/prizm/internal/tools"
	"github.com/prizm-dev/prizm/internal/tracing"
	"github.com/prizm-dev/prizm/internal/workflow"
)

// Context bundles every server-lifetime collaborator. One Context is built
// per process and handed to the HTTP/WebSocket bridge and the cobra
// commands that need live wiring (serve, doctor).
type Context struct {
	Config *config.Config

	Bus       *bus.Bus
	Providers *providers.Registry
	Tools     *tools.Registry
	Policy    *tools.PolicyEngine
	Scopes    *scopestore.Scopes

	Chat       *chat.Runtime
	Background *background.Manager
	Workflow   *workflow.Runner
	Terminal   *terminal.Manager
	Locks      *locks.Manager
	Scheduler  *scheduler.Reconciler

	sessions *chat.MemoryStore

	memoryStore *memory.Store
	memoryWrite *memory.Writer
	workflowDB  *workflow.Store

	tracingShutdown func(context.Context) error
}

// New wires a full Context from cfg. It creates the data directory and the
// sqlite databases memory/workflow need, but does not start any background
// loops; call Run for that.
func New(cfg *config.Config) (*Context, error) {
	dataDir := cfg.DataDirPath()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("runtimectx: create data dir: %w", err)
	}

	workspace := cfg.WorkspacePath()
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("runtimectx: create workspace dir: %w", err)
	}

	eventBus := bus.New()

	provReg := providers.NewRegistry()
	registerProviders(provReg, cfg)

	defaultProvider, err := provReg.Get(cfg.Agents.Defaults.Provider)
	if err != nil {
		// Fall back to whatever got registered first; a Context with zero
		// configured providers still boots (doctor/migrate need it to).
		defaultProvider, _ = provReg.Get("")
	}

	sessions := chat.NewMemoryStore()
	policy := tools.NewPolicyEngine(&cfg.Tools)

	scopes := scopestore.NewScopes(eventBus)
	scopeRoots := func(scope string) string {
		return filepath.Join(dataDir, "scopes", scope)
	}

	toolReg := buildToolRegistry(cfg, workspace, cfg.Agents.Defaults.RestrictToWorkspace, provReg, sessions, scopes, scopeRoots)

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "prizm.db")
	}
	memStore, err := memory.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("runtimectx: open memory store: %w", err)
	}
	embedder := memory.NewHashEmbedder(64)
	memWriter := memory.NewWriter(memStore, embedder, nil, eventBus)

	wfStore, err := workflow.Open(filepath.Join(dataDir, "workflows.db"))
	if err != nil {
		memStore.Close()
		return nil, fmt.Errorf("runtimectx: open workflow store: %w", err)
	}

	chatDeps := chat.Deps{
		Bus:             eventBus,
		Sessions:        sessions,
		Provider:        defaultProvider,
		Providers:       provReg,
		Tools:           toolReg,
		Scopes:          scopes,
		ScopeRoots:      scopeRoots,
		Snapshots:       checkpoint.NewSnapshotCollector(),
		Memory:          memWriter,
		MaxIterations:   cfg.Agents.Defaults.MaxToolIterations,
		MaxMessageChars: cfg.Gateway.MaxMessageChars,
	}
	var chatRuntime *chat.Runtime
	slashReg := buildSlashRegistry(sessions, func() *chat.Runtime { return chatRuntime })
	chatRuntime = chat.New(chatDeps, slashReg)

	subagents := cfg.Agents.Defaults.Subagents
	maxGlobal, maxDepth := 5, 2
	if subagents != nil {
		if subagents.MaxConcurrent > 0 {
			maxGlobal = subagents.MaxConcurrent
		}
		if subagents.MaxSpawnDepth > 0 {
			maxDepth = subagents.MaxSpawnDepth
		}
	}
	bgMgr := background.New(chatRuntime, sessions, eventBus, maxGlobal, maxDepth)

	wfRunner := workflow.New(wfStore, eventBus, newChatStepExecutor(chatRuntime, cfg.Gateway.McpScope), noopLinkedActions{})

	termMgr := terminal.New()
	lockMgr := locks.New(eventBus, 0)
	sched := scheduler.New(dataDir, scopes, chatRuntime, eventBus)

	return &Context{
		Config:      cfg,
		Bus:         eventBus,
		Providers:   provReg,
		Tools:       toolReg,
		Policy:      policy,
		Scopes:      scopes,
		Chat:        chatRuntime,
		Background:  bgMgr,
		Workflow:    wfRunner,
		Terminal:    termMgr,
		Locks:       lockMgr,
		Scheduler:   sched,
		sessions:    sessions,
		memoryStore: memStore,
		memoryWrite: memWriter,
		workflowDB:  wfStore,
	}, nil
}

// Run starts every background loop (lock reaper, terminal reaper, OTLP
// tracing) and blocks until ctx is cancelled.
func (c *Context) Run(ctx context.Context) error {
	shutdown, err := tracing.Init(ctx, tracing.Config{
		ServiceName: "prizm",
		Endpoint:    c.Config.Telemetry.Endpoint,
		Protocol:    c.Config.Telemetry.Protocol,
		Insecure:    c.Config.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("runtimectx: init tracing: %w", err)
	}
	c.tracingShutdown = shutdown

	go c.Locks.Run(ctx)
	go c.Terminal.Run(ctx)
	go c.Scheduler.Run(ctx)

	<-ctx.Done()
	return nil
}

// Close releases every owned resource (sqlite handles, scope watchers, OTLP
// exporter). Safe to call once after Run returns.
func (c *Context) Close() error {
	c.Scopes.CloseAll()
	if c.tracingShutdown != nil {
		_ = c.tracingShutdown(context.Background())
	}
	if err := c.workflowDB.Close(); err != nil {
		return err
	}
	return c.memoryStore.Close()
}
