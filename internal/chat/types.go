// Package chat implements the Agent Session Runtime: the per-turn driver
// that assembles prompts, streams a provider's response, interleaves tool
// calls, gates on user interaction, persists the resulting assistant
// message, and supports cancellation and rollback. Grounded on the
// teacher's internal/agent.Loop.Run/runLoop turn structure, generalized
// from its channel-bound RunRequest to the scope/session-keyed contract in
// the chat core's public operations.
package chat

import (
	"context"
	"time"

	"github.com/prizm-dev/prizm/internal/bus"
	"github.com/prizm-dev/prizm/internal/checkpoint"
	"github.com/prizm-dev/prizm/internal/memory"
	"github.com/prizm-dev/prizm/internal/model"
	"github.com/prizm-dev/prizm/internal/providers"
	"github.com/prizm-dev/prizm/internal/scopestore"
	"github.com/prizm-dev/prizm/internal/tools"
)

// ChunkType distinguishes the Chunk variants named in the chat core
// contract.
type ChunkType string

const (
	ChunkText               ChunkType = "text"
	ChunkReasoning          ChunkType = "reasoning"
	ChunkToolCallPreparing  ChunkType = "toolCallPreparing"
	ChunkToolCallArgsDelta  ChunkType = "toolCallArgsDelta"
	ChunkToolCall           ChunkType = "toolCall"
	ChunkToolResult         ChunkType = "toolResultChunk"
	ChunkToolProgress       ChunkType = "toolProgress"
	ChunkInteractRequest    ChunkType = "interactRequest"
	ChunkDone               ChunkType = "done"
	ChunkError              ChunkType = "error"
)

// Chunk is one unit of the asyncStream<Chunk> a chat turn emits. Exactly the
// fields relevant to Type are populated; the rest are zero.
type Chunk struct {
	Type ChunkType

	Text      string
	Reasoning string

	ToolCallID   string
	ToolCallName string
	ArgsDelta    string
	Status       model.ToolPartStatus
	IsError      bool
	Result       string
	Progress     string

	Interact *InteractRequest

	Usage      *model.Usage
	ToolCalls  []string
	MessageID  string
	Stopped    bool
	MemoryRefs *model.MemoryRefs

	Err error
}

// InteractRequest is emitted mid-stream when a tool needs user confirmation
// before it can proceed (approve/deny gates, clarifying prompts).
type InteractRequest struct {
	ID         string
	ToolCallID string
	Prompt     string
	Options    []string
}

// InteractResponse answers a pending InteractRequest. Data carries any
// structured payload (e.g. an edited value) beyond a plain approve/deny.
type InteractResponse struct {
	RequestID string
	Approved  bool
	Data      map[string]interface{}
}

// Options configures one chat() call. Every field is optional; zero values
// take the policy defaults described in the prompt-assembly section.
type Options struct {
	Model                    string
	MCPEnabled               bool
	IncludeScopeContext      bool
	SkillMetadataForDiscovery string
	ActiveSkillInstructions  string
	RulesContent             string
	GrantedPaths             []string
	AllowedTools             []string
	AllowedMcpServerIDs      []string
	Thinking                 string
	MemoryTexts              []string
	SystemPreamble           string
	PromptInjection          string

	SkipMemoryInjection bool
	SkipMemoryExtract   bool
	SkipSummary         bool

	FullContextTurns   int
	CachedContextTurns int

	CancelSignal <-chan struct{}
}

// DefaultOptions returns the policy defaults named in §4.3: mcpEnabled and
// includeScopeContext default true, and the sliding window defaults to
// A=fullContextTurns/B=cachedContextTurns as configured on the Runtime.
func DefaultOptions() Options {
	return Options{MCPEnabled: true, IncludeScopeContext: true}
}

// ToolRegistry is the subset of the tool surface the turn driver needs:
// schema lookup filtered by an allow-list, and execution keyed by scope and
// session rather than the teacher's channel/chatId/peerKind triple.
type ToolRegistry interface {
	ProviderDefs(allowed []string) []providers.ToolDefinition
	Execute(ctx context.Context, scope, sessionID, name string, args map[string]interface{}) *tools.Result
}

// SessionStore owns the in-memory AgentSession table the runtime mutates.
// Grounded on the teacher's internal/sessions.Manager (GetHistory/AddMessage
// /Save), generalized to the richer §3 AgentSession shape.
type SessionStore interface {
	GetOrCreate(scope, sessionID string) *model.AgentSession
	Get(scope, sessionID string) (*model.AgentSession, bool)
	Save(s *model.AgentSession)
	Delete(scope, sessionID string)
}

// MemoryExtractor performs the per-turn memory-writer pass. A nil
// MemoryExtractor disables memory injection/extraction entirely.
type MemoryExtractor interface {
	ProcessMemCell(ctx context.Context, cell memory.MemCell, routing memory.Routing) (memoryID, dedupLogID string, err error)

	// DeleteMemoriesByID undoes exactly the memories a rolled-back turn
	// created, returning the number removed.
	DeleteMemoriesByID(ids []string) int
}

// Deps bundles every collaborator a Runtime needs, threaded in explicitly
// rather than resolved from package-level singletons (per the dependency
// container convention this module follows throughout).
type Deps struct {
	Bus        *bus.Bus
	Sessions   SessionStore
	Provider   providers.Provider
	Providers  *providers.Registry
	Tools      ToolRegistry
	Scopes     *scopestore.Scopes
	ScopeRoots func(scope string) string
	Snapshots  *checkpoint.SnapshotCollector
	Memory     MemoryExtractor

	SystemPrompt       string
	MaxIterations       int
	MaxMessageChars      int
	FullContextTurns    int
	CachedContextTurns  int
	InteractTimeout     time.Duration
}
