// Package model holds the core workspace data types shared by the agent
// runtime, background manager, workflow runner, and checkpoint store.
//
// Entities form a rooted tree from AgentSession down (session -> messages
// -> parts); cross-entity references (memory refs, locks) are opaque ids,
// never pointers, matching the arena+index approach described for this
// system.
package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionKind distinguishes interactive turns from hidden background runs
// and tool-spawned sub-turns.
type SessionKind string

const (
	SessionInteractive SessionKind = "interactive"
	SessionBackground  SessionKind = "background"
	SessionTool        SessionKind = "tool"
)

// BgStatus is the background-run state machine. Terminal states are sticky.
type BgStatus string

const (
	BgPending   BgStatus = "pending"
	BgRunning   BgStatus = "running"
	BgCompleted BgStatus = "completed"
	BgFailed    BgStatus = "failed"
	BgCancelled BgStatus = "cancelled"
	BgTimeout   BgStatus = "timeout"
)

// IsTerminal reports whether the status can no longer transition.
func (s BgStatus) IsTerminal() bool {
	switch s {
	case BgCompleted, BgFailed, BgCancelled, BgTimeout:
		return true
	default:
		return false
	}
}

// MemoryPolicy toggles per-kind memory extraction for a session.
type MemoryPolicy struct {
	SkipPerRoundExtract       bool `json:"skipPerRoundExtract"`
	SkipNarrativeBatchExtract bool `json:"skipNarrativeBatchExtract"`
	SkipDocumentExtract       bool `json:"skipDocumentExtract"`
	SkipConversationSummary   bool `json:"skipConversationSummary"`
}

// DefaultBackgroundMemoryPolicy is applied under user overrides per the
// object-level merge rule: a missing key in the override keeps this default.
func DefaultBackgroundMemoryPolicy() MemoryPolicy {
	return MemoryPolicy{
		SkipPerRoundExtract:       true,
		SkipNarrativeBatchExtract: true,
		SkipDocumentExtract:       false,
		SkipConversationSummary:   true,
	}
}

// MergeMemoryPolicy overlays override onto base, field by field; a nil
// pointer field in the override preserves base's value.
func MergeMemoryPolicy(base MemoryPolicy, override *MemoryPolicyOverride) MemoryPolicy {
	if override == nil {
		return base
	}
	out := base
	if override.SkipPerRoundExtract != nil {
		out.SkipPerRoundExtract = *override.SkipPerRoundExtract
	}
	if override.SkipNarrativeBatchExtract != nil {
		out.SkipNarrativeBatchExtract = *override.SkipNarrativeBatchExtract
	}
	if override.SkipDocumentExtract != nil {
		out.SkipDocumentExtract = *override.SkipDocumentExtract
	}
	if override.SkipConversationSummary != nil {
		out.SkipConversationSummary = *override.SkipConversationSummary
	}
	return out
}

// MemoryPolicyOverride carries pointer fields so "unset" is distinguishable
// from "explicitly false".
type MemoryPolicyOverride struct {
	SkipPerRoundExtract       *bool
	SkipNarrativeBatchExtract *bool
	SkipDocumentExtract       *bool
	SkipConversationSummary   *bool
}

// AnnounceTarget names the parent session a completed background run
// reports back into.
type AnnounceTarget struct {
	Scope     string `json:"scope"`
	SessionID string `json:"sessionId"`
}

// BgMeta carries background-run-specific metadata for a session.
type BgMeta struct {
	TriggerType      string         `json:"triggerType"` // tool_spawn, api, llm, cron, schedule_remind, ...
	ParentSessionID  string         `json:"parentSessionId,omitempty"`
	Depth            int            `json:"depth"`
	Label            string         `json:"label,omitempty"`
	TimeoutMs        int            `json:"timeoutMs,omitempty"`
	AnnounceTarget   *AnnounceTarget `json:"announceTarget,omitempty"`
	MemoryPolicy     MemoryPolicy   `json:"memoryPolicy"`
}

// AgentSession is the ordered sequence of messages plus session metadata.
type AgentSession struct {
	ID     string      `json:"id"`
	Scope  string      `json:"scope"`
	Kind   SessionKind `json:"kind"`

	Messages []*AgentMessage `json:"messages"`

	BgMeta   *BgMeta   `json:"bgMeta,omitempty"`
	BgStatus BgStatus  `json:"bgStatus,omitempty"`
	BgResult string    `json:"bgResult,omitempty"`

	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	CompressedThroughRound int      `json:"compressedThroughRound"`
	CompressionSummaries   []string `json:"compressionSummaries,omitempty"`

	GrantedPaths        []string `json:"grantedPaths,omitempty"`
	AllowedTools        []string `json:"allowedTools,omitempty"` // nil = no whitelist
	AllowedMcpServerIDs []string `json:"allowedMcpServerIds,omitempty"`

	Checkpoints []*Checkpoint `json:"checkpoints,omitempty"`
	LLMSummary  string        `json:"llmSummary,omitempty"`

	// cancelFunc stops any in-flight turn for this session. Not serialized.
	cancelFunc func() `json:"-"`
}

// Validate enforces the §3 session invariant: a session is either
// interactive or carries non-nil BgMeta (BgMeta is set exactly when Kind is
// background). BgStatus transitions are not checked here.
func (s *AgentSession) Validate() error {
	if s.Kind == SessionBackground && s.BgMeta == nil {
		return errInconsistentSession
	}
	if s.Kind != SessionBackground && s.BgMeta != nil {
		return errInconsistentSession
	}
	return nil
}

// SetCancel installs the cancellation hook for the in-flight turn.
func (s *AgentSession) SetCancel(fn func()) { s.cancelFunc = fn }

// Cancel invokes the in-flight turn's cancellation hook, if any.
func (s *AgentSession) Cancel() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
}

// CompleteRounds returns the number of full user->assistant rounds
// currently held in Messages (an assistant message closes a round).
func (s *AgentSession) CompleteRounds() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == RoleAssistant {
			n++
		}
	}
	return n
}

// NewSessionID generates a fresh session identifier.
func NewSessionID() string { return uuid.NewString() }
