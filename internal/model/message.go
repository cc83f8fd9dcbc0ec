package model

import (
	"errors"
	"time"
)

var errInconsistentSession = errors.New("model: session kind/bgMeta mismatch")

// Role is the speaker of an AgentMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// PartType distinguishes the two part shapes carried in a message.
type PartType string

const (
	PartText PartType = "text"
	PartTool PartType = "tool"
)

// ToolPartStatus is the lifecycle of a tool invocation embedded in a part.
type ToolPartStatus string

const (
	ToolPreparing ToolPartStatus = "preparing"
	ToolRunning   ToolPartStatus = "running"
	ToolCompleted ToolPartStatus = "completed"
	ToolError     ToolPartStatus = "error"
	ToolCancelled ToolPartStatus = "cancelled"
)

// toolStatusRank orders statuses so a monotonic check can reject regressions
// from a terminal state back to an earlier one.
var toolStatusRank = map[ToolPartStatus]int{
	ToolPreparing: 0,
	ToolRunning:   1,
	ToolCompleted: 2,
	ToolError:     2,
	ToolCancelled: 2,
}

// Part is either a text fragment or a tool-call record. Exactly one of the
// two shapes is populated, selected by Type.
type Part struct {
	Type PartType `json:"type"`

	// text part
	Content string `json:"content,omitempty"`

	// tool part
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	Result    string                 `json:"result,omitempty"`
	Status    ToolPartStatus         `json:"status,omitempty"`
	IsError   bool                   `json:"isError,omitempty"`
}

// AgentMessage is one turn participant's contribution: a role plus an
// ordered list of parts.
type AgentMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	CreatedAt time.Time `json:"createdAt"`

	Model     string                 `json:"model,omitempty"`
	Usage     *Usage                 `json:"usage,omitempty"`
	Reasoning string                 `json:"reasoning,omitempty"`
	MemoryRefs *MemoryRefs           `json:"memoryRefs,omitempty"`
}

// Usage tracks token accounting for one assistant message.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// MemoryRefs records which memories were injected into the prompt and which
// were created as a side effect of this message.
type MemoryRefs struct {
	Injected []string `json:"injected,omitempty"`
	Created  []string `json:"created,omitempty"`
}

// UpsertToolPart merges a tool-part update by id: a later running->completed
// update replaces the earlier fields for that id, and a regression from a
// terminal status back to an earlier one is rejected (a no-op).
func (m *AgentMessage) UpsertToolPart(update Part) {
	for i := range m.Parts {
		p := &m.Parts[i]
		if p.Type != PartTool || p.ID != update.ID {
			continue
		}
		if toolStatusRank[update.Status] < toolStatusRank[p.Status] {
			return // monotonic: never regress
		}
		*p = update
		return
	}
	m.Parts = append(m.Parts, update)
}

// AppendText flushes a text segment as a new part, skipping empty segments.
func (m *AgentMessage) AppendText(content string) {
	if content == "" {
		return
	}
	m.Parts = append(m.Parts, Part{Type: PartText, Content: content})
}

// ToolParts returns only the tool-call parts of the message, in order.
func (m *AgentMessage) ToolParts() []Part {
	var out []Part
	for _, p := range m.Parts {
		if p.Type == PartTool {
			out = append(out, p)
		}
	}
	return out
}
