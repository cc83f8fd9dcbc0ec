package chat

import "strings"

// SlashMode distinguishes a slash command's two result shapes.
type SlashMode string

const (
	SlashMessage SlashMode = "message" // appended as a session message, no LLM turn
	SlashPrompt  SlashMode = "prompt"  // appended as a per-turn system note inside history
)

// SlashResult is what a registered slash command returns.
type SlashResult struct {
	Mode SlashMode
	Text string
}

// SlashCommand implements one `/name ...` command.
type SlashCommand func(ctx *SlashContext, args string) (SlashResult, error)

// SlashContext carries the turn context a command handler may need.
type SlashContext struct {
	Scope     string
	SessionID string
}

// SlashRegistry is a name -> handler table, matching the teacher's plain
// map-based tool-alias/tool-group tables in internal/tools/policy.go.
type SlashRegistry struct {
	commands map[string]SlashCommand
}

// NewSlashRegistry builds an empty registry.
func NewSlashRegistry() *SlashRegistry {
	return &SlashRegistry{commands: make(map[string]SlashCommand)}
}

// Register adds or replaces the handler for name (without its leading '/').
func (r *SlashRegistry) Register(name string, cmd SlashCommand) {
	r.commands[name] = cmd
}

// dispatch parses a leading "/name args" out of userText and runs its
// handler. ok is false when userText doesn't start with '/' or names an
// unregistered command — callers treat that as "not a slash command" and
// fall through to a normal LLM turn.
func (r *SlashRegistry) dispatch(ctx *SlashContext, userText string) (res SlashResult, ok bool, err error) {
	if !strings.HasPrefix(userText, "/") {
		return SlashResult{}, false, nil
	}
	body := userText[1:]
	name, args, _ := strings.Cut(body, " ")
	cmd, found := r.commands[name]
	if !found {
		return SlashResult{}, false, nil
	}
	res, err = cmd(ctx, strings.TrimSpace(args))
	return res, true, err
}
