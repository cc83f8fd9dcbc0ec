package runtimectx

import (
	"fmt"

	"github.com/prizm-dev/prizm/internal/chat"
)

// buildSlashRegistry registers the slash commands this deployment supports.
// No teacher analogue exists (the teacher has no slash-command layer).
// /clear deletes the session through the session store; /rollback calls
// chat.Runtime's public RollbackToCheckpoint. rt is a getter rather than a *chat.Runtime
// directly since the registry must exist before chat.New returns the
// Runtime that will hold it.
func buildSlashRegistry(sessions chat.SessionStore, rt func() *chat.Runtime) *chat.SlashRegistry {
	reg := chat.NewSlashRegistry()

	reg.Register("clear", func(ctx *chat.SlashContext, args string) (chat.SlashResult, error) {
		sessions.Delete(ctx.Scope, ctx.SessionID)
		return chat.SlashResult{Mode: chat.SlashMessage, Text: "Session cleared."}, nil
	})

	reg.Register("rollback", func(ctx *chat.SlashContext, args string) (chat.SlashResult, error) {
		if args == "" {
			return chat.SlashResult{}, fmt.Errorf("usage: /rollback <checkpointId>")
		}
		res, err := rt().RollbackToCheckpoint(ctx.Scope, ctx.SessionID, args)
		if err != nil {
			return chat.SlashResult{}, err
		}
		return chat.SlashResult{
			Mode: chat.SlashMessage,
			Text: fmt.Sprintf("Rolled back to checkpoint %s: %d round(s) discarded, %d file(s) reverted, %d memor(ies) deleted.",
				res.CheckpointID, res.DiscardedRounds, res.FilesReverted, res.MemoriesDeleted),
		}, nil
	})

	return reg
}
