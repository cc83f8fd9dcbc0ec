package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupIDRoutingRules(t *testing.T) {
	r := Routing{Scope: "scope-1", SessionID: "sess-1"}

	assert.Equal(t, "", groupID(TypeProfile, r))
	assert.Equal(t, "scope-1", groupID(TypeEpisodic, r))
	assert.Equal(t, "scope-1", groupID(TypeForesight, r))
	assert.Equal(t, "scope-1:session:sess-1", groupID(TypeEventLog, r))
	assert.Equal(t, "scope-1:docs", groupID(TypeDocumentScene, r))
}
