package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWebCacheGetSetRoundTrip(t *testing.T) {
	c := newWebCache(10, time.Minute)

	_, ok := c.get("missing")
	assert.False(t, ok)

	c.set("key", "value")
	v, ok := c.get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestWebCacheExpiresEntriesAfterTTL(t *testing.T) {
	c := newWebCache(10, time.Millisecond)
	c.set("key", "value")

	time.Sleep(5 * time.Millisecond)

	_, ok := c.get("key")
	assert.False(t, ok)
}

func TestWebCacheEvictsWhenFull(t *testing.T) {
	c := newWebCache(1, time.Minute)
	c.set("a", "1")
	c.set("b", "2")

	assert.LessOrEqual(t, len(c.entries), 1)
}

func TestWrapExternalContentAddsLabelAndBoundary(t *testing.T) {
	out := wrapExternalContent("page body", "Web Fetch", false)
	assert.Contains(t, out, "Web Fetch")
	assert.Contains(t, out, "page body")
	assert.Contains(t, out, "<external_content")
}

func TestWrapExternalContentSkipsBoundaryWhenAlreadyBounded(t *testing.T) {
	out := wrapExternalContent("<web_content>already wrapped</web_content>", "Web Fetch", true)
	assert.NotContains(t, out, "<external_content")
	assert.Contains(t, out, "already wrapped")
}
