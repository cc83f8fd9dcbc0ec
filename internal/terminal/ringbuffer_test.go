package terminal

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRingBuffer_TrimsToCapAtRuneBoundary(t *testing.T) {
	rb := newRingBuffer()

	// Write well past the cap using a multi-byte rune so a naive byte-offset
	// trim would be likely to land mid-rune.
	chunk := strings.Repeat("é", ringBufferCap) // 2 bytes per rune
	rb.Write([]byte(chunk))

	if rb.Len() > ringBufferCap {
		t.Fatalf("expected buffer length <= cap, got %d", rb.Len())
	}
	snap := rb.Snapshot()
	if !utf8.ValidString(snap) {
		t.Fatalf("expected a valid UTF-8 snapshot after trim")
	}
}

func TestRingBuffer_SnapshotReturnsAppendedContent(t *testing.T) {
	rb := newRingBuffer()
	rb.Write([]byte("hello "))
	rb.Write([]byte("world"))

	if got := rb.Snapshot(); got != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
}

func TestPreviewForLog_TruncatesLongCommand(t *testing.T) {
	cmd := strings.Repeat("a", 200)
	preview := previewForLog(cmd, 20)
	if len(preview) > 25 {
		t.Fatalf("expected a short preview, got length %d", len(preview))
	}
}
