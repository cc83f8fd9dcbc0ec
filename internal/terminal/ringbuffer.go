package terminal

import (
	"sync"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// ringBufferCap is the §4.7 bound on one terminal's retained output: the
// last 100 KiB survive a restart-free replay on attach.
const ringBufferCap = 100 * 1024

// ringBuffer is a byte-bounded FIFO of PTY output, trimmed from the front
// whenever it grows past ringBufferCap. Reads always return a complete,
// valid UTF-8 string — a trim never splits a multi-byte rune.
type ringBuffer struct {
	mu   sync.Mutex
	data []byte
}

func newRingBuffer() *ringBuffer {
	return &ringBuffer{data: make([]byte, 0, 4096)}
}

// Write appends chunk, trimming the oldest bytes once the buffer exceeds
// its cap.
func (r *ringBuffer) Write(chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = append(r.data, chunk...)
	if len(r.data) <= ringBufferCap {
		return
	}
	cut := len(r.data) - ringBufferCap
	// Advance past any continuation bytes so the retained slice starts on a
	// rune boundary.
	for cut < len(r.data) && !utf8.RuneStart(r.data[cut]) {
		cut++
	}
	r.data = append([]byte(nil), r.data[cut:]...)
}

// Snapshot returns the buffer's full current contents.
func (r *ringBuffer) Snapshot() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.data)
}

// Len reports the current buffer size in bytes.
func (r *ringBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// previewForLog renders a display-width-bounded, single-line preview of s
// for diagnostic logging, the way a terminal UI would elide a long command.
func previewForLog(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}
