package chat

import (
	"sync"
	"time"
)

// interactGate holds the single pending InteractRequest (if any) for each
// in-flight session, and the channel its eventual InteractResponse (real or
// synthetic-denied on cancellation) arrives on. No teacher analogue — the
// out-of-band halt/resume contract is named only in the spec.
type interactGate struct {
	mu      sync.Mutex
	pending map[string]chan InteractResponse // key: scope+"/"+sessionId, by requestId implicitly (one at a time)
}

func newInteractGate() *interactGate {
	return &interactGate{pending: make(map[string]chan InteractResponse)}
}

// open registers a wait channel for key, replacing (and discarding) any
// stale one left over from a prior turn.
func (g *interactGate) open(key string) chan InteractResponse {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan InteractResponse, 1)
	g.pending[key] = ch
	return ch
}

func (g *interactGate) close(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, key)
}

// Resolve delivers response to the pending wait for key, if one is open. It
// returns false if no turn is currently waiting or a response is already
// queued; response.RequestID is not checked. The HTTP boundary reports the
// result as {"resolved": false} with status 200.
func (g *interactGate) Resolve(key string, response InteractResponse) bool {
	g.mu.Lock()
	ch, ok := g.pending[key]
	g.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- response:
		return true
	default:
		return false
	}
}

// wait blocks until a response arrives, cancelSignal fires, or timeout
// elapses — whichever comes first. Cancellation and timeout both resolve to
// a synthetic denied response per the spec's halt/resume contract.
func wait(ch <-chan InteractResponse, cancelSignal <-chan struct{}, timeout time.Duration, requestID string) InteractResponse {
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutCh = t.C
	}
	select {
	case resp := <-ch:
		return resp
	case <-cancelSignal:
		return InteractResponse{RequestID: requestID, Approved: false}
	case <-timeoutCh:
		return InteractResponse{RequestID: requestID, Approved: false}
	}
}
