package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
)

// toolLoopState detects a tool call repeatedly invoked with the same
// arguments and producing the same result, with no forward progress. The
// teacher's internal/agent/loop.go calls a toolLoopState with exactly this
// record/recordResult/detect shape, but its definition was not present in
// the retrieved corpus subset, so the thresholds here are a fresh, narrowly
// scoped rebuild of the same contract.
type toolLoopState struct {
	calls   map[string]int // argsHash -> consecutive repeat count
	lastKey string
	results map[string]string // argsHash -> last result seen
}

const (
	toolLoopWarnThreshold     = 3
	toolLoopCriticalThreshold = 5
)

// record hashes name+args and bumps the repeat counter for that call, reset
// whenever a different call interleaves. It returns the hash so the caller
// can pass it to recordResult/detect without recomputing it.
func (s *toolLoopState) record(name string, args map[string]interface{}) string {
	if s.calls == nil {
		s.calls = make(map[string]int)
		s.results = make(map[string]string)
	}
	hash := hashToolCall(name, args)
	if hash == s.lastKey {
		s.calls[hash]++
	} else {
		s.calls[hash] = 1
		s.lastKey = hash
	}
	return hash
}

// recordResult stores the result text seen for a call hash, used by detect
// to tell "repeated call, same result" (stuck) from "repeated call, result
// changing" (legitimate polling).
func (s *toolLoopState) recordResult(hash, result string) {
	if s.results == nil {
		s.results = make(map[string]string)
	}
	prevSameResult := s.results[hash] == result
	s.results[hash] = result
	if !prevSameResult {
		s.calls[hash] = 1
	}
}

// detect returns a non-empty level ("warning" or "critical") once the same
// call+result has repeated past a threshold, plus a message to surface.
func (s *toolLoopState) detect(name, hash string) (level, message string) {
	count := s.calls[hash]
	switch {
	case count >= toolLoopCriticalThreshold:
		return "critical", "repeated " + name + " call produced no new result after " + strconv.Itoa(count) + " attempts"
	case count >= toolLoopWarnThreshold:
		return "warning", "the " + name + " call has repeated " + strconv.Itoa(count) + " times with the same result; try a different approach"
	default:
		return "", ""
	}
}

func hashToolCall(name string, args map[string]interface{}) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make(map[string]interface{}, len(args))
	for _, k := range keys {
		ordered[k] = args[k]
	}
	raw, _ := json.Marshal(struct {
		Name string                 `json:"name"`
		Args map[string]interface{} `json:"args"`
	}{name, ordered})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
