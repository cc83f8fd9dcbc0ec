package chat

import "testing"

func TestToolLoopState_NoWarningBelowThreshold(t *testing.T) {
	var s toolLoopState
	args := map[string]interface{}{"path": "a.txt"}
	var hash string
	for i := 0; i < toolLoopWarnThreshold-1; i++ {
		hash = s.record("read_file", args)
		s.recordResult(hash, "same content")
	}
	level, _ := s.detect("read_file", hash)
	if level != "" {
		t.Fatalf("expected no warning below threshold, got %q", level)
	}
}

func TestToolLoopState_WarnsThenEscalatesToCritical(t *testing.T) {
	var s toolLoopState
	args := map[string]interface{}{"path": "a.txt"}
	var hash string
	var level string
	for i := 0; i < toolLoopCriticalThreshold; i++ {
		hash = s.record("read_file", args)
		s.recordResult(hash, "same content")
		level, _ = s.detect("read_file", hash)
	}
	if level != "critical" {
		t.Fatalf("expected critical after %d identical repeats, got %q", toolLoopCriticalThreshold, level)
	}
}

func TestToolLoopState_ChangingResultResetsCounter(t *testing.T) {
	var s toolLoopState
	args := map[string]interface{}{"url": "http://example.com"}
	var hash string
	for i := 0; i < toolLoopCriticalThreshold; i++ {
		hash = s.record("fetch", args)
		// Each call returns a different result, e.g. polling a job status.
		s.recordResult(hash, "poll result "+string(rune('a'+i)))
	}
	level, _ := s.detect("fetch", hash)
	if level != "" {
		t.Fatalf("expected no loop warning when results keep changing, got %q", level)
	}
}

func TestToolLoopState_DifferentCallInterleavedResetsStreak(t *testing.T) {
	var s toolLoopState
	argsA := map[string]interface{}{"path": "a.txt"}
	argsB := map[string]interface{}{"path": "b.txt"}

	hashA := s.record("read_file", argsA)
	s.recordResult(hashA, "content a")
	s.record("read_file", argsB)

	hashA2 := s.record("read_file", argsA)
	if hashA2 != hashA {
		t.Fatalf("same name+args should hash identically")
	}
	level, _ := s.detect("read_file", hashA)
	if level != "" {
		t.Fatalf("expected streak to reset after an interleaved different call, got %q", level)
	}
}

func TestHashToolCall_ArgOrderIndependent(t *testing.T) {
	h1 := hashToolCall("write_file", map[string]interface{}{"path": "a.txt", "content": "x"})
	h2 := hashToolCall("write_file", map[string]interface{}{"content": "x", "path": "a.txt"})
	if h1 != h2 {
		t.Fatalf("expected argument order to not affect the hash: %q vs %q", h1, h2)
	}
}

func TestHashToolCall_DifferentArgsDiffer(t *testing.T) {
	h1 := hashToolCall("write_file", map[string]interface{}{"path": "a.txt"})
	h2 := hashToolCall("write_file", map[string]interface{}{"path": "b.txt"})
	if h1 == h2 {
		t.Fatalf("expected different arguments to hash differently")
	}
}
