// Package terminal implements the Terminal Session Manager: long-lived,
// client-attachable PTYs plus a pool of reusable one-shot exec workers. No
// PTY code exists anywhere in the retrieved corpus, so this is built fresh
// in the teacher's idiom — a mutex-guarded map of live sessions and a
// time.Ticker reaper loop, the same shape internal/locks.Manager and
// internal/background.Manager use for their own state tables — with
// github.com/creack/pty doing the raw PTY allocation and
// github.com/mattn/go-runewidth handling display-width-aware truncation for
// diagnostic previews.
package terminal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/prizm-dev/prizm/internal/errs"
	"github.com/prizm-dev/prizm/internal/model"
)

const (
	maxInteractivePerSession = 5
	maxInteractiveGlobal     = 20
	idleTimeout              = 30 * time.Minute
	maxLifetime              = 8 * time.Hour
	reapInterval             = 60 * time.Second
	shutdownGrace            = 3 * time.Second
)

// EventType distinguishes the frames Attach replays to a client.
type EventType string

const (
	EventOutput   EventType = "output"
	EventAttached EventType = "attached"
	EventExit     EventType = "exit"
)

// Event is one frame delivered to an attached client.
type Event struct {
	Type     EventType
	Data     string
	ExitCode *int
}

// ptySession wraps one live interactive terminal: its model record, the PTY file,
// the output ring buffer, and the set of live subscribers.
type ptySession struct {
	mu          sync.Mutex
	term        *model.Terminal
	file        *os.File
	cmd         *exec.Cmd
	buf         *ringBuffer
	subscribers map[chan Event]struct{}
}

func (s *ptySession) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// slow subscriber: drop rather than block the PTY reader loop
		}
	}
}

// Manager tracks every live interactive terminal for the process.
type Manager struct {
	mu        sync.Mutex
	terminals map[string]*ptySession
}

// New constructs a Manager with no live terminals.
func New() *Manager {
	return &Manager{terminals: make(map[string]*ptySession)}
}

func (m *Manager) countForSession(scope, agentSessionID string) int {
	n := 0
	for _, s := range m.terminals {
		if s.term.Scope == scope && s.term.AgentSessionID == agentSessionID {
			n++
		}
	}
	return n
}

// Create spawns a new interactive PTY and starts streaming its output into
// the ring buffer and any future subscribers.
func (m *Manager) Create(scope, agentSessionID, shell, cwd string, cols, rows int) (*model.Terminal, error) {
	if shell == "" {
		shell = defaultShell()
	}
	if !isAllowedShell(shell) {
		return nil, errs.New(errs.Validation, fmt.Sprintf("terminal: shell %q is not on the allowed list", shell))
	}
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	m.mu.Lock()
	if m.countForSession(scope, agentSessionID) >= maxInteractivePerSession {
		m.mu.Unlock()
		return nil, errs.New(errs.ConcurrencyLimit, fmt.Sprintf("terminal: session %s already has %d interactive terminals", agentSessionID, maxInteractivePerSession))
	}
	if len(m.terminals) >= maxInteractiveGlobal {
		m.mu.Unlock()
		return nil, errs.New(errs.ConcurrencyLimit, fmt.Sprintf("terminal: global interactive limit (%d) reached", maxInteractiveGlobal))
	}
	m.mu.Unlock()

	cmd := exec.Command(shell)
	cmd.Dir = cwd
	cmd.Env = sanitizedEnv()

	file, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "terminal: failed to start pty", err)
	}

	now := time.Now()
	term := &model.Terminal{
		ID:             uuid.NewString(),
		Scope:          scope,
		AgentSessionID: agentSessionID,
		Shell:          shell,
		Cwd:            cwd,
		Status:         model.TerminalRunning,
		Cols:           cols,
		Rows:           rows,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	sess := &ptySession{
		term:        term,
		file:        file,
		cmd:         cmd,
		buf:         newRingBuffer(),
		subscribers: make(map[chan Event]struct{}),
	}

	m.mu.Lock()
	m.terminals[term.ID] = sess
	m.mu.Unlock()

	go m.pump(sess)
	go m.waitExit(sess)

	return term, nil
}

// pump copies PTY output into the ring buffer and live subscribers until
// the PTY closes.
func (m *Manager) pump(sess *ptySession) {
	buf := make([]byte, 4096)
	for {
		n, err := sess.file.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			sess.buf.Write(chunk)
			sess.mu.Lock()
			sess.term.LastActivityAt = time.Now()
			sess.mu.Unlock()
			sess.broadcast(Event{Type: EventOutput, Data: string(chunk)})
		}
		if err != nil {
			if err != io.EOF {
				slog.Debug("terminal: pty read ended", "terminalId", sess.term.ID, "error", err)
			}
			return
		}
	}
}

// waitExit blocks on the shell process and marks the terminal exited.
func (m *Manager) waitExit(sess *ptySession) {
	err := sess.cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}

	sess.mu.Lock()
	if sess.term.Status == model.TerminalRunning {
		sess.term.Status = model.TerminalExited
		sess.term.ExitCode = &code
	}
	finalCode := sess.term.ExitCode
	sess.mu.Unlock()

	sess.broadcast(Event{Type: EventExit, ExitCode: finalCode})
	_ = sess.file.Close()
}

// Count reports how many interactive terminals are currently tracked.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.terminals)
}

// Get returns a terminal's current model record.
func (m *Manager) Get(terminalID string) (*model.Terminal, bool) {
	m.mu.Lock()
	sess, ok := m.terminals[terminalID]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	cp := *sess.term
	return &cp, true
}

// List returns every live terminal for a scope, or every terminal if scope
// is empty.
func (m *Manager) List(scope string) []*model.Terminal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Terminal, 0, len(m.terminals))
	for _, s := range m.terminals {
		s.mu.Lock()
		if scope == "" || s.term.Scope == scope {
			cp := *s.term
			out = append(out, &cp)
		}
		s.mu.Unlock()
	}
	return out
}

// Write sends input bytes to the terminal's PTY.
func (m *Manager) Write(terminalID string, data []byte) error {
	m.mu.Lock()
	sess, ok := m.terminals[terminalID]
	m.mu.Unlock()
	if !ok {
		return errs.New(errs.NotFound, fmt.Sprintf("terminal: %q not found", terminalID))
	}
	sess.mu.Lock()
	sess.term.LastActivityAt = time.Now()
	sess.mu.Unlock()
	_, err := sess.file.Write(data)
	return err
}

// Resize updates a terminal's PTY window size.
func (m *Manager) Resize(terminalID string, cols, rows int) error {
	m.mu.Lock()
	sess, ok := m.terminals[terminalID]
	m.mu.Unlock()
	if !ok {
		return errs.New(errs.NotFound, fmt.Sprintf("terminal: %q not found", terminalID))
	}
	if err := pty.Setsize(sess.file, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return errs.Wrap(errs.Internal, "terminal: resize failed", err)
	}
	sess.mu.Lock()
	sess.term.Cols, sess.term.Rows = cols, rows
	sess.mu.Unlock()
	return nil
}

// Attach replays the full ring buffer as one output event, then an attached
// event, then streams future live output on the returned channel. If the
// terminal has already exited, an exit event follows immediately. Call the
// returned unsubscribe func when the client disconnects.
func (m *Manager) Attach(terminalID string) (<-chan Event, func(), error) {
	m.mu.Lock()
	sess, ok := m.terminals[terminalID]
	m.mu.Unlock()
	if !ok {
		return nil, nil, errs.New(errs.NotFound, fmt.Sprintf("terminal: %q not found", terminalID))
	}

	ch := make(chan Event, 64)
	sess.mu.Lock()
	replay := sess.buf.Snapshot()
	status := sess.term.Status
	exitCode := sess.term.ExitCode
	sess.subscribers[ch] = struct{}{}
	sess.mu.Unlock()

	if replay != "" {
		ch <- Event{Type: EventOutput, Data: replay}
	}
	ch <- Event{Type: EventAttached}
	if status != model.TerminalRunning {
		ch <- Event{Type: EventExit, ExitCode: exitCode}
	}

	unsubscribe := func() {
		sess.mu.Lock()
		delete(sess.subscribers, ch)
		sess.mu.Unlock()
	}
	return ch, unsubscribe, nil
}

// Kill terminates a terminal's shell process.
func (m *Manager) Kill(terminalID string) error {
	m.mu.Lock()
	sess, ok := m.terminals[terminalID]
	m.mu.Unlock()
	if !ok {
		return errs.New(errs.NotFound, fmt.Sprintf("terminal: %q not found", terminalID))
	}
	sess.mu.Lock()
	if sess.term.Status == model.TerminalRunning {
		sess.term.Status = model.TerminalKilled
	}
	sess.mu.Unlock()
	if sess.cmd.Process == nil {
		return nil
	}
	return sess.cmd.Process.Kill()
}

// Run starts the idle/lifetime reaper; it returns when ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(reapInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.reap()
		}
	}
}

func (m *Manager) reap() {
	now := time.Now()
	var toKill []string

	m.mu.Lock()
	for id, s := range m.terminals {
		s.mu.Lock()
		stale := s.term.Status == model.TerminalRunning &&
			(s.term.IdleFor(now) > idleTimeout || s.term.Age(now) > maxLifetime)
		done := s.term.Status != model.TerminalRunning
		s.mu.Unlock()
		if stale {
			toKill = append(toKill, id)
		}
		if done {
			delete(m.terminals, id)
		}
	}
	m.mu.Unlock()

	for _, id := range toKill {
		slog.Info("terminal: reaping idle or expired terminal", "terminalId", id)
		if err := m.Kill(id); err != nil {
			slog.Warn("terminal: reap kill failed", "terminalId", id, "error", err)
		}
	}
}

// Shutdown kills every live PTY, waits briefly for exits, then drops them
// all regardless of whether they exited cleanly.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.terminals))
	for id := range m.terminals {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.Kill(id)
	}
	time.Sleep(shutdownGrace)

	m.mu.Lock()
	m.terminals = make(map[string]*ptySession)
	m.mu.Unlock()
}
