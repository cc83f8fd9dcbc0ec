package terminal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/prizm-dev/prizm/internal/errs"
	"github.com/prizm-dev/prizm/internal/model"
	"github.com/prizm-dev/prizm/internal/tools"
)

const (
	execWorkerIdleTimeout = 10 * time.Minute
	execReapInterval      = 60 * time.Second
	execPollInterval      = 10 * time.Millisecond
)

var ansiEscapePattern = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*\x07|\x1b[()][A-Za-z]`)

func stripANSI(s string) string {
	return ansiEscapePattern.ReplaceAllString(s, "")
}

// execWorker is one reusable shell process backing a (agentSessionId,
// workspaceType) key. Commands run against it serially.
type execWorker struct {
	mu       sync.Mutex
	key      model.ExecWorkerKey
	file     fileWriteCloser
	cmd      *exec.Cmd
	lastUsed time.Time
	busy     bool
}

// fileWriteCloser narrows *os.File to the read/write/close surface the
// marker protocol needs, so tests can substitute a fake.
type fileWriteCloser = interface {
	Write(p []byte) (int, error)
	Read(p []byte) (int, error)
	Close() error
}

// Pool manages one-shot exec workers, each reused across calls sharing the
// same key until it goes idle or a command in it times out.
type Pool struct {
	mu      sync.Mutex
	workers map[string]*execWorker
}

// NewPool constructs an empty exec worker pool.
func NewPool() *Pool {
	return &Pool{workers: make(map[string]*execWorker)}
}

func workerKey(k model.ExecWorkerKey) string {
	return k.AgentSessionID + "\x00" + string(k.WorkspaceType)
}

func (p *Pool) spawn(key model.ExecWorkerKey, cwd string) (*execWorker, error) {
	shell := defaultShell()
	cmd := exec.Command(shell)
	cmd.Dir = cwd
	cmd.Env = sanitizedEnv()

	file, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 40, Cols: 200})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "terminal: failed to start exec worker pty", err)
	}
	return &execWorker{key: key, file: file, cmd: cmd, lastUsed: time.Now()}, nil
}

func (p *Pool) getOrCreate(key model.ExecWorkerKey, cwd string) (*execWorker, error) {
	k := workerKey(key)

	p.mu.Lock()
	w, ok := p.workers[k]
	p.mu.Unlock()
	if ok {
		return w, nil
	}

	w, err := p.spawn(key, cwd)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.workers[k] = w
	p.mu.Unlock()
	return w, nil
}

// ActiveWorkerCount reports how many exec workers are currently alive.
func (p *Pool) ActiveWorkerCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

func (p *Pool) destroy(key model.ExecWorkerKey) {
	k := workerKey(key)
	p.mu.Lock()
	w, ok := p.workers[k]
	delete(p.workers, k)
	p.mu.Unlock()
	if !ok {
		return
	}
	_ = w.file.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
}

// Exec runs one command against the worker for key, spawning it if absent.
// A timeout destroys the worker so the next call gets a fresh shell.
func (p *Pool) Exec(ctx context.Context, key model.ExecWorkerKey, command, cwd string, timeout time.Duration) (model.ExecResult, error) {
	for _, pattern := range tools.DefaultDenyPatterns() {
		if pattern.MatchString(command) {
			return model.ExecResult{}, errs.New(errs.Validation, fmt.Sprintf("terminal: command denied by safety policy: matches pattern %s", pattern.String()))
		}
	}

	w, err := p.getOrCreate(key, cwd)
	if err != nil {
		return model.ExecResult{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = true
	defer func() { w.busy = false; w.lastUsed = time.Now() }()

	startMarker := "__prizm_start_" + uuid.NewString() + "__"
	endMarker := "__prizm_end_" + uuid.NewString() + "__"

	wrapped := command
	if strings.HasPrefix(strings.TrimSpace(command), "git ") {
		wrapped = strings.Replace(command, "git ", "git --no-pager ", 1)
	}

	// Each marker is typed as two quoted halves, so the terminal's echo of the
	// typed script never contains a whole marker; only the echo output does.
	script := fmt.Sprintf("cd %s\necho '%s''%s'\n%s\necho '%s''%s':$?\n", shellQuote(cwd),
		startMarker[:8], startMarker[8:], wrapped, endMarker[:8], endMarker[8:])
	slog.Debug("terminal: exec worker running command", "agentSessionId", key.AgentSessionID, "workspaceType", key.WorkspaceType, "command", previewForLog(command, 80))

	start := time.Now()
	if _, err := w.file.Write([]byte(script)); err != nil {
		p.destroy(key)
		return model.ExecResult{}, errs.Wrap(errs.Internal, "terminal: failed to write to exec worker", err)
	}

	output, exitCode, timedOut := readUntilMarker(ctx, w.file, startMarker, endMarker, timeout)
	if timedOut {
		p.destroy(key)
	}

	return model.ExecResult{
		Output:     output,
		ExitCode:   exitCode,
		DurationMs: time.Since(start).Milliseconds(),
		TimedOut:   timedOut,
	}, nil
}

// readUntilMarker reads from r until the end marker (with its trailing exit
// code) appears, returning the content strictly between the two markers.
func readUntilMarker(ctx context.Context, r interface{ Read([]byte) (int, error) }, startMarker, endMarker string, timeout time.Duration) (output string, exitCode int, timedOut bool) {
	deadline := time.Now().Add(timeout)
	var acc bytes.Buffer
	buf := make([]byte, 4096)

	for {
		if time.Now().After(deadline) {
			return "", 0, true
		}
		select {
		case <-ctx.Done():
			return "", 0, true
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
			clean := stripANSI(acc.String())
			if strings.Contains(clean, endMarker) {
				o, code := extractBetweenMarkers(clean, startMarker, endMarker)
				return o, code, false
			}
		}
		if readErr != nil {
			clean := stripANSI(acc.String())
			o, code := extractBetweenMarkers(clean, startMarker, endMarker)
			return o, code, false
		}
		if n == 0 {
			time.Sleep(execPollInterval)
		}
	}
}

// extractBetweenMarkers slices the command's stdout out of clean (the
// start marker's echo up to the end marker's echo plus trailing exit code)
// and parses the ":N" exit-code trailer.
func extractBetweenMarkers(clean, startMarker, endMarker string) (string, int) {
	start := strings.Index(clean, startMarker)
	end := strings.Index(clean, endMarker)
	if start < 0 || end < 0 || end < start {
		return strings.TrimSpace(clean), -1
	}
	body := clean[start+len(startMarker) : end]
	body = strings.TrimPrefix(body, "\r\n")
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimSuffix(body, "\r\n")
	body = strings.TrimSuffix(body, "\n")

	trailer := clean[end+len(endMarker):]
	trailer = strings.TrimPrefix(strings.TrimLeft(trailer, " \t"), ":")
	trailer = strings.TrimSpace(strings.SplitN(trailer, "\n", 2)[0])
	code, convErr := strconv.Atoi(trailer)
	if convErr != nil {
		code = -1
	}
	return body, code
}

func shellQuote(s string) string {
	if s == "" {
		return "."
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Run starts the idle-exec-worker reaper; it returns when ctx is cancelled.
func (p *Pool) Run(ctx context.Context) {
	t := time.NewTicker(execReapInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.reapIdle()
		}
	}
}

func (p *Pool) reapIdle() {
	now := time.Now()
	var stale []model.ExecWorkerKey

	p.mu.Lock()
	for _, w := range p.workers {
		w.mu.Lock()
		idle := !w.busy && now.Sub(w.lastUsed) > execWorkerIdleTimeout
		w.mu.Unlock()
		if idle {
			stale = append(stale, w.key)
		}
	}
	p.mu.Unlock()

	for _, k := range stale {
		slog.Info("terminal: reaping idle exec worker", "agentSessionId", k.AgentSessionID, "workspaceType", k.WorkspaceType)
		p.destroy(k)
	}
}

// Shutdown destroys every exec worker.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	keys := make([]model.ExecWorkerKey, 0, len(p.workers))
	for _, w := range p.workers {
		keys = append(keys, w.key)
	}
	p.mu.Unlock()
	for _, k := range keys {
		p.destroy(k)
	}
}
