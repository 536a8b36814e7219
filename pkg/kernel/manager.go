package kernel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

var (
	// ErrTimeout means a call exceeded the configured deadline. The
	// subprocess is terminated and respawned on next use.
	ErrTimeout = errors.New("kernel call timed out")

	// ErrTerminated means the subprocess was killed while a call was pending.
	ErrTerminated = errors.New("kernel terminated")

	// ErrBusy means a second call was attempted while one was in flight.
	ErrBusy = errors.New("kernel call already in flight")
)

// Callback receives one demultiplexed side-channel line.
type Callback func(line string)

// Options configures a Manager.
type Options struct {
	Command string
	Args    []string
	Timeout time.Duration
	OnLog   Callback // log side channel, prefix already stripped
	OnError Callback // everything else the interpreter writes to stderr
}

// Manager owns at most one interpreter subprocess for one workspace. The
// subprocess spawns lazily on first Run and survives across calls so state
// (imports, variables) persists between code nodes. A single call may be in
// flight at a time.
type Manager struct {
	workspace string
	opts      Options
	logger    *slog.Logger

	runMu sync.Mutex // serializes Run callers

	mu      sync.Mutex // guards process fields and the pending slot
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	pending *call
	exited  bool
}

type call struct {
	marker string
	output strings.Builder
	done   chan outcome
}

type outcome struct {
	output string
	err    error
}

// NewManager builds a manager for one workspace key. No process is spawned
// until the first Run.
func NewManager(workspace string, opts Options, logger *slog.Logger) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &Manager{
		workspace: workspace,
		opts:      opts,
		logger:    logger.With("module", "kernel", "workspace", workspace),
	}
}

// Run executes user code in the workspace's interpreter with input bound to
// the given text and returns everything the code printed before the
// end-of-output marker, trimmed.
func (m *Manager) Run(ctx context.Context, code, input string) (string, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if err := m.ensureStarted(); err != nil {
		return "", err
	}

	c := &call{
		marker: newMarker(),
		done:   make(chan outcome, 1),
	}

	m.mu.Lock()
	if m.pending != nil {
		m.mu.Unlock()

		return "", ErrBusy
	}

	m.pending = c
	stdin := m.stdin
	m.mu.Unlock()

	payload := frame(buildProgram(code, input, c.marker))

	if _, err := io.WriteString(stdin, payload); err != nil {
		m.failPending(fmt.Errorf("failed to write to kernel: %w", err))
		m.killLocked()

		out := <-c.done

		return out.output, out.err
	}

	timer := time.NewTimer(m.opts.Timeout)
	defer timer.Stop()

	select {
	case out := <-c.done:
		return out.output, out.err
	case <-timer.C:
		m.logger.Warn("Kernel call timed out, terminating subprocess", "timeout", m.opts.Timeout)
		m.failPending(ErrTimeout)
		m.killLocked()

		out := <-c.done

		return out.output, out.err
	case <-ctx.Done():
		m.failPending(ctx.Err())
		m.killLocked()

		out := <-c.done

		return out.output, out.err
	}
}

// Terminate kills the subprocess if one is running and rejects any pending
// call. The next Run spawns a fresh interpreter.
func (m *Manager) Terminate() error {
	m.failPending(ErrTerminated)
	m.killLocked()

	return nil
}

// Alive reports whether the subprocess is currently running.
func (m *Manager) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cmd != nil && !m.exited
}

func (m *Manager) ensureStarted() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd != nil && !m.exited {
		return nil
	}

	cmd := exec.Command(m.opts.Command, m.opts.Args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open kernel stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open kernel stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to open kernel stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn kernel %s: %w", m.opts.Command, err)
	}

	m.logger.Info("Spawned kernel subprocess", "command", m.opts.Command, "pid", cmd.Process.Pid)

	m.cmd = cmd
	m.stdin = stdin
	m.exited = false

	go m.readStdout(stdout)
	go m.readStderr(stderr)
	go m.watch(cmd)

	return nil
}

func (m *Manager) readStdout(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		m.handleStdoutLine(scanner.Text())
	}
}

func (m *Manager) handleStdoutLine(line string) {
	m.mu.Lock()

	c := m.pending
	if c == nil {
		m.mu.Unlock()

		return
	}

	// The marker can share a line with trailing user output when the code
	// writes without a final newline, so it is matched as a token in the
	// stream, not as a whole line.
	if idx := strings.Index(line, c.marker); idx >= 0 {
		c.output.WriteString(line[:idx])
		m.pending = nil
		m.mu.Unlock()

		c.done <- outcome{output: strings.TrimSpace(c.output.String())}

		return
	}

	c.output.WriteString(line)
	c.output.WriteString("\n")
	m.mu.Unlock()
}

func (m *Manager) readStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		m.handleStderrLine(scanner.Text())
	}
}

func (m *Manager) handleStderrLine(line string) {
	line = stripPrompts(line)

	if rest, ok := strings.CutPrefix(line, LogPrefix); ok {
		if m.opts.OnLog != nil {
			m.opts.OnLog(strings.TrimPrefix(rest, " "))
		}

		return
	}

	if strings.TrimSpace(line) == "" {
		return
	}

	if m.opts.OnError != nil {
		m.opts.OnError(line)
	}
}

func (m *Manager) watch(cmd *exec.Cmd) {
	err := cmd.Wait()

	m.mu.Lock()
	if m.cmd != cmd {
		m.mu.Unlock()

		return
	}

	m.exited = true
	c := m.pending
	m.pending = nil
	m.mu.Unlock()

	code := cmd.ProcessState.ExitCode()
	m.logger.Info("Kernel subprocess exited", "exit_code", code, "error", err)

	if c != nil {
		c.done <- outcome{err: fmt.Errorf("kernel exited with code %d before completing the call", code)}
	}
}

// failPending rejects the pending call, if any, with the given error.
func (m *Manager) failPending(err error) {
	m.mu.Lock()
	c := m.pending
	m.pending = nil
	m.mu.Unlock()

	if c != nil {
		c.done <- outcome{err: err}
	}
}

// killLocked force-stops the subprocess. Safe to call with none running.
func (m *Manager) killLocked() {
	m.mu.Lock()
	cmd := m.cmd
	m.cmd = nil
	m.stdin = nil
	m.exited = true
	m.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
