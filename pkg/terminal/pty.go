package terminal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/ptyhub/ptyhub/internal/logger"
)

// SessionEnvVar is exported into every child process so hook scripts can
// address the notification endpoint for their own session.
const SessionEnvVar = "PTYHUB_SESSION_ID"

const (
	defaultCols = 80
	defaultRows = 24

	readBufferSize = 32 * 1024

	// killGracePeriod is how long a signalled process group gets to exit
	// before escalation to SIGKILL.
	killGracePeriod = 3 * time.Second

	// drainGracePeriod bounds how long the reaper waits for the reader
	// to consume buffered output after the child exits.
	drainGracePeriod = 2 * time.Second
)

// SpawnOptions describes the child process attached to a new PTY.
type SpawnOptions struct {
	// Shell is the command path. Empty selects DefaultShell.
	Shell string
	// Args is the argv passed after the command path.
	Args []string
	// Dir is the working directory. Empty inherits the server's.
	Dir string
	// Cols and Rows set the initial window size. Zero selects 80x24.
	Cols uint16
	Rows uint16
	// Env is overlaid on the inherited environment.
	Env map[string]string
	// SessionID is exported as SessionEnvVar.
	SessionID string
}

// PTY wraps a child process attached to a pseudo-terminal master. Register
// OnData and OnExit before Start; raw output is delivered in emission order
// on a single goroutine, and the exit callback fires only after the final
// output chunk has been delivered. Write, Resize and Kill never return
// errors: failures are logged and swallowed so a dying PTY cannot take a
// client request down with it.
type PTY struct {
	sessionID string
	cmd       *exec.Cmd
	ptmx      *os.File

	mu     sync.Mutex
	onData func([]byte)
	onExit func(code int)

	done     chan struct{} // closed by Kill; suppresses the exit callback
	reaped   chan struct{} // closed once the child is waited on
	exitCode int

	killOnce sync.Once
	readerWg sync.WaitGroup
}

// Spawn forks the command attached to a new PTY sized cols x rows. It is
// the only adapter operation that reports errors.
func Spawn(opts SpawnOptions) (*PTY, error) {
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell()
	}

	cmd := exec.Command(shell, opts.Args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	cmd.Env = buildEnv(opts.Env, opts.SessionID)

	cols := opts.Cols
	if cols == 0 {
		cols = defaultCols
	}
	rows := opts.Rows
	if rows == 0 {
		rows = defaultRows
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, fmt.Errorf("failed to start pty for %s: %w", shell, err)
	}

	return &PTY{
		sessionID: opts.SessionID,
		cmd:       cmd,
		ptmx:      ptmx,
		done:      make(chan struct{}),
		reaped:    make(chan struct{}),
	}, nil
}

// OnData registers the output callback. Call before Start.
func (p *PTY) OnData(fn func(data []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onData = fn
}

// OnExit registers the exit callback. Call before Start. The callback does
// not fire when the process is torn down through Kill.
func (p *PTY) OnExit(fn func(code int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onExit = fn
}

// Start launches the reader and reaper goroutines.
func (p *PTY) Start() {
	p.readerWg.Add(1)
	go p.readLoop()
	go p.waitLoop()
}

// Pid returns the child process id, or 0 before the fork completed.
func (p *PTY) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Write forwards keystrokes to the child.
func (p *PTY) Write(data []byte) {
	if _, err := p.ptmx.Write(data); err != nil {
		logger.Warn("pty write failed",
			logger.KeySessionID, p.sessionID,
			logger.KeyError, err)
	}
}

// Resize updates the PTY window size and lets the kernel deliver SIGWINCH.
func (p *PTY) Resize(cols, rows uint16) {
	if err := pty.Setsize(p.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		logger.Warn("pty resize failed",
			logger.KeySessionID, p.sessionID,
			logger.Dims(int(cols), int(rows)),
			logger.KeyError, err)
	}
}

// Kill tears the child down: SIGHUP to the process group, escalating to
// SIGKILL after a grace period. Safe to call more than once. The exit
// callback is suppressed for processes ended this way.
func (p *PTY) Kill() {
	p.killOnce.Do(func() {
		close(p.done)

		proc := p.cmd.Process
		if proc == nil {
			_ = p.ptmx.Close()
			return
		}

		pid := proc.Pid
		if err := unix.Kill(-pid, unix.SIGHUP); err != nil && !errors.Is(err, unix.ESRCH) {
			logger.Warn("pty signal failed",
				logger.KeySessionID, p.sessionID,
				"pid", pid,
				logger.KeyError, err)
		}

		go func() {
			select {
			case <-p.reaped:
			case <-time.After(killGracePeriod):
				_ = unix.Kill(-pid, unix.SIGKILL)
			}
		}()
	})
}

// Wait blocks until the child has been reaped and all output delivered.
func (p *PTY) Wait() int {
	<-p.reaped
	p.readerWg.Wait()
	return p.exitCode
}

// readLoop pumps master-side output into the data callback until the PTY
// closes. The buffer is copied per chunk because callbacks retain the slice.
func (p *PTY) readLoop() {
	defer p.readerWg.Done()

	buf := make([]byte, readBufferSize)
	for {
		n, err := p.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.dispatchData(chunk)
		}
		if err != nil {
			return
		}
	}
}

// waitLoop reaps the child exactly once, lets the reader drain buffered
// output, and fires the exit callback after the last output chunk.
func (p *PTY) waitLoop() {
	code := 0
	if err := p.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	p.exitCode = code
	close(p.reaped)

	// The master must not be closed while output from a fast-exiting
	// child is still buffered in the kernel. Once the slave side is gone
	// the reader drains the buffer and gets EIO on its own; the timeout
	// covers orphaned grandchildren keeping the slave fd open.
	drained := make(chan struct{})
	go func() {
		p.readerWg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainGracePeriod):
	}
	_ = p.ptmx.Close()
	p.readerWg.Wait()

	select {
	case <-p.done:
		return
	default:
	}
	p.dispatchExit(code)
}

func (p *PTY) dispatchData(data []byte) {
	p.mu.Lock()
	fn := p.onData
	p.mu.Unlock()
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pty data callback panicked",
				logger.KeySessionID, p.sessionID,
				"panic", r)
		}
	}()
	fn(data)
}

func (p *PTY) dispatchExit(code int) {
	p.mu.Lock()
	fn := p.onExit
	p.mu.Unlock()
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pty exit callback panicked",
				logger.KeySessionID, p.sessionID,
				"panic", r)
		}
	}()
	fn(code)
}

// DefaultShell returns $SHELL or /bin/bash.
func DefaultShell() string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}

// buildEnv assembles the child environment: the inherited environment with
// the overlay applied, then TERM, COLORTERM and the session identity forced
// so terminal programs always see a capable emulator.
func buildEnv(overlay map[string]string, sessionID string) []string {
	shadowed := map[string]bool{
		"TERM":        true,
		"COLORTERM":   true,
		SessionEnvVar: true,
	}
	for key := range overlay {
		shadowed[key] = true
	}

	env := make([]string, 0, len(os.Environ())+len(overlay)+3)
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && shadowed[key] {
			continue
		}
		env = append(env, kv)
	}
	for key, value := range overlay {
		switch key {
		case "TERM", "COLORTERM", SessionEnvVar:
			continue
		}
		env = append(env, key+"="+value)
	}

	env = append(env,
		"TERM=xterm-256color",
		"COLORTERM=truecolor",
		SessionEnvVar+"="+sessionID,
	)
	return env
}
