package terminal

import (
	"fmt"
	"os/exec"
	"strings"
)

// muxHandlePrefix namespaces multiplexer sessions owned by this server so a
// stray kill-session cannot touch a user's own tmux sessions.
const muxHandlePrefix = "ptyhub-"

// Mux drives an external terminal multiplexer (tmux). When a multiplexer is
// present, shells are started inside it and survive server restarts, so the
// multiplexer owns scrollback and the server keeps none.
type Mux struct {
	path string
}

// DetectMux probes PATH for a tmux binary. A nil result selects the
// stored-scrollback fallback.
func DetectMux() *Mux {
	path, err := exec.LookPath("tmux")
	if err != nil {
		return nil
	}
	return &Mux{path: path}
}

// Path returns the resolved multiplexer binary.
func (m *Mux) Path() string {
	return m.path
}

// Handle derives the multiplexer session name for a session id.
func (m *Mux) Handle(sessionID string) string {
	return muxHandlePrefix + sanitizeHandle(sessionID)
}

// SpawnSpec returns the command and argv that attach-or-create the
// multiplexer session running the given shell. The -A flag reattaches an
// existing session after a server restart instead of spawning a second one.
func (m *Mux) SpawnSpec(handle, shell, dir string) (string, []string) {
	args := []string{"new-session", "-A", "-s", handle}
	if dir != "" {
		args = append(args, "-c", dir)
	}
	if shell != "" {
		args = append(args, shell)
	}
	return m.path, args
}

// Has reports whether the multiplexer currently holds a session under the
// given handle.
func (m *Mux) Has(handle string) bool {
	return exec.Command(m.path, "has-session", "-t", handle).Run() == nil
}

// Kill destroys the multiplexer session, ending the shell it hosts. Used on
// explicit termination; plain server shutdown leaves handles running.
func (m *Mux) Kill(handle string) error {
	out, err := exec.Command(m.path, "kill-session", "-t", handle).CombinedOutput()
	if err != nil {
		return fmt.Errorf("kill-session %s: %w: %s", handle, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// sanitizeHandle maps a session id onto the character set tmux accepts for
// session names. Dots and colons are separators for tmux targets.
func sanitizeHandle(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
