// Package terminal provides the PTY process adapter, the scrollback ring,
// and the external multiplexer helper used by the session layer.
package terminal

import (
	"strings"
	"sync"
)

// Ring is a fixed-capacity buffer of completed terminal lines plus a
// partial-line carry. Incoming bytes are split on line feeds (an immediately
// preceding carriage return is stripped); the trailing segment without a
// terminator is kept as raw bytes until the next append, so multibyte
// sequences split across PTY reads survive intact. Once full, the oldest
// line is overwritten in place. The ring never interprets escape sequences.
type Ring struct {
	mu    sync.RWMutex
	lines []string
	head  int    // index of the oldest stored line
	size  int    // number of stored lines
	carry []byte // unterminated trailing bytes
}

// NewRing creates a ring holding up to capacity completed lines.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{lines: make([]string, capacity)}
}

// Append splits p into completed lines and pushes them onto the ring.
// The unterminated tail becomes the new carry.
func (r *Ring) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	if len(r.carry) > 0 {
		joined := make([]byte, 0, len(r.carry)+len(p))
		joined = append(joined, r.carry...)
		joined = append(joined, p...)
		data = joined
	}

	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] != '\n' {
			continue
		}
		end := i
		if end > start && data[end-1] == '\r' {
			end--
		}
		r.push(string(data[start:end]))
		start = i + 1
	}

	if start < len(data) {
		carry := make([]byte, len(data)-start)
		copy(carry, data[start:])
		r.carry = carry
	} else {
		r.carry = nil
	}
}

// push stores one completed line, overwriting the oldest at capacity.
func (r *Ring) push(line string) {
	if r.size < len(r.lines) {
		r.lines[(r.head+r.size)%len(r.lines)] = line
		r.size++
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
}

// Lines returns the stored lines oldest first, followed by the carry if one
// is pending. The result has at most capacity+1 entries.
func (r *Ring) Lines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, r.size+1)
	for i := 0; i < r.size; i++ {
		out = append(out, r.lines[(r.head+i)%len(r.lines)])
	}
	if len(r.carry) > 0 {
		out = append(out, string(r.carry))
	}
	return out
}

// Recent returns the last k entries of the Lines sequence.
func (r *Ring) Recent(k int) []string {
	if k <= 0 {
		return nil
	}
	all := r.Lines()
	if len(all) <= k {
		return all
	}
	return all[len(all)-k:]
}

// Joined returns the Lines sequence as a single LF-separated string, the
// shape sent to clients on attach.
func (r *Ring) Joined() string {
	return strings.Join(r.Lines(), "\n")
}

// Len returns the number of completed lines currently stored.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the maximum number of completed lines.
func (r *Ring) Capacity() int {
	return len(r.lines)
}

// Clear resets the ring and discards the carry.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.size = 0
	r.carry = nil
}
