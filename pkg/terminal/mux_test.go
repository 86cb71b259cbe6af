package terminal

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHandle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"UUIDPassesThrough", "0b9f3f2a-7c1d-4e53-9f7e-2d1c8a33b10f", "0b9f3f2a-7c1d-4e53-9f7e-2d1c8a33b10f"},
		{"DotsReplaced", "host.local", "host_local"},
		{"ColonsReplaced", "a:b", "a_b"},
		{"SpacesReplaced", "my session", "my_session"},
		{"UnderscoreKept", "a_b-c", "a_b-c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeHandle(tt.in))
		})
	}
}

func TestMuxHandlePrefix(t *testing.T) {
	m := &Mux{path: "/usr/bin/tmux"}
	assert.Equal(t, "ptyhub-abc-123", m.Handle("abc-123"))
	assert.Equal(t, "ptyhub-a_b", m.Handle("a.b"))
}

func TestMuxSpawnSpec(t *testing.T) {
	m := &Mux{path: "/usr/bin/tmux"}

	t.Run("FullSpec", func(t *testing.T) {
		cmd, args := m.SpawnSpec("ptyhub-x", "/bin/zsh", "/home/dev")
		assert.Equal(t, "/usr/bin/tmux", cmd)
		assert.Equal(t, []string{"new-session", "-A", "-s", "ptyhub-x", "-c", "/home/dev", "/bin/zsh"}, args)
	})

	t.Run("OmitsEmptyFields", func(t *testing.T) {
		_, args := m.SpawnSpec("ptyhub-x", "", "")
		assert.Equal(t, []string{"new-session", "-A", "-s", "ptyhub-x"}, args)
	})
}

func TestDetectMux(t *testing.T) {
	m := DetectMux()
	if path, err := exec.LookPath("tmux"); err == nil {
		assert.NotNil(t, m)
		assert.Equal(t, path, m.Path())
	} else {
		assert.Nil(t, m)
	}
}
