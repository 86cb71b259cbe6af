package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfigTemplate is the annotated configuration written by `ptyhub init`.
// The %s placeholder receives a freshly generated token secret.
const sampleConfigTemplate = `# ptyhub configuration
#
# Every option can be overridden with an environment variable:
#   PTYHUB_<SECTION>_<KEY>, e.g. PTYHUB_LOGGING_LEVEL=DEBUG

logging:
  # DEBUG, INFO, WARN or ERROR
  level: INFO
  # text or json
  format: text
  # stdout, stderr or a file path
  output: stdout

server:
  host: 0.0.0.0
  port: 4220
  read_timeout: 10s
  write_timeout: 10s
  shutdown_timeout: 30s
  rate_limit:
    # Burst allowance per client connection, one token per inbound frame
    capacity: 100
    # Time to regain one token
    refill_interval: 10ms

sessions:
  # Maximum concurrently active sessions
  max_sessions: 10
  # Terminate sessions with no attached client after this long.
  # Zero disables idle reaping.
  idle_timeout: 0s
  # Shell spawned when a create request names none.
  # Defaults to $SHELL, falling back to /bin/bash.
  # default_shell: /bin/zsh
  default_cols: 80
  default_rows: 24

persistence:
  # In-memory scrollback ring capacity per session, in lines
  scrollback_lines: 10000
  # Database and log files live here.
  # Defaults to $XDG_DATA_HOME/ptyhub.
  # data_dir: /var/lib/ptyhub
  database:
    # sqlite or postgres
    type: sqlite
    # sqlite:
    #   path: /var/lib/ptyhub/ptyhub.db
    # postgres:
    #   host: localhost
    #   port: 5432
    #   user: ptyhub
    #   password: secret
    #   database: ptyhub
    #   sslmode: disable

auth:
  # When disabled, every client resolves to the anonymous principal.
  enabled: false
  # HMAC signing secret for client tokens; required (min 32 chars)
  # when auth is enabled. A random one was generated for you.
  # Prefer PTYHUB_AUTH_TOKEN_SECRET in production.
  token_secret: %s
  # Restrict which user IDs may connect. Empty allows any
  # authenticated user.
  # allowed_users:
  #   - alice
  #   - bob

metrics:
  # Prometheus metrics on a separate port
  enabled: false
  port: 9090

telemetry:
  # OpenTelemetry tracing to an OTLP gRPC collector
  enabled: false
  endpoint: localhost:4317
  insecure: true
  sample_rate: 1.0
  profiling:
    # Pyroscope continuous profiling
    enabled: false
    endpoint: http://localhost:4040
`

// InitConfig writes a sample configuration file to the default location
// and returns the path it was written to.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to the given path.
// Refuses to overwrite an existing file unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	secret, err := generateTokenSecret()
	if err != nil {
		return err
	}

	content := fmt.Sprintf(sampleConfigTemplate, secret)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateTokenSecret returns 32 bytes of entropy as a hex string.
func generateTokenSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
