package session

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
)

// shellPattern constrains shell paths to a conservative character set so a
// crafted create request cannot smuggle shell metacharacters into the spawn.
var shellPattern = regexp.MustCompile(`^[A-Za-z0-9/_.-]+$`)

// validateName trims and bounds a session display name. Empty is allowed;
// the manager substitutes a generated name.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) > models.MaxSessionNameLength {
		return "", fmt.Errorf("%w: session name exceeds %d characters",
			models.ErrInvalidInput, models.MaxSessionNameLength)
	}
	return name, nil
}

// validateShell checks a shell path against the allowed character set.
// Empty is allowed; the manager substitutes the default shell.
func validateShell(shell string) error {
	if shell == "" {
		return nil
	}
	if !shellPattern.MatchString(shell) {
		return fmt.Errorf("%w: shell contains invalid characters", models.ErrInvalidInput)
	}
	return nil
}

// validateCwd bounds a working directory and rejects parent traversal.
func validateCwd(cwd string) error {
	if len(cwd) > models.MaxCwdLength {
		return fmt.Errorf("%w: working directory exceeds %d characters",
			models.ErrInvalidInput, models.MaxCwdLength)
	}
	if strings.Contains(cwd, "..") {
		return fmt.Errorf("%w: working directory must not contain '..'", models.ErrInvalidInput)
	}
	return nil
}

// validateDims bounds terminal dimensions. Zero means "use the default" and
// passes; out-of-range values are rejected.
func validateDims(cols, rows int) error {
	if cols != 0 && (cols < models.MinDimension || cols > models.MaxDimension) {
		return fmt.Errorf("%w: cols must be between %d and %d",
			models.ErrInvalidInput, models.MinDimension, models.MaxDimension)
	}
	if rows != 0 && (rows < models.MinDimension || rows > models.MaxDimension) {
		return fmt.Errorf("%w: rows must be between %d and %d",
			models.ErrInvalidInput, models.MinDimension, models.MaxDimension)
	}
	return nil
}
