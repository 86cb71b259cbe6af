package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for hub operations. Store and session layers return these;
// boundaries classify them with errors.Is.
var (
	// Session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrDuplicateSession  = errors.New("session already exists")
	ErrSessionTerminated = errors.New("session is terminated")

	// Category errors
	ErrCategoryNotFound  = errors.New("category not found")
	ErrDuplicateCategory = errors.New("category already exists")

	// Validation / gating errors
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// QuotaExceededError reports the configured session limit that was hit.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Maximum session limit (%d) reached", e.Limit)
}

// IsQuotaExceeded reports whether err is a quota failure.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}
