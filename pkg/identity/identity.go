// Package identity resolves connection peers to principals.
//
// The resolver is a single interface with two implementations: the anonymous
// resolver used when authentication is disabled, and the token resolver that
// validates a signed bearer token against an allowlist. Callers never branch
// on an auth-enabled flag; they hold whichever resolver configuration chose.
package identity

import (
	"context"
	"errors"
)

// Common errors for identity resolution.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrUserNotAllowed = errors.New("user is not in the allowlist")
)

// Principal is the resolved identity of a connection.
type Principal struct {
	// UserID is the stable identifier keyed into preferences and ownership.
	UserID string `json:"userId"`
	// LoginName is the name the principal authenticated as.
	LoginName string `json:"loginName"`
	// DisplayName is the human-readable name shown in clients.
	DisplayName string `json:"displayName"`
}

// Anonymous reports whether this is the fixed unauthenticated principal.
func (p Principal) Anonymous() bool {
	return p.UserID == AnonymousUserID
}

// Request carries what a transport knows about a peer before resolution.
type Request struct {
	// RemoteAddr is the peer's network address.
	RemoteAddr string
	// Token is the bearer token, when the client supplied one: the
	// Authorization header, the "token" query parameter, or the token field
	// of an auth frame.
	Token string
}

// Resolver maps a connection request to a principal or rejects it.
type Resolver interface {
	// Resolve returns the principal for the request. A nil error means the
	// connection is authorized. Rejections return ErrInvalidToken,
	// ErrExpiredToken or ErrUserNotAllowed.
	Resolve(ctx context.Context, req Request) (Principal, error)

	// Status describes the resolver for health reporting, e.g. "anonymous"
	// or "token".
	Status() string
}
