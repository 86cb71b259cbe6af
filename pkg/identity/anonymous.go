package identity

import "context"

// AnonymousUserID is the fixed user ID assigned when authentication is
// disabled. Preferences and ownership for all unauthenticated clients share
// this principal.
const AnonymousUserID = "anonymous"

// AnonymousResolver accepts every peer as the fixed anonymous principal.
type AnonymousResolver struct{}

// NewAnonymousResolver creates the resolver used when auth is disabled.
func NewAnonymousResolver() *AnonymousResolver {
	return &AnonymousResolver{}
}

// Resolve always succeeds with the anonymous principal.
func (r *AnonymousResolver) Resolve(ctx context.Context, req Request) (Principal, error) {
	return Principal{
		UserID:      AnonymousUserID,
		LoginName:   AnonymousUserID,
		DisplayName: "Anonymous",
	}, nil
}

// Status implements Resolver.
func (r *AnonymousResolver) Status() string {
	return "anonymous"
}

var _ Resolver = (*AnonymousResolver)(nil)
