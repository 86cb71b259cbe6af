package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestResolver(t *testing.T, cfg TokenConfig) *TokenResolver {
	t.Helper()
	if cfg.Secret == "" {
		cfg.Secret = testSecret
	}
	r, err := NewTokenResolver(cfg)
	require.NoError(t, err)
	return r
}

func TestAnonymousResolver(t *testing.T) {
	r := NewAnonymousResolver()

	p, err := r.Resolve(context.Background(), Request{RemoteAddr: "10.0.0.1:5000"})
	require.NoError(t, err)
	assert.Equal(t, AnonymousUserID, p.UserID)
	assert.True(t, p.Anonymous())
	assert.Equal(t, "anonymous", r.Status())

	// Any token is ignored when auth is disabled.
	p2, err := r.Resolve(context.Background(), Request{Token: "garbage"})
	require.NoError(t, err)
	assert.Equal(t, p, p2)
}

func TestNewTokenResolver(t *testing.T) {
	t.Run("ShortSecretRejected", func(t *testing.T) {
		_, err := NewTokenResolver(TokenConfig{Secret: "too-short"})
		assert.ErrorIs(t, err, ErrInvalidSecretLength)
	})

	t.Run("Defaults", func(t *testing.T) {
		r := newTestResolver(t, TokenConfig{})
		assert.Equal(t, "ptyhub", r.config.Issuer)
		assert.Equal(t, 24*time.Hour, r.config.TokenDuration)
		assert.Equal(t, "token", r.Status())
	})
}

func TestIssueAndResolve(t *testing.T) {
	r := newTestResolver(t, TokenConfig{})
	ctx := context.Background()

	token, err := r.Issue(Principal{
		UserID:      "u-1",
		LoginName:   "alice",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	p, err := r.Resolve(ctx, Request{Token: token})
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.UserID)
	assert.Equal(t, "alice", p.LoginName)
	assert.Equal(t, "Alice", p.DisplayName)
	assert.False(t, p.Anonymous())

	t.Run("SparseClaimsFallBackTosubject", func(t *testing.T) {
		token, err := r.Issue(Principal{LoginName: "bob"})
		require.NoError(t, err)

		p, err := r.Resolve(ctx, Request{Token: token})
		require.NoError(t, err)
		assert.Equal(t, "bob", p.UserID)
		assert.Equal(t, "bob", p.DisplayName)
	})
}

func TestResolveRejections(t *testing.T) {
	r := newTestResolver(t, TokenConfig{})
	ctx := context.Background()

	t.Run("EmptyToken", func(t *testing.T) {
		_, err := r.Resolve(ctx, Request{})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := r.Resolve(ctx, Request{Token: "not.a.jwt"})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := newTestResolver(t, TokenConfig{Secret: strings.Repeat("x", 32)})
		token, err := other.Issue(Principal{LoginName: "alice"})
		require.NoError(t, err)

		_, err = r.Resolve(ctx, Request{Token: token})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := newTestResolver(t, TokenConfig{Issuer: "someone-else"})
		token, err := other.Issue(Principal{LoginName: "alice"})
		require.NoError(t, err)

		_, err = r.Resolve(ctx, Request{Token: token})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		now := time.Now()
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "ptyhub",
				Subject:   "alice",
				IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
			SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = r.Resolve(ctx, Request{Token: token})
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("UnsignedAlgRejected", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "ptyhub",
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = r.Resolve(ctx, Request{Token: token})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestAllowlist(t *testing.T) {
	r := newTestResolver(t, TokenConfig{AllowedUsers: []string{"alice", "carol"}})
	ctx := context.Background()

	t.Run("AllowedUser", func(t *testing.T) {
		token, err := r.Issue(Principal{LoginName: "alice"})
		require.NoError(t, err)
		_, err = r.Resolve(ctx, Request{Token: token})
		assert.NoError(t, err)
	})

	t.Run("UnlistedUser", func(t *testing.T) {
		token, err := r.Issue(Principal{LoginName: "mallory"})
		require.NoError(t, err)
		_, err = r.Resolve(ctx, Request{Token: token})
		assert.ErrorIs(t, err, ErrUserNotAllowed)
	})

	t.Run("EmptyAllowlistAllowsAnyValidToken", func(t *testing.T) {
		open := newTestResolver(t, TokenConfig{})
		token, err := open.Issue(Principal{LoginName: "whoever"})
		require.NoError(t, err)
		_, err = open.Resolve(ctx, Request{Token: token})
		assert.NoError(t, err)
	})
}
