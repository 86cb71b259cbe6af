package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSecretLength rejects signing keys too short to resist brute
// force.
var ErrInvalidSecretLength = errors.New("token secret must be at least 32 characters")

// TokenConfig holds configuration for the token resolver.
type TokenConfig struct {
	// Secret is the HMAC signing key. Must be at least 32 characters.
	Secret string

	// Issuer is the token issuer claim. Default: "ptyhub".
	Issuer string

	// TokenDuration is the lifetime of issued tokens. Default: 24 hours.
	TokenDuration time.Duration

	// AllowedUsers restricts which login names may connect. Empty allows
	// any principal whose token verifies.
	AllowedUsers []string
}

// Claims are the JWT claims carried by ptyhub tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"uid"`
	DisplayName string `json:"name,omitempty"`
}

// TokenResolver validates signed bearer tokens and enforces the user
// allowlist. It both issues and verifies tokens, so a deployment needs no
// external identity provider.
type TokenResolver struct {
	config  TokenConfig
	allowed map[string]bool
}

// NewTokenResolver creates the resolver used when auth is enabled.
func NewTokenResolver(config TokenConfig) (*TokenResolver, error) {
	if len(config.Secret) < 32 {
		return nil, ErrInvalidSecretLength
	}
	if config.Issuer == "" {
		config.Issuer = "ptyhub"
	}
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}

	allowed := make(map[string]bool, len(config.AllowedUsers))
	for _, user := range config.AllowedUsers {
		allowed[user] = true
	}

	return &TokenResolver{config: config, allowed: allowed}, nil
}

// Issue signs a token for the given principal.
func (r *TokenResolver) Issue(p Principal) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    r.config.Issuer,
			Subject:   p.LoginName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.config.TokenDuration)),
		},
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(r.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Resolve validates the request's bearer token and checks the allowlist.
func (r *TokenResolver) Resolve(ctx context.Context, req Request) (Principal, error) {
	if req.Token == "" {
		return Principal{}, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(req.Token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(r.config.Secret), nil
	}, jwt.WithIssuer(r.config.Issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	login := claims.Subject
	if len(r.allowed) > 0 && !r.allowed[login] {
		return Principal{}, ErrUserNotAllowed
	}

	userID := claims.UserID
	if userID == "" {
		userID = login
	}
	display := claims.DisplayName
	if display == "" {
		display = login
	}

	return Principal{UserID: userID, LoginName: login, DisplayName: display}, nil
}

// Status implements Resolver.
func (r *TokenResolver) Status() string {
	return "token"
}

var _ Resolver = (*TokenResolver)(nil)
