// Package auth validates the static HS256 bearer tokens that protect
// the HTTP API. Tokens are minted out-of-band (scripts/mint-token) and
// verified against a single shared secret from the environment.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing validated token claims.
const ClaimsKey contextKey = "claims"

// Claims represents the claims carried by an API token. Name is an
// optional display name for the client, used in log lines only.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
}

// GetClaims retrieves validated claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetSubject returns the token subject from the request context, or
// the empty string when the request was not authenticated.
func GetSubject(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return ""
	}
	return claims.Subject
}
