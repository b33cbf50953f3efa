// Package testhelpers provides utilities for testing crewstack-engine components.
package testhelpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestAuthSecret signs tokens in tests. Pair it with auth middleware
// configured with the same secret.
const TestAuthSecret = "test-secret-do-not-use-outside-tests"

// GenerateTestToken creates a signed HS256 API token for tests.
// A non-positive ttl produces an already-expired token.
func GenerateTestToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "crewstack-engine",
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(TestAuthSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

// GenerateTestTokenWithBearer returns a signed token with the
// "Bearer " prefix for Authorization headers.
func GenerateTestTokenWithBearer(t *testing.T, subject string, ttl time.Duration) string {
	return "Bearer " + GenerateTestToken(t, subject, ttl)
}
