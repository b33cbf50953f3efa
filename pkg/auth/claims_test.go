package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestGetClaims_Missing(t *testing.T) {
	claims, ok := GetClaims(context.Background())
	if ok || claims != nil {
		t.Error("expected no claims in empty context")
	}
}

func TestGetSubject(t *testing.T) {
	if got := GetSubject(context.Background()); got != "" {
		t.Errorf("expected empty subject, got %q", got)
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "svc-ci"},
	}
	ctx := context.WithValue(context.Background(), ClaimsKey, claims)
	if got := GetSubject(ctx); got != "svc-ci" {
		t.Errorf("expected subject 'svc-ci', got %q", got)
	}
}
