// mint-token creates a signed HS256 API token for crewstack-engine.
//
// The signing secret comes from the API_AUTH_SECRET environment
// variable, the same one the server verifies against.
//
// Usage: API_AUTH_SECRET=... go run ./scripts/mint-token -subject ci-pipeline
//
// Flags:
//
//	-subject  Token subject, typically the client name (required)
//	-name     Optional display name embedded in the token
//	-ttl      Token lifetime (default 720h)
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crewstack/crewstack-engine/pkg/auth"
)

func main() {
	subject := flag.String("subject", "", "Token subject, typically the client name")
	name := flag.String("name", "", "Optional display name embedded in the token")
	ttl := flag.Duration("ttl", 720*time.Hour, "Token lifetime")
	flag.Parse()

	secret := os.Getenv("API_AUTH_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "API_AUTH_SECRET is not set")
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintf(os.Stderr, "Usage: API_AUTH_SECRET=... %s -subject <client> [-name <display>] [-ttl 720h]\n", os.Args[0])
		os.Exit(1)
	}

	now := time.Now()
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *subject,
			Issuer:    "crewstack-engine",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
		Name: *name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(signed)
}
