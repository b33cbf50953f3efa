package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// AuthService defines the interface for authentication operations.
// This abstraction enables clean separation between HTTP handling
// and token validation, making both easier to test.
type AuthService interface {
	// ValidateRequest extracts and validates the bearer token from the
	// Authorization header. Returns the validated claims or an error.
	ValidateRequest(r *http.Request) (*Claims, error)

	// ValidateToken validates a raw token string and returns the claims.
	ValidateToken(tokenString string) (*Claims, error)
}

// authService implements AuthService over a shared HS256 secret.
type authService struct {
	secret []byte
	logger *zap.Logger
}

// NewAuthService creates an AuthService that verifies tokens signed
// with the given secret.
func NewAuthService(secret string, logger *zap.Logger) AuthService {
	return &authService{
		secret: []byte(secret),
		logger: logger,
	}
}

// ValidateRequest extracts and validates the bearer token on a request.
func (s *authService) ValidateRequest(r *http.Request) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.logger.Debug("No bearer token on request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, ErrMissingAuthorization
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		s.logger.Debug("Invalid Authorization header format",
			zap.String("path", r.URL.Path))
		return nil, ErrInvalidAuthFormat
	}

	claims, err := s.ValidateToken(parts[1])
	if err != nil {
		s.logger.Debug("Token validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, err
	}

	return claims, nil
}

// ValidateToken verifies the signature and standard claims of a token.
func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}

	return claims, nil
}

var _ AuthService = (*authService)(nil)
