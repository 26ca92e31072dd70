package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Context keys for authentication
type contextKey string

const (
	// IdentityContextKey is the context key for the resolved identity
	IdentityContextKey contextKey = "identity"
)

// Middleware holds dependencies for authentication middleware
type Middleware struct {
	jwtService *JWTService
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(jwtService *JWTService) *Middleware {
	return &Middleware{jwtService: jwtService}
}

// Authenticate requires a valid bearer token and stores the resolved
// identity in the request context. Absence of a verified principal
// yields 401 uniformly.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.authenticate(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate validates the bearer token and resolves the caller identity
func (m *Middleware) authenticate(r *http.Request) (Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Identity{}, ErrInvalidToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Identity{}, ErrInvalidToken
	}

	claims, err := m.jwtService.Validate(parts[1])
	if err != nil {
		return Identity{}, err
	}

	return ResolveIdentity(claims)
}

// GetIdentity returns the authenticated identity from context, or nil.
func GetIdentity(ctx context.Context) *Identity {
	identity, ok := ctx.Value(IdentityContextKey).(Identity)
	if !ok {
		return nil
	}
	return &identity
}

// writeAuthError writes an authentication error response
func writeAuthError(w http.ResponseWriter, err error) {
	message := "Authentication required"

	switch err {
	case ErrExpiredToken:
		message = "Token has expired"
	case ErrInvalidToken:
		message = "Invalid authentication token"
	case ErrNoIdentity:
		message = "Token carries no usable identity"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   "unauthorized",
		"message": message,
	})
}
