package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/folio-cms/folio/internal/model"
	"github.com/folio-cms/folio/internal/service"
)

type contextKeyAuth string

const (
	// AuthPrincipalKey is the context key for the authenticated principal.
	AuthPrincipalKey contextKeyAuth = "auth_principal"
)

// TokenValidator is the part of the auth service the middleware needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*service.Principal, error)
}

var errNoCredentials = errors.New("not authenticated")

// Authenticate returns an HTTP middleware that requires a valid admin bearer
// token in the Authorization header. On success the principal is attached
// to the request context. On failure a 401 JSON error response is returned.
func Authenticate(auth TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := principalFromRequest(r, auth)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, authMessage(err))
				return
			}
			ctx := context.WithValue(r.Context(), AuthPrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the principal when the request carries a valid
// token and lets every request through.
func OptionalAuth(auth TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, err := principalFromRequest(r, auth); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), AuthPrincipalKey, p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., unauthenticated request).
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *service.Principal) context.Context {
	return context.WithValue(ctx, AuthPrincipalKey, p)
}

type authSchemeError struct{}

func (authSchemeError) Error() string { return "invalid authentication scheme" }

func principalFromRequest(r *http.Request, auth TokenValidator) (*service.Principal, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, authSchemeError{}
	}
	return auth.ValidateToken(r.Context(), strings.TrimSpace(token))
}

func authMessage(err error) string {
	var schemeErr authSchemeError
	switch {
	case errors.Is(err, errNoCredentials):
		return "Not authenticated"
	case errors.As(err, &schemeErr):
		return "Invalid authentication scheme"
	case errors.Is(err, service.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, service.ErrTokenRevoked):
		return "Token has been revoked"
	default:
		return "Invalid or expired token"
	}
}

// writeAuthError writes the standard error envelope. It is built here
// rather than in the handler package to avoid an import cycle.
func writeAuthError(w http.ResponseWriter, status int, message string) {
	typ := model.ErrorUnauthorized
	switch status {
	case http.StatusForbidden:
		typ = model.ErrorForbidden
	case http.StatusTooManyRequests:
		typ = model.ErrorTooManyRequests
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   model.ErrorDetail{Code: status, Type: typ},
	})
}
