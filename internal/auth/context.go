package auth

import (
	"context"
	"errors"
)

// Scheme names the credential mechanism that admitted a request.
type Scheme string

const (
	// SchemeAPIKey is shared-key authentication via the X-API-Key header.
	SchemeAPIKey Scheme = "api-key"

	// SchemeBearer is Azure AD bearer-token authentication.
	SchemeBearer Scheme = "oauth-bearer"
)

// Sentinel errors returned by authenticators. Middleware maps all of them to
// 401 without leaking which check failed to the client.
var (
	ErrMissingCredentials = errors.New("no credentials presented")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidToken       = errors.New("invalid bearer token")
	ErrAudienceMismatch   = errors.New("token audience mismatch")
)

// Identity describes an authenticated caller.
type Identity struct {
	// Scheme is the mechanism that admitted the request.
	Scheme Scheme

	// Subject identifies the caller: the token subject claim for bearer
	// auth, or a fixed marker for API-key auth.
	Subject string
}

type contextKey struct{}

// NewContext returns ctx carrying the authenticated identity.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the authenticated identity, if any.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}
