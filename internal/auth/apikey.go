package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the header carrying the shared key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuthenticator admits requests carrying the configured shared key.
type APIKeyAuthenticator struct {
	key []byte
}

// NewAPIKeyAuthenticator builds an authenticator for the given key. An empty
// key disables the scheme entirely rather than admitting everyone.
func NewAPIKeyAuthenticator(key string) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{key: []byte(key)}
}

// Enabled reports whether a key is configured.
func (a *APIKeyAuthenticator) Enabled() bool { return len(a.key) > 0 }

// Authenticate checks the X-API-Key header in constant time.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return nil, ErrMissingCredentials
	}
	if !a.Enabled() {
		return nil, ErrInvalidAPIKey
	}
	if subtle.ConstantTimeCompare(a.key, []byte(presented)) != 1 {
		return nil, ErrInvalidAPIKey
	}
	return &Identity{Scheme: SchemeAPIKey, Subject: "api-key"}, nil
}
