package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// keyProvider resolves signing keys by key ID. Satisfied by *KeySet and
// replaceable in tests.
type keyProvider interface {
	Key(ctx context.Context, kid string) (any, error)
}

// keySetAdapter narrows *KeySet's RSA-typed return to the keyProvider shape.
type keySetAdapter struct{ ks *KeySet }

func (a keySetAdapter) Key(ctx context.Context, kid string) (any, error) {
	return a.ks.Key(ctx, kid)
}

// BearerConfig configures bearer-token verification.
type BearerConfig struct {
	// TenantID is the Azure AD tenant whose tokens are accepted.
	TenantID string

	// Audience is the expected aud claim, typically the app's client ID.
	Audience string

	// AllowAudienceMismatch downgrades an audience mismatch from rejection
	// to a logged warning. Off by default; intended only for transitional
	// rollouts where clients still request tokens for an old audience.
	AllowAudienceMismatch bool
}

// BearerAuthenticator verifies Azure AD access tokens offline against the
// tenant's published signing keys.
type BearerAuthenticator struct {
	cfg    BearerConfig
	keys   keyProvider
	logger *slog.Logger
}

// NewBearerAuthenticator builds a bearer authenticator for the tenant in cfg.
func NewBearerAuthenticator(cfg BearerConfig, logger *slog.Logger) *BearerAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &BearerAuthenticator{
		cfg:    cfg,
		keys:   keySetAdapter{ks: NewKeySet(TenantJWKSURL(cfg.TenantID), logger)},
		logger: logger,
	}
}

// acceptedIssuers returns the issuer values Azure AD stamps on tokens for
// the tenant. v2.0 tokens use the login.microsoftonline.com form, v1.0
// application tokens the sts.windows.net form.
func (b *BearerAuthenticator) acceptedIssuers() []string {
	return []string{
		fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", b.cfg.TenantID),
		fmt.Sprintf("https://sts.windows.net/%s/", b.cfg.TenantID),
	}
}

// Authenticate verifies the Authorization bearer token: RS256 signature
// against the tenant key set, expiry, issuer, and audience. Audience
// mismatches reject unless AllowAudienceMismatch is set, in which case they
// are admitted with a warning log.
func (b *BearerAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	raw := bearerToken(r)
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	ctx := r.Context()
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no key ID")
		}
		return b.keys.Key(ctx, kid)
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	issuer, _ := claims.GetIssuer()
	if !containsString(b.acceptedIssuers(), issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, issuer)
	}

	if err := b.checkAudience(claims); err != nil {
		return nil, err
	}

	subject, _ := claims.GetSubject()
	return &Identity{Scheme: SchemeBearer, Subject: subject}, nil
}

func (b *BearerAuthenticator) checkAudience(claims jwt.MapClaims) error {
	auds, err := claims.GetAudience()
	if err != nil || len(auds) == 0 {
		return fmt.Errorf("%w: token has no audience", ErrInvalidToken)
	}
	if containsString(auds, b.cfg.Audience) {
		return nil
	}
	if b.cfg.AllowAudienceMismatch {
		b.logger.Warn("admitting token with mismatched audience",
			slog.Any("audience", []string(auds)),
			slog.String("expected", b.cfg.Audience))
		return nil
	}
	return fmt.Errorf("%w: got %v, want %q", ErrAudienceMismatch, []string(auds), b.cfg.Audience)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
