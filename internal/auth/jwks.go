package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// minKeyRefreshInterval rate-limits key set refetches triggered by unknown
// key IDs, so a flood of bad tokens cannot hammer the discovery endpoint.
const minKeyRefreshInterval = 5 * time.Minute

// KeySet caches the RSA signing keys published at a JWKS discovery endpoint,
// indexed by key ID. An unknown kid triggers a refetch, rate-limited to
// tolerate Azure AD key rollover without refetching on every bad token.
type KeySet struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time

	now func() time.Time
}

// NewKeySet builds a key cache for the given JWKS URL.
func NewKeySet(url string, logger *slog.Logger) *KeySet {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeySet{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		keys:       map[string]*rsa.PublicKey{},
		now:        time.Now,
	}
}

// TenantJWKSURL returns the Azure AD v2.0 discovery keys endpoint for a tenant.
func TenantJWKSURL(tenantID string) string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", tenantID)
}

// Key returns the public key for the given key ID, refreshing the cached set
// when the kid is unknown and the refresh rate limit allows.
func (ks *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if key, ok := ks.keys[kid]; ok {
		return key, nil
	}

	if ks.now().Sub(ks.lastRefresh) < minKeyRefreshInterval {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	if err := ks.refreshLocked(ctx); err != nil {
		return nil, err
	}

	key, ok := ks.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (ks *KeySet) refreshLocked(ctx context.Context) error {
	ks.lastRefresh = ks.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create JWKS request: %w", err)
	}

	resp, err := ks.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch signing keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read JWKS response: %w", err)
	}

	var doc jwksDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("failed to decode JWKS document: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			ks.logger.Warn("skipping unparseable signing key",
				slog.String("kid", k.Kid),
				slog.Any("error", err))
			continue
		}
		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return fmt.Errorf("JWKS document contained no usable RSA signing keys")
	}

	ks.keys = keys
	ks.logger.Debug("refreshed signing key set", slog.Int("keys", len(keys)))
	return nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}
	if len(nb) == 0 || len(eb) == 0 {
		return nil, fmt.Errorf("empty key material")
	}

	exp := 0
	for _, b := range eb {
		exp = exp<<8 | int(b)
	}
	if exp <= 1 {
		return nil, fmt.Errorf("invalid public exponent %d", exp)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: exp,
	}, nil
}
