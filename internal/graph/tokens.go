package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"

	"github.com/ariavn-byte/onedrive/internal/logging"
)

// graphScope is the client-credentials scope covering all application
// permissions granted to the app registration.
const graphScope = "https://graph.microsoft.com/.default"

// expiryMargin is subtracted from the token lifetime so a token is refreshed
// before Graph would actually reject it mid-request.
const expiryMargin = 2 * time.Minute

// Credentials identifies the Azure AD app registration used for the
// client-credentials flow.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Validate reports the first missing field, if any.
func (c Credentials) Validate() error {
	switch {
	case c.TenantID == "":
		return fmt.Errorf("tenant ID is required")
	case c.ClientID == "":
		return fmt.Errorf("client ID is required")
	case c.ClientSecret == "":
		return fmt.Errorf("client secret is required")
	}
	return nil
}

// TokenSource caches an application access token and refreshes it on demand.
// The mutex is held for the full duration of a refresh, so concurrent callers
// that arrive while a refresh is in flight block and then reuse its result
// instead of issuing their own token requests.
type TokenSource struct {
	mu     sync.Mutex
	token  string
	expiry time.Time

	// fetch performs the actual token request. Overridable in tests.
	fetch func(ctx context.Context) (*oauth2.Token, error)

	// now is the clock. Overridable in tests.
	now func() time.Time

	// onRefresh is invoked after each refresh attempt, for metrics.
	onRefresh func(success bool)

	logger *slog.Logger
}

// SetRefreshHook registers a callback invoked after every refresh attempt.
// Call before the source is shared across goroutines.
func (ts *TokenSource) SetRefreshHook(hook func(success bool)) {
	ts.onRefresh = hook
}

// NewTokenSource builds a TokenSource for the given app registration.
func NewTokenSource(creds Credentials, logger *slog.Logger) (*TokenSource, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     microsoft.AzureADEndpoint(creds.TenantID).TokenURL,
		Scopes:       []string{graphScope},
	}

	return &TokenSource{
		fetch: func(ctx context.Context) (*oauth2.Token, error) {
			return cfg.Token(ctx)
		},
		now:    time.Now,
		logger: logger,
	}, nil
}

// Token returns a valid access token, refreshing it when the cached one is
// missing or within the expiry margin.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" && ts.now().Add(expiryMargin).Before(ts.expiry) {
		return ts.token, nil
	}

	tok, err := ts.fetch(ctx)
	if err != nil {
		// Drop the stale token so no caller can pick it up after a failed
		// refresh.
		ts.token = ""
		ts.expiry = time.Time{}
		if ts.onRefresh != nil {
			ts.onRefresh(false)
		}
		return "", fmt.Errorf("failed to acquire access token: %w", err)
	}
	if tok.AccessToken == "" {
		if ts.onRefresh != nil {
			ts.onRefresh(false)
		}
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}

	ts.token = tok.AccessToken
	ts.expiry = tok.Expiry
	if ts.expiry.IsZero() {
		// Azure AD always reports expiry; guard against a broken endpoint
		// by treating the token as short-lived.
		ts.expiry = ts.now().Add(5 * time.Minute)
	}

	if ts.onRefresh != nil {
		ts.onRefresh(true)
	}
	ts.logger.Debug("acquired Graph access token",
		slog.String("token", logging.SanitizeToken(ts.token)),
		slog.Time("expiry", ts.expiry))

	return ts.token, nil
}

// Invalidate drops the cached token so the next Token call refreshes.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
	ts.expiry = time.Time{}
}
