package graph

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestTokenSource(fetch func(ctx context.Context) (*oauth2.Token, error)) *TokenSource {
	return &TokenSource{
		fetch:  fetch,
		now:    time.Now,
		logger: slog.Default(),
	}
}

func TestTokenSourceCachesUntilMargin(t *testing.T) {
	var calls int
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base

	ts := newTestTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		calls++
		return &oauth2.Token{
			AccessToken: "tok",
			Expiry:      now.Add(time.Hour),
		}, nil
	})
	ts.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		tok, err := ts.Token(context.Background())
		if err != nil {
			t.Fatalf("Token() error = %v", err)
		}
		if tok != "tok" {
			t.Fatalf("Token() = %q, want %q", tok, "tok")
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}

	// Advance to within the expiry margin; the next call must refresh.
	now = base.Add(time.Hour - expiryMargin + time.Second)
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times after margin, want 2", calls)
	}
}

func TestTokenSourceDeduplicatesConcurrentRefreshes(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	ts := newTestTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		calls.Add(1)
		<-release
		return &oauth2.Token{
			AccessToken: "tok",
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	})

	const workers = 10
	var wg sync.WaitGroup
	tokens := make([]string, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = ts.Token(context.Background())
		}(i)
	}

	// Let the goroutines pile up on the mutex, then release the fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: Token() error = %v", i, errs[i])
		}
		if tokens[i] != "tok" {
			t.Fatalf("worker %d: Token() = %q", i, tokens[i])
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch called %d times, want 1", got)
	}
}

func TestTokenSourceEmptyTokenRejected(t *testing.T) {
	ts := newTestTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		return &oauth2.Token{}, nil
	})
	if _, err := ts.Token(context.Background()); err == nil {
		t.Error("Token() accepted an empty access token")
	}
}

func TestTokenSourceInvalidate(t *testing.T) {
	var calls int
	ts := newTestTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		calls++
		return &oauth2.Token{
			AccessToken: "tok",
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	})

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	ts.Invalidate()
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

func TestTokenSourceDiscardsStaleTokenOnFailedRefresh(t *testing.T) {
	var fail bool
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base

	ts := newTestTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		if fail {
			return nil, context.DeadlineExceeded
		}
		return &oauth2.Token{
			AccessToken: "tok",
			Expiry:      now.Add(time.Hour),
		}, nil
	})
	ts.now = func() time.Time { return now }

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	// Expire the cached token, then make the refresh fail.
	now = base.Add(2 * time.Hour)
	fail = true
	if _, err := ts.Token(context.Background()); err == nil {
		t.Fatal("Token() succeeded with a failing refresh")
	}
	if ts.token != "" {
		t.Error("stale token retained after failed refresh")
	}

	// A recovered endpoint serves subsequent callers again.
	fail = false
	tok, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error after recovery = %v", err)
	}
	if tok != "tok" {
		t.Errorf("Token() = %q after recovery, want %q", tok, "tok")
	}
}

func TestTokenSourceNeverLogsRawToken(t *testing.T) {
	const secret = "eyJ-very-secret-access-token-value"

	ts := newTestTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		return &oauth2.Token{
			AccessToken: secret,
			Expiry:      time.Now().Add(time.Hour),
		}, nil
	})

	var buf bytes.Buffer
	ts.logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}

	logged := buf.String()
	if strings.Contains(logged, secret) {
		t.Errorf("refresh log contains the raw access token:\n%s", logged)
	}
	if !strings.Contains(logged, "[token:") {
		t.Errorf("refresh log missing the masked token attribute:\n%s", logged)
	}
}

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{
			name:  "complete",
			creds: Credentials{TenantID: "t", ClientID: "c", ClientSecret: "s"},
		},
		{
			name:    "missing tenant",
			creds:   Credentials{ClientID: "c", ClientSecret: "s"},
			wantErr: true,
		},
		{
			name:    "missing client ID",
			creds:   Credentials{TenantID: "t", ClientSecret: "s"},
			wantErr: true,
		},
		{
			name:    "missing secret",
			creds:   Credentials{TenantID: "t", ClientID: "c"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
