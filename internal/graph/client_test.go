package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type staticTokens struct {
	token string
	err   error
	calls atomic.Int32
}

func (s *staticTokens) Token(ctx context.Context) (string, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *staticTokens) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := &staticTokens{token: "test-token"}
	c := NewClient(tokens, nil,
		WithBaseURL(srv.URL),
		WithRetryPolicy(BackoffPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: time.Millisecond}))
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c, tokens
}

func TestCallAttachesBearerToken(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	})

	if _, err := c.Call(context.Background(), http.MethodGet, "/me", nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer test-token")
	}
}

func TestCallRetriesThrottling(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"activityLimitReached","message":"throttled"}}`))
			return
		}
		w.Write([]byte(`{"id":"item1"}`))
	})

	resp, err := c.Call(context.Background(), http.MethodGet, "/items/x", nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestCallHonorsRetryAfter(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	})

	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	if _, err := c.Call(context.Background(), http.MethodGet, "/x", nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(slept) != 1 || slept[0] != 7*time.Second {
		t.Errorf("slept %v, want [7s]", slept)
	}
}

func TestCallExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":"serviceNotAvailable","message":"down"}}`))
	})

	_, err := c.Call(context.Background(), http.MethodGet, "/x", nil)
	if err == nil {
		t.Fatal("Call() succeeded, want error after exhausted retries")
	}
	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("error %v does not wrap *Error", err)
	}
	if ge.Code != CodeServiceNotAvailable {
		t.Errorf("Code = %q, want %q", ge.Code, CodeServiceNotAvailable)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestCallTerminalErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"itemNotFound","message":"gone"}}`))
	})

	_, err := c.Call(context.Background(), http.MethodGet, "/items/missing", nil)
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false, want true", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1 (4xx must not retry)", got)
	}
}

func TestCallTokenFailureShortCircuits(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	tokens := &staticTokens{err: errors.New("token endpoint down")}
	c := NewClient(tokens, nil, WithBaseURL(srv.URL))

	if _, err := c.Call(context.Background(), http.MethodGet, "/x", nil); err == nil {
		t.Fatal("Call() succeeded without a token")
	}
	if got := hits.Load(); got != 0 {
		t.Errorf("server hit %d times, want 0", got)
	}
}

func TestUploadNotRetried(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Upload(context.Background(), "/root:/a.txt:/content", "text/plain", nil)
	if err == nil {
		t.Fatal("Upload() succeeded, want error")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1 (uploads must not retry)", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "seconds", value: "30", want: 30 * time.Second},
		{name: "absent", value: "", want: 0},
		{name: "http date ignored", value: "Wed, 21 Oct 2026 07:28:00 GMT", want: 0},
		{name: "negative ignored", value: "-5", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			if got := parseRetryAfter(h); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{
			name:     "graph error body",
			status:   404,
			body:     `{"error":{"code":"itemNotFound","message":"The resource could not be found."}}`,
			wantCode: CodeItemNotFound,
		},
		{
			name:     "opaque body",
			status:   502,
			body:     "bad gateway",
			wantCode: CodeGeneralException,
		},
		{
			name:     "empty body",
			status:   500,
			body:     "",
			wantCode: CodeGeneralException,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ge := parseError(tt.status, []byte(tt.body))
			if ge.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", ge.Code, tt.wantCode)
			}
			if ge.HTTPStatus != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", ge.HTTPStatus, tt.status)
			}
		})
	}
}

func TestBackoffPolicyDelay(t *testing.T) {
	p := BackoffPolicy{BaseDelay: time.Second, Multiplier: 2, MaxDelay: 5 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 5 * time.Second},
		{attempt: 10, want: 5 * time.Second},
		{attempt: -1, want: time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
