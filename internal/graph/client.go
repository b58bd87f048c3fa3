package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// BaseURL is the Microsoft Graph v1.0 endpoint.
const BaseURL = "https://graph.microsoft.com/v1.0"

// tokenProvider yields a bearer token for outbound Graph requests.
type tokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Client issues authenticated requests against the Graph API. All outbound
// Graph traffic in the server goes through Call, which centralizes token
// attachment, throttling retries, and error classification.
type Client struct {
	httpClient *http.Client
	tokens     tokenProvider
	baseURL    string
	retry      BackoffPolicy
	logger     *slog.Logger

	// sleep is overridable in tests so retry schedules run instantly.
	sleep func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different Graph endpoint. Used by tests
// to target an httptest server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetryPolicy replaces the throttling retry schedule.
func WithRetryPolicy(p BackoffPolicy) ClientOption {
	return func(c *Client) { c.retry = p }
}

// NewClient builds a Graph client on top of the given token source.
func NewClient(tokens tokenProvider, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tokens:     tokens,
		baseURL:    BaseURL,
		retry:      DefaultRetryPolicy,
		logger:     logger,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Response is a decoded-enough Graph response. Body is fully read so retries
// and error classification never deal with partially consumed streams.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Call issues a Graph request. path is either a path relative to the v1.0
// base (starting with "/") or an absolute URL (used for monitor and download
// URLs). A non-nil body is JSON-encoded. Responses with status 429 or 503 are
// retried per the client's backoff policy, honoring a Retry-After header when
// present; every other non-2xx status is classified via parseError and
// returned as *Error. 2xx responses are returned to the caller, including
// 202 Accepted with its headers intact.
func (c *Client) Call(ctx context.Context, method, path string, body any) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	url := path
	if strings.HasPrefix(path, "/") {
		url = c.baseURL + path
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying throttled Graph request",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempt", attempt+1))
		}

		resp, retryAfter, err := c.do(ctx, method, url, payload)
		if err != nil {
			return nil, err
		}
		if !IsRetryableStatus(resp.StatusCode) {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp, nil
			}
			return nil, parseError(resp.StatusCode, resp.Body)
		}

		lastErr = parseError(resp.StatusCode, resp.Body)
		delay := c.retry.Delay(attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte) (*Response, time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("graph request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, parseRetryAfter(httpResp.Header), nil
}

// Upload PUTs raw content to a Graph path with the given content type. Upload
// traffic bypasses JSON encoding but shares token attachment and error
// classification with Call. Uploads are not retried: the body reader cannot
// be rewound safely for arbitrary sources.
func (c *Client) Upload(ctx context.Context, path, contentType string, content io.Reader) (*Response, error) {
	url := path
	if strings.HasPrefix(path, "/") {
		url = c.baseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, content)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, parseError(httpResp.StatusCode, body)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// getUnauthenticated issues a GET without an Authorization header. Copy
// monitor URLs are pre-authorized by Graph and reject requests carrying the
// application token.
func (c *Client) getUnauthenticated(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("monitor request failed: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read monitor response: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// parseRetryAfter reads a Retry-After header expressed in seconds. HTTP-date
// values are rare from Graph and are ignored, falling back to the backoff
// schedule.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
