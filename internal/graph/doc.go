// Package graph is the Microsoft Graph client used by all OneDrive tools.
//
// It owns the three pieces of the outbound side of the server:
//
//   - TokenSource: acquires and caches the application-level access token
//     obtained via the client-credentials flow, deduplicating refreshes
//     across concurrent callers.
//   - Client: the single place outbound HTTP to Graph happens. It attaches
//     the current token, retries throttled requests (429/503) with
//     exponential backoff honoring Retry-After, and classifies Graph error
//     bodies into *Error values.
//   - Copy monitor: the start/poll/terminate lifecycle for Graph's
//     asynchronous large-item copy protocol, driven by an opaque monitor URL.
//
// Higher layers (MCP tool handlers) never issue HTTP requests directly;
// they call Client methods and inspect typed errors.
package graph
