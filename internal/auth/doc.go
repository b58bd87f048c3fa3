// Package auth guards the inbound MCP endpoint.
//
// Two credential schemes are supported and selected per request by the
// headers the client sends: a shared API key in X-API-Key, compared in
// constant time, and an Azure AD bearer token in Authorization, verified
// against the tenant's published signing keys. Health endpoints are wired
// outside the middleware and never require credentials.
package auth
