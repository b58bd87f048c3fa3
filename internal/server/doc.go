// Package server provides the MCP server context and HTTP transports for
// the OneDrive MCP server.
//
// # Key Components
//
// ServerContext holds the shared Graph drive service and instrumentation
// wiring that tool handlers reach through.
//
// HTTPServer serves the MCP protocol over streamable HTTP. The /mcp endpoint
// is always guarded by the auth middleware (API key or Azure AD bearer
// tokens); health probe endpoints are registered outside it.
//
// HealthChecker exposes /healthz, /readyz and /healthz/detailed for
// Kubernetes probes.
//
// MetricsServer serves Prometheus metrics on a dedicated port, isolating
// operational metrics from application traffic.
package server
