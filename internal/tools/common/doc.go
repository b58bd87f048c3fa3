// Package common provides shared utilities for MCP tool implementations.
// It wraps tool handlers with metrics recording and audit logging so every
// tool package instruments invocations the same way.
package common
