// Package logging provides structured logging utilities for the OneDrive MCP server.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (caller identity anonymization)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Sanitize sensitive data before logging:
//
//	logger.Info("tool invoked",
//	    logging.SubjectHash(id.Subject))
//
// # Security Considerations
//
// This package is designed with security in mind:
//   - Caller identities are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging
