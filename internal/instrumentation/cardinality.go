package instrumentation

import (
	"github.com/ariavn-byte/onedrive/internal/logging"
)

// Cardinality management helpers for metrics.
// These functions reduce high-cardinality label values to prevent metrics explosion.
//
// # Warning
//
// High cardinality in metrics can cause:
// - Increased memory usage in Prometheus/metrics backends
// - Slower query performance
// - Higher storage costs
//
// Always use these helpers when recording metrics with caller identifiers.

// AnonymizeSubject returns a hashed representation of a caller identity.
// This keeps cardinality bounded by the number of distinct callers while
// never exposing the raw subject in metrics or general logs.
//
// Example:
//
//	AnonymizeSubject("f3b2...")  // "sub:1a2b3c4d5e6f7a8b"
//	AnonymizeSubject("")         // "unknown"
func AnonymizeSubject(subject string) string {
	if subject == "" {
		return "unknown"
	}
	return logging.AnonymizeSubject(subject)
}

// Common operation types for Graph API metrics.
// Status and scheme constants are defined in config.go.
const (
	OperationList     = "list"
	OperationGet      = "get"
	OperationCreate   = "create"
	OperationUpdate   = "update"
	OperationDelete   = "delete"
	OperationSearch   = "search"
	OperationMove     = "move"
	OperationCopy     = "copy"
	OperationUpload   = "upload"
	OperationDownload = "download"
)
