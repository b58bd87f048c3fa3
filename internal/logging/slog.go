package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation   = "operation"
	KeyTool        = "tool"
	KeyDriveID     = "drive_id"
	KeySubjectHash = "subject_hash"
	KeyDuration    = "duration"
	KeyError       = "error"
	KeyScheme      = "auth_scheme"
)

// DriveID returns a slog attribute for the drive identifier.
func DriveID(id string) slog.Attr {
	return slog.String(KeyDriveID, id)
}

// Scheme returns a slog attribute for the inbound auth scheme.
func Scheme(scheme string) slog.Attr {
	return slog.String(KeyScheme, scheme)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeSubject returns a hashed representation of a caller identity for
// logging purposes. This allows correlation of log entries without exposing
// user principal names or object IDs.
func AnonymizeSubject(subject string) string {
	if subject == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(subject))
	return "sub:" + hex.EncodeToString(hash[:8])
}

// SubjectHash returns a slog attribute with the anonymized caller identity.
// This is a convenience function to reduce repetition in logging calls and
// ensure consistent attribute naming across the codebase.
//
// Usage:
//
//	logger.Info("operation completed", logging.SubjectHash(id.Subject))
func SubjectHash(subject string) slog.Attr {
	return slog.String(KeySubjectHash, AnonymizeSubject(subject))
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content,
// as even partial token prefixes (like JWT headers) can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
