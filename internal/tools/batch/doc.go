// Package batch provides common utilities for bulk drive operations.
//
// This package includes helpers for:
//   - Parsing parameters that accept both single values and arrays
//   - Formatting per-item results in a consistent structure
//   - Processing bulk operations sequentially or with bounded concurrency
//   - Handling partial failures without aborting the batch
package batch
