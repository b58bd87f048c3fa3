// Package resources provides MCP resources for exposing drive data.
// Resources are read-only data sources that MCP clients can fetch, such as
// the drive's storage quota.
package resources
