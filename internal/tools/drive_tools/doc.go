// Package drive_tools implements the OneDrive MCP tool surface.
//
// Tools fall into four groups:
//   - File tools: list, search, metadata, download, upload, thumbnails, quota
//   - Folder tools: create folders, move and rename items
//   - Bulk tools: multi-item move and delete with per-item results
//   - Copy tools: synchronous large moves and the asynchronous copy flow
//
// Handlers validate their arguments before any Graph call and report
// validation and remote failures as tool error results rather than Go errors,
// so MCP clients can distinguish bad input from remote rejection. Write tools
// are not registered when the server runs in read-only mode.
package drive_tools
