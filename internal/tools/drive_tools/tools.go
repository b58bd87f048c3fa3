package drive_tools

import (
	"encoding/json"
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/graph"
	"github.com/ariavn-byte/onedrive/internal/server"
)

// driveFor returns the drive service for a request, honoring an optional
// user_id argument that pins another user's default drive.
func driveFor(sc *server.ServerContext, args map[string]interface{}) (*graph.DriveService, error) {
	svc := sc.Drive()
	if svc == nil {
		return nil, fmt.Errorf("drive service not configured")
	}
	if userID, ok := args["user_id"].(string); ok && userID != "" {
		svc = svc.WithUser(userID)
	}
	return svc, nil
}

// formatItem renders a drive item as indented JSON for tool output.
func formatItem(item *graph.DriveItem) string {
	jsonBytes, _ := json.MarshalIndent(item, "", "  ")
	return string(jsonBytes)
}

// formatItems renders an item listing as indented JSON for tool output.
func formatItems(items []graph.DriveItem) string {
	response := map[string]interface{}{
		"count": len(items),
		"items": items,
	}
	jsonBytes, _ := json.MarshalIndent(response, "", "  ")
	return string(jsonBytes)
}

// formatJSON renders any value as indented JSON for tool output.
func formatJSON(v interface{}) string {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ")
	return string(jsonBytes)
}

// limitFromArgs reads an optional numeric limit argument. MCP clients send
// numbers as float64.
func limitFromArgs(args map[string]interface{}) int {
	if limit, ok := args["limit"].(float64); ok && limit > 0 {
		return int(limit)
	}
	return 0
}

// RegisterDriveTools registers all OneDrive tools with the MCP server.
// Write tools are skipped in read-only mode.
func RegisterDriveTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if err := registerFileTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register file tools: %w", err)
	}

	if err := registerFolderTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register folder tools: %w", err)
	}

	if err := registerBulkTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register bulk tools: %w", err)
	}

	if err := registerCopyTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register copy tools: %w", err)
	}

	return nil
}
