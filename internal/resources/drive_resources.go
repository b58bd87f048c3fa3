package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/server"
)

// RegisterDriveResources registers read-only drive resources.
func RegisterDriveResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	quotaResource := mcp.NewResource(
		"onedrive://quota",
		"Drive Storage Quota",
		mcp.WithResourceDescription("Storage usage summary of the configured OneDrive: total, used, remaining and deleted bytes"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(quotaResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleQuota(ctx, request, sc)
	})

	return nil
}

// handleQuota returns the storage quota of the default drive.
func handleQuota(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	svc := sc.Drive()
	if svc == nil {
		return nil, fmt.Errorf("drive service not configured")
	}

	drive, err := svc.GetQuota(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get drive quota: %w", err)
	}

	quotaData := map[string]interface{}{
		"driveId":   drive.ID,
		"driveType": drive.DriveType,
		"name":      drive.Name,
	}
	if drive.Quota != nil {
		quotaData["total"] = drive.Quota.Total
		quotaData["used"] = drive.Quota.Used
		quotaData["remaining"] = drive.Quota.Remaining
		quotaData["deleted"] = drive.Quota.Deleted
		quotaData["state"] = drive.Quota.State
	}

	jsonData, err := json.MarshalIndent(quotaData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quota data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
