package drive_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/instrumentation"
	"github.com/ariavn-byte/onedrive/internal/server"
	"github.com/ariavn-byte/onedrive/internal/tools/batch"
	"github.com/ariavn-byte/onedrive/internal/tools/common"
)

// registerBulkTools registers multi-item tools. Each item gets its own
// success or error entry; partial failure is a normal result, not an error.
func registerBulkTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if readOnly {
		return nil
	}

	// Bulk move tool
	bulkMoveTool := mcp.NewTool("bulk_move",
		mcp.WithDescription("Move multiple files to the same destination folder. Items are processed independently; failures do not abort the batch."),
		mcp.WithString("file_ids",
			mcp.Required(),
			mcp.Description("Item ID (string) or array of item IDs to move"),
		),
		mcp.WithString("new_parent_id",
			mcp.Required(),
			mcp.Description("The destination folder's item ID"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(bulkMoveTool, common.InstrumentedToolHandlerWithOperation("bulk_move", instrumentation.OperationMove, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			fileIDs, err := batch.ParseStringOrArray(args["file_ids"], "file_ids")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			newParentID, ok := args["new_parent_id"].(string)
			if !ok || newParentID == "" {
				return mcp.NewToolResultError("new_parent_id is required"), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			results := batch.ProcessBatch(ctx, fileIDs, func(ctx context.Context, fileID string) (string, error) {
				item, err := svc.MoveItem(ctx, fileID, newParentID)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Item %s moved to %s", item.ID, newParentID), nil
			})

			return mcp.NewToolResultText(batch.FormatResults(results)), nil
		}))

	// Bulk delete tool
	bulkDeleteTool := mcp.NewTool("bulk_delete",
		mcp.WithDescription("Delete multiple files. Items are processed independently; failures do not abort the batch."),
		mcp.WithString("file_ids",
			mcp.Required(),
			mcp.Description("Item ID (string) or array of item IDs to delete"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(bulkDeleteTool, common.InstrumentedToolHandlerWithOperation("bulk_delete", instrumentation.OperationDelete, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			fileIDs, err := batch.ParseStringOrArray(args["file_ids"], "file_ids")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			results := batch.ProcessBatch(ctx, fileIDs, func(ctx context.Context, fileID string) (string, error) {
				if err := svc.DeleteItem(ctx, fileID); err != nil {
					return "", err
				}
				return fmt.Sprintf("Item %s deleted successfully", fileID), nil
			})

			return mcp.NewToolResultText(batch.FormatResults(results)), nil
		}))

	return nil
}
