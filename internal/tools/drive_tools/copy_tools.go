package drive_tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/graph"
	"github.com/ariavn-byte/onedrive/internal/instrumentation"
	"github.com/ariavn-byte/onedrive/internal/server"
	"github.com/ariavn-byte/onedrive/internal/tools/common"
)

// copyStatusResponse is the tool output shape for copy operations.
type copyStatusResponse struct {
	Status          string  `json:"status"`
	PercentComplete float64 `json:"percentComplete"`
	MonitorURL      string  `json:"monitorUrl,omitempty"`
	ResourceID      string  `json:"resourceId,omitempty"`
	Error           string  `json:"error,omitempty"`
}

func copyResponse(op *graph.CopyOperation, includeMonitor bool) copyStatusResponse {
	resp := copyStatusResponse{
		Status:          op.Status,
		PercentComplete: op.PercentComplete,
		ResourceID:      op.ResourceID,
		Error:           op.ErrorMessage,
	}
	if includeMonitor {
		resp.MonitorURL = op.MonitorURL
	}
	return resp
}

// registerCopyTools registers tools for large items: same-drive moves of any
// size and the asynchronous cross-drive copy flow.
func registerCopyTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// Poll copy status tool (read-only: polling mutates nothing server-side)
	pollCopyTool := mcp.NewTool("poll_copy_status",
		mcp.WithDescription("Check the status of an asynchronous copy operation using its monitor URL"),
		mcp.WithString("monitor_url",
			mcp.Required(),
			mcp.Description("The monitor URL returned by copy_large_file"),
		),
	)

	s.AddTool(pollCopyTool, common.InstrumentedToolHandlerWithOperation("poll_copy_status", instrumentation.OperationCopy, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			monitorURL, ok := args["monitor_url"].(string)
			if !ok || monitorURL == "" {
				return mcp.NewToolResultError("monitor_url is required"), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			op := &graph.CopyOperation{MonitorURL: monitorURL}
			if err := svc.PollCopy(ctx, op); err != nil {
				recordCopyPoll(ctx, sc, "error")
				return mcp.NewToolResultError(fmt.Sprintf("Failed to poll copy status: %v", err)), nil
			}
			recordCopyPoll(ctx, sc, op.Status)

			return mcp.NewToolResultText(formatJSON(copyResponse(op, false))), nil
		}))

	if readOnly {
		return nil
	}

	// Move large file tool
	moveLargeFileTool := mcp.NewTool("move_large_file",
		mcp.WithDescription("Move a file of any size within a drive. Only the parent reference changes, so the move is synchronous regardless of file size."),
		mcp.WithString("item_id",
			mcp.Required(),
			mcp.Description("The item ID to move"),
		),
		mcp.WithString("new_parent_id",
			mcp.Required(),
			mcp.Description("The destination folder's item ID"),
		),
		mcp.WithString("drive_id",
			mcp.Description("Drive containing the item (default: the resolved default drive)"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(moveLargeFileTool, common.InstrumentedToolHandlerWithOperation("move_large_file", instrumentation.OperationMove, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			itemID, ok := args["item_id"].(string)
			if !ok || itemID == "" {
				return mcp.NewToolResultError("item_id is required"), nil
			}
			newParentID, ok := args["new_parent_id"].(string)
			if !ok || newParentID == "" {
				return mcp.NewToolResultError("new_parent_id is required"), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			driveID, _ := args["drive_id"].(string)
			if driveID == "" {
				driveID, err = svc.DriveID(ctx)
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to resolve drive: %v", err)), nil
				}
			}

			item, err := svc.MoveItemInDrive(ctx, driveID, itemID, newParentID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to move item: %v", err)), nil
			}

			return mcp.NewToolResultText(fmt.Sprintf("Item moved successfully:\n%s", formatItem(item))), nil
		}))

	// Copy large file tool
	copyLargeFileTool := mcp.NewTool("copy_large_file",
		mcp.WithDescription("Start an asynchronous copy of a file, possibly across drives. Returns a monitor URL for poll_copy_status."),
		mcp.WithString("item_id",
			mcp.Required(),
			mcp.Description("The item ID to copy"),
		),
		mcp.WithString("target_drive_id",
			mcp.Required(),
			mcp.Description("The destination drive ID"),
		),
		mcp.WithString("target_parent_id",
			mcp.Required(),
			mcp.Description("The destination folder's item ID"),
		),
		mcp.WithString("source_drive_id",
			mcp.Description("Drive containing the item (default: the resolved default drive)"),
		),
		mcp.WithString("new_name",
			mcp.Description("Optional name for the copy"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(copyLargeFileTool, common.InstrumentedToolHandlerWithOperation("copy_large_file", instrumentation.OperationCopy, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			op, result := startCopyFromArgs(ctx, sc, args)
			if result != nil {
				return result, nil
			}

			return mcp.NewToolResultText(formatJSON(copyResponse(op, true))), nil
		}))

	// Copy and wait tool
	copyAndWaitTool := mcp.NewTool("copy_file_and_wait",
		mcp.WithDescription("Start an asynchronous copy and poll until it finishes or the polling budget runs out. On timeout the copy may still complete; use poll_copy_status with the returned monitor URL."),
		mcp.WithString("item_id",
			mcp.Required(),
			mcp.Description("The item ID to copy"),
		),
		mcp.WithString("target_drive_id",
			mcp.Required(),
			mcp.Description("The destination drive ID"),
		),
		mcp.WithString("target_parent_id",
			mcp.Required(),
			mcp.Description("The destination folder's item ID"),
		),
		mcp.WithString("source_drive_id",
			mcp.Description("Drive containing the item (default: the resolved default drive)"),
		),
		mcp.WithString("new_name",
			mcp.Description("Optional name for the copy"),
		),
		mcp.WithNumber("max_polls",
			mcp.Description("Maximum number of status polls before giving up (default: 30)"),
		),
		mcp.WithNumber("poll_interval_seconds",
			mcp.Description("Initial seconds between polls; grows with backoff (default: 1)"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(copyAndWaitTool, common.InstrumentedToolHandlerWithOperation("copy_file_and_wait", instrumentation.OperationCopy, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			op, result := startCopyFromArgs(ctx, sc, args)
			if result != nil {
				return result, nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			policy := sc.CopyPollPolicy()
			if maxPolls, ok := args["max_polls"].(float64); ok && maxPolls > 0 {
				policy.MaxAttempts = int(maxPolls)
			}
			if interval, ok := args["poll_interval_seconds"].(float64); ok && interval > 0 {
				policy.BaseDelay = time.Duration(interval * float64(time.Second))
			}

			if err := svc.WaitForCopy(ctx, op, policy); err != nil {
				if errors.Is(err, graph.ErrCopyTimeout) {
					// The copy keeps running server-side; hand the caller the
					// monitor URL so polling can resume.
					recordCopyPoll(ctx, sc, graph.CopyStatusTimedOut)
					resp := copyResponse(op, true)
					resp.Status = graph.CopyStatusTimedOut
					return mcp.NewToolResultText(formatJSON(resp)), nil
				}
				return mcp.NewToolResultError(fmt.Sprintf("Failed to wait for copy: %v", err)), nil
			}
			recordCopyPoll(ctx, sc, op.Status)

			return mcp.NewToolResultText(formatJSON(copyResponse(op, true))), nil
		}))

	return nil
}

func recordCopyPoll(ctx context.Context, sc *server.ServerContext, status string) {
	if m := sc.Metrics(); m != nil {
		m.RecordCopyPoll(ctx, status)
	}
}

// startCopyFromArgs validates copy arguments and starts the async copy. On
// failure the second return value carries the error tool result.
func startCopyFromArgs(ctx context.Context, sc *server.ServerContext, args map[string]interface{}) (*graph.CopyOperation, *mcp.CallToolResult) {
	itemID, ok := args["item_id"].(string)
	if !ok || itemID == "" {
		return nil, mcp.NewToolResultError("item_id is required")
	}
	targetDriveID, ok := args["target_drive_id"].(string)
	if !ok || targetDriveID == "" {
		return nil, mcp.NewToolResultError("target_drive_id is required")
	}
	targetParentID, ok := args["target_parent_id"].(string)
	if !ok || targetParentID == "" {
		return nil, mcp.NewToolResultError("target_parent_id is required")
	}

	svc, err := driveFor(sc, args)
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}

	sourceDriveID, _ := args["source_drive_id"].(string)
	if sourceDriveID == "" {
		sourceDriveID, err = svc.DriveID(ctx)
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to resolve drive: %v", err))
		}
	}

	newName, _ := args["new_name"].(string)

	op, err := svc.StartCopy(ctx, sourceDriveID, itemID, targetDriveID, targetParentID, newName)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to start copy: %v", err))
	}
	return op, nil
}
