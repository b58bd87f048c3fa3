package drive_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/instrumentation"
	"github.com/ariavn-byte/onedrive/internal/server"
	"github.com/ariavn-byte/onedrive/internal/tools/common"
)

// registerFolderTools registers folder and item organization tools
func registerFolderTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// All organization tools mutate the drive; nothing to register read-only.
	if readOnly {
		return nil
	}

	// Create folder tool
	createFolderTool := mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder. Name collisions are resolved by renaming the new folder."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The folder name"),
		),
		mcp.WithString("parent_path",
			mcp.Description("Parent folder path relative to the drive root (default: root)"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(createFolderTool, common.InstrumentedToolHandlerWithOperation("create_folder", instrumentation.OperationCreate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			name, ok := args["name"].(string)
			if !ok || name == "" {
				return mcp.NewToolResultError("name is required"), nil
			}
			if strings.ContainsAny(name, `/\`) {
				return mcp.NewToolResultError("name must not contain path separators"), nil
			}

			parentPath, _ := args["parent_path"].(string)

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			item, err := svc.CreateFolder(ctx, name, parentPath)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to create folder: %v", err)), nil
			}

			return mcp.NewToolResultText(fmt.Sprintf("Folder created successfully:\n%s", formatItem(item))), nil
		}))

	// Move file tool
	moveFileTool := mcp.NewTool("move_file",
		mcp.WithDescription("Move a file or folder to another parent folder"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The item ID to move"),
		),
		mcp.WithString("new_parent_id",
			mcp.Required(),
			mcp.Description("The destination folder's item ID"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(moveFileTool, common.InstrumentedToolHandlerWithOperation("move_file", instrumentation.OperationMove, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			fileID, ok := args["file_id"].(string)
			if !ok || fileID == "" {
				return mcp.NewToolResultError("file_id is required"), nil
			}
			newParentID, ok := args["new_parent_id"].(string)
			if !ok || newParentID == "" {
				return mcp.NewToolResultError("new_parent_id is required"), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			item, err := svc.MoveItem(ctx, fileID, newParentID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to move item: %v", err)), nil
			}

			return mcp.NewToolResultText(fmt.Sprintf("Item moved successfully:\n%s", formatItem(item))), nil
		}))

	// Rename file tool
	renameFileTool := mcp.NewTool("rename_file",
		mcp.WithDescription("Rename a file or folder in place"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The item ID to rename"),
		),
		mcp.WithString("new_name",
			mcp.Required(),
			mcp.Description("The new item name"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(renameFileTool, common.InstrumentedToolHandlerWithOperation("rename_file", instrumentation.OperationUpdate, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			fileID, ok := args["file_id"].(string)
			if !ok || fileID == "" {
				return mcp.NewToolResultError("file_id is required"), nil
			}
			newName, ok := args["new_name"].(string)
			if !ok || newName == "" {
				return mcp.NewToolResultError("new_name is required"), nil
			}
			if strings.ContainsAny(newName, `/\`) {
				return mcp.NewToolResultError("new_name must not contain path separators"), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			item, err := svc.RenameItem(ctx, fileID, newName)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to rename item: %v", err)), nil
			}

			return mcp.NewToolResultText(fmt.Sprintf("Item renamed successfully:\n%s", formatItem(item))), nil
		}))

	return nil
}
