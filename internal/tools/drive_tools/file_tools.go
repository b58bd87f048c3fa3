package drive_tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ariavn-byte/onedrive/internal/instrumentation"
	"github.com/ariavn-byte/onedrive/internal/server"
	"github.com/ariavn-byte/onedrive/internal/tools/common"
)

// registerFileTools registers single-file tools
func registerFileTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	// List files tool
	listFilesTool := mcp.NewTool("list_files",
		mcp.WithDescription("List files and folders in a OneDrive folder"),
		mcp.WithString("folder_path",
			mcp.Description("Folder path relative to the drive root (default: root)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of items to return (default: 50, max: 200)"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(listFilesTool, common.InstrumentedToolHandlerWithOperation("list_files", instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			folderPath, _ := args["folder_path"].(string)

			items, err := svc.ListChildren(ctx, folderPath, limitFromArgs(args))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to list files: %v", err)), nil
			}

			return mcp.NewToolResultText(formatItems(items)), nil
		}))

	// Search files tool
	searchFilesTool := mcp.NewTool("search_files",
		mcp.WithDescription("Search the drive for files and folders matching a query"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text matched against item names and content"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of items to return (default: 50, max: 200)"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(searchFilesTool, common.InstrumentedToolHandlerWithOperation("search_files", instrumentation.OperationSearch, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			query, ok := args["query"].(string)
			if !ok || query == "" {
				return mcp.NewToolResultError("query is required"), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			items, err := svc.SearchItems(ctx, query, limitFromArgs(args))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to search files: %v", err)), nil
			}

			return mcp.NewToolResultText(formatItems(items)), nil
		}))

	// Get file info tool
	getFileInfoTool := mcp.NewTool("get_file_info",
		mcp.WithDescription("Get metadata for a single file or folder"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The item ID"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(getFileInfoTool, common.InstrumentedToolHandlerWithOperation("get_file_info", instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			fileID, ok := args["file_id"].(string)
			if !ok || fileID == "" {
				return mcp.NewToolResultError("file_id is required"), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			item, err := svc.GetItem(ctx, fileID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get file info: %v", err)), nil
			}

			return mcp.NewToolResultText(formatItem(item)), nil
		}))

	// Download file tool
	downloadFileTool := mcp.NewTool("download_file",
		mcp.WithDescription("Download the content of a file"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The item ID to download"),
		),
		mcp.WithBoolean("as_base64",
			mcp.Description("Return content base64-encoded (default: false; forced for binary content)"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(downloadFileTool, common.InstrumentedToolHandlerWithOperation("download_file", instrumentation.OperationDownload, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			fileID, ok := args["file_id"].(string)
			if !ok || fileID == "" {
				return mcp.NewToolResultError("file_id is required"), nil
			}

			asBase64 := false
			if asB64, ok := args["as_base64"].(bool); ok {
				asBase64 = asB64
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			content, contentType, err := svc.DownloadContent(ctx, fileID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to download file: %v", err)), nil
			}

			// Binary payloads can't travel as plain text.
			if asBase64 || !utf8.Valid(content) {
				encoded := base64.StdEncoding.EncodeToString(content)
				return mcp.NewToolResultText(fmt.Sprintf("File content (base64, %s, %d bytes):\n%s", contentType, len(content), encoded)), nil
			}

			return mcp.NewToolResultText(fmt.Sprintf("File content (%s, %d bytes):\n%s", contentType, len(content), string(content))), nil
		}))

	// Get thumbnails tool
	getThumbnailsTool := mcp.NewTool("get_thumbnails",
		mcp.WithDescription("Get the thumbnail image URLs generated for a file"),
		mcp.WithString("file_id",
			mcp.Required(),
			mcp.Description("The item ID"),
		),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(getThumbnailsTool, common.InstrumentedToolHandlerWithOperation("get_thumbnails", instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			fileID, ok := args["file_id"].(string)
			if !ok || fileID == "" {
				return mcp.NewToolResultError("file_id is required"), nil
			}

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			sets, err := svc.Thumbnails(ctx, fileID)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get thumbnails: %v", err)), nil
			}

			return mcp.NewToolResultText(formatJSON(sets)), nil
		}))

	// Storage usage tool
	storageUsageTool := mcp.NewTool("get_storage_usage",
		mcp.WithDescription("Get the drive's storage quota: total, used and remaining bytes"),
		mcp.WithString("user_id",
			mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
		),
	)

	s.AddTool(storageUsageTool, common.InstrumentedToolHandlerWithOperation("get_storage_usage", instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()

			svc, err := driveFor(sc, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			drive, err := svc.GetQuota(ctx)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get storage usage: %v", err)), nil
			}

			return mcp.NewToolResultText(formatJSON(drive)), nil
		}))

	// Write tools only when not in read-only mode
	if !readOnly {
		// Upload file tool
		uploadFileTool := mcp.NewTool("upload_file",
			mcp.WithDescription("Upload a file to OneDrive, creating or replacing the item at the target path"),
			mcp.WithString("target_path",
				mcp.Required(),
				mcp.Description("Destination path relative to the drive root (e.g., 'reports/q3.pdf')"),
			),
			mcp.WithString("content",
				mcp.Required(),
				mcp.Description("The file content (base64-encoded for binary files, or plain text)"),
			),
			mcp.WithString("content_type",
				mcp.Description("The MIME type of the file (default: application/octet-stream)"),
			),
			mcp.WithBoolean("is_base64",
				mcp.Description("Whether the content is base64-encoded (default: false)"),
			),
			mcp.WithString("user_id",
				mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
			),
		)

		s.AddTool(uploadFileTool, common.InstrumentedToolHandlerWithOperation("upload_file", instrumentation.OperationUpload, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				args := request.GetArguments()

				targetPath, ok := args["target_path"].(string)
				if !ok || targetPath == "" {
					return mcp.NewToolResultError("target_path is required"), nil
				}

				contentStr, ok := args["content"].(string)
				if !ok || contentStr == "" {
					return mcp.NewToolResultError("content is required"), nil
				}

				contentType := "application/octet-stream"
				if ct, ok := args["content_type"].(string); ok && ct != "" {
					contentType = ct
				}

				payload := []byte(contentStr)
				if isB64, ok := args["is_base64"].(bool); ok && isB64 {
					decoded, err := base64.StdEncoding.DecodeString(contentStr)
					if err != nil {
						return mcp.NewToolResultError(fmt.Sprintf("Failed to decode base64 content: %v", err)), nil
					}
					payload = decoded
				}

				svc, err := driveFor(sc, args)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				item, err := svc.UploadContent(ctx, targetPath, contentType, strings.NewReader(string(payload)))
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to upload file: %v", err)), nil
				}

				return mcp.NewToolResultText(fmt.Sprintf("File uploaded successfully:\n%s", formatItem(item))), nil
			}))

		// Delete file tool
		deleteFileTool := mcp.NewTool("delete_file",
			mcp.WithDescription("Delete a file or folder"),
			mcp.WithString("file_id",
				mcp.Required(),
				mcp.Description("The item ID to delete"),
			),
			mcp.WithString("user_id",
				mcp.Description("User ID whose drive to target (default: resolved tenant user)"),
			),
		)

		s.AddTool(deleteFileTool, common.InstrumentedToolHandlerWithOperation("delete_file", instrumentation.OperationDelete, sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				args := request.GetArguments()

				fileID, ok := args["file_id"].(string)
				if !ok || fileID == "" {
					return mcp.NewToolResultError("file_id is required"), nil
				}

				svc, err := driveFor(sc, args)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}

				if err := svc.DeleteItem(ctx, fileID); err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("Failed to delete file: %v", err)), nil
				}

				return mcp.NewToolResultText(fmt.Sprintf("Item %s deleted successfully", fileID)), nil
			}))
	}

	return nil
}
