// Package cmd implements the onedrive command line interface.
//
// The binary exposes Microsoft OneDrive operations as MCP tools. The serve
// command starts the MCP server on stdio or streamable HTTP; generate-docs
// renders the registered tool surface as markdown.
package cmd
