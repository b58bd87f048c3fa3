package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the onedrive application
var rootCmd = &cobra.Command{
	Use:   "onedrive",
	Short: "MCP server exposing Microsoft OneDrive operations",
	Long: `onedrive is an MCP (Model Context Protocol) server that exposes Microsoft
OneDrive operations as tools for AI assistants, backed by the Microsoft
Graph API.

It can run on:
  - stdio transport (default, for local MCP clients)
  - streamable HTTP transport (authenticated with API keys or Azure AD tokens)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "onedrive version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
