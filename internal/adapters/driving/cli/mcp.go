package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docindex/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes a "search" tool and, through resources, the indexing
status of every document.

By default, the server communicates over stdio using JSON-RPC. Use --port
to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  docindex mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  docindex mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "docindex": {
        "command": "/path/to/docindex",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	return withServices(cmd, func(svc *Services) error {
		server, err := mcp.NewServer(&mcp.Ports{Search: svc.Search, Indexer: svc.Indexer})
		if err != nil {
			return err
		}

		if port > 0 {
			addr := fmt.Sprintf(":%d", port)
			fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
			return server.RunHTTP(cmd.Context(), addr)
		}
		return server.Run(cmd.Context())
	})
}
