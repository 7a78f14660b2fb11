package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"scriptforge/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing the pipeline",
	Long: `Run a Model Context Protocol (MCP) server that exposes the pipeline as tools.

The MCP server provides four tools:
- list_projects: list known projects
- pipeline_status: per-stage status for a project
- run_stage: run one pipeline stage for a project
- get_script: fetch a project's latest synthesized script

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout
- http: HTTP transport on specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport
  scriptforge mcp

  # Run MCP server with HTTP transport on port 8080
  scriptforge mcp --transport=http --port=8080`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// MCP uses stdio protocol, so disable verbose logging
		config.Verbose = false
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		internal.InitMCPLogging(config)

		// Stdout and stderr carry the protocol stream, so the app logs
		// nowhere unless the file log is enabled.
		app := internal.NewApp(config, internal.WithLogger(internal.NopLogger()))
		defer app.Close()

		mcpServer := internal.NewMCPServer(app)

		if transport == "http" && !config.Quiet {
			fmt.Printf("Starting ScriptForge MCP server on HTTP port %d...\n", port)
		}

		// Start the server (this will block until context is cancelled)
		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	rootCmd.AddCommand(mcpCmd)
}
