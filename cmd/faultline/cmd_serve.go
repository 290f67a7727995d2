package main

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"faultline/internal/logging"
	mcpserver "faultline/internal/mcp"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `Starts an MCP server over stdin/stdout exposing submit_defect,
allowed_values, list_projects, check_user and get_submissions.

The server watches its parent process and exits when the parent goes away.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(opts)
			if err != nil {
				return err
			}
			srv := mcpserver.NewServer(app, version)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			mcpserver.WatchParent(ctx, cancel)

			logging.New("mcp").Info("starting faultline MCP server over stdio", "workspace", app.Settings().Workspace)
			return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
		},
	}
}
