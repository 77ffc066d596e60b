package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/nvandessel/faqloop/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run faqloop as an MCP (Model Context Protocol) server",
		Long: `Start an MCP server that exposes the review operations over stdio.

Tools:

  • review_list        - List entries with their review status
  • review_candidates  - Show rows a correction would consider
  • review_confirm     - Confirm an entry's answer
  • review_correct     - Correct an answer and propagate it
  • review_undo        - Revert the latest correction
  • review_history     - Show an entry's audit history

The server communicates via JSON-RPC 2.0 over stdin/stdout. Logs go to stderr.

Example client configuration:

  {
    "mcpServers": {
      "faqloop": {
        "command": "faqloop",
        "args": ["mcp-server", "--root", "/srv/faq"]
      }
    }
  }
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				server, err := mcp.NewServer(&mcp.Config{
					Name:    "faqloop",
					Version: version,
					Service: a.orch,
					Logger:  a.logger,
				})
				if err != nil {
					return fmt.Errorf("failed to create MCP server: %w", err)
				}
				defer server.Close()

				// Run blocks until the client disconnects or SIGTERM/SIGINT
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				if err := server.Run(ctx); err != nil {
					return fmt.Errorf("MCP server error: %w", err)
				}
				return nil
			})
		},
	}

	return cmd
}
