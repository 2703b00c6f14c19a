package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	fmcp "github.com/folio-cms/folio/internal/mcp"
	"github.com/folio-cms/folio/internal/service"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the portfolio
content, visitor statistics and contact inbox as read-only tools and resources.
Supports stdio (default) and Streamable HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for desktop MCP clients that launch folio as a subprocess.

The HTTP transport listens without authentication. 'folio serve' also mounts
the same server at /mcp behind the admin token.`,
		Example: `  folio mcp                                  # stdio mode
  folio mcp --transport http --addr :8081      # Streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}

	cmd.Flags().String("transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().String("addr", ":8081", "HTTP listen address (only used with --transport http)")

	viper.BindPFlag("mcp.transport", cmd.Flags().Lookup("transport"))
	viper.BindPFlag("mcp.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runMCP() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol in stdio mode; logs always go to stderr.
	logger := newLogger(cfg.Log, false).With(slog.String("component", "mcp"))

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Aggregation only; nothing is tracked through this recorder.
	rec := service.NewRecorder(st, recorderConfig(cfg.Analytics), logger)
	mcpSrv := fmcp.NewMCPServer(st, rec, versionString(), logger)

	switch cfg.MCP.Transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		fmt.Fprintf(os.Stderr, "→ MCP listening on %s\n", cfg.MCP.Addr)
		return mcpSrv.ServeHTTP(cfg.MCP.Addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", cfg.MCP.Transport)
	}
}
