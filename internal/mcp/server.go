package mcp

import (
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/folio-cms/folio/internal/service"
	"github.com/folio-cms/folio/internal/store"
)

// MCPServer wraps the mcp-go server with folio's tool and resource
// registrations. Everything it exposes is read-only: portfolio content,
// visitor statistics and the contact inbox.
type MCPServer struct {
	store    *store.Store
	recorder *service.Recorder
	logger   *slog.Logger
	server   *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all tools and resources.
// The recorder is only used for aggregation and does not need to be started.
func NewMCPServer(st *store.Store, rec *service.Recorder, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		store:    st,
		recorder: rec,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"Folio Portfolio",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// Handler returns a Streamable HTTP handler for mounting the MCP endpoint
// inside another router.
func (s *MCPServer) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.server)
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// folio as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":8081").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
