// Package mcp hosts the Model Context Protocol surface of the engine.
// Agents connect over streamable HTTP and use the registered tools to
// ask questions and search the mirrored HR data.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Server wraps the mcp-go MCPServer.
type Server struct {
	core   *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance. Tool handler panics are
// recovered and returned to the client as internal errors rather than
// taking down the engine.
func NewServer(name, version string, logger *zap.Logger) *Server {
	return &Server{
		core: server.NewMCPServer(
			name,
			version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		logger: logger,
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.core
}

// NewStreamableHTTPServer creates an HTTP transport server wrapping this
// MCP server. Stateless mode keeps restarts invisible to clients; the
// HTTP mux handles routing to /mcp, so no endpoint path is configured
// here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.core, server.WithStateLess(true))
}

// RegisterTool adds a tool and its handler to the server.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.core.AddTool(tool, handler)
	s.logger.Debug("Registered MCP tool", zap.String("tool", tool.Name))
}
