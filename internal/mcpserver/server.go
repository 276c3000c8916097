package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/contextlab/codectx/internal/project"
	"github.com/contextlab/codectx/internal/retriever"
)

const (
	// ServerName is the MCP server name
	ServerName = "codectx"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	ret      *retriever.Retriever
	registry *project.Registry
}

// NewServer creates a new MCP server around an assembled retriever. The
// registry may be nil; project-name resolution is then unavailable.
func NewServer(ret *retriever.Retriever, registry *project.Registry) *Server {
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		ret:      ret,
		registry: registry,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.ret.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
