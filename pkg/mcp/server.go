package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/homai-scheduler/pkg/schedule"
	"github.com/urmzd/homai-scheduler/pkg/schedule/schema"
)

// Server exposes the schedule service as MCP tools
type Server struct {
	mcpServer *server.MCPServer
	svc       *schedule.Service
	validator *schema.Validator
}

// NewServer creates a new MCP server for schedule management
func NewServer(svc *schedule.Service, validator *schema.Validator) *Server {
	s := &Server{
		svc:       svc,
		validator: validator,
	}

	s.mcpServer = server.NewMCPServer(
		"homai-scheduler",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
