package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/nexusflow/taxassist/internal/agent"
	"github.com/nexusflow/taxassist/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the document assistant's tools.
type Server struct {
	store  *vectordb.UserStore
	engine *agent.Engine
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(store *vectordb.UserStore, engine *agent.Engine) *Server {
	s := &Server{
		store:  store,
		engine: engine,
	}

	s.mcp = server.NewMCPServer(
		"taxassist",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(storeDocumentTool, s.handleStoreDocument)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(getUserInfoTool, s.handleGetUserInfo)
	s.mcp.AddTool(askAssistantTool, s.handleAskAssistant)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
