// Package service assembles the builder MCP server and serves it over stdio.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/threshold.games/internal/platform/branding"
	"github.com/louisbranch/threshold.games/internal/services/builder/mcp/domain"
	"github.com/louisbranch/threshold.games/internal/services/builder/session"
	"github.com/louisbranch/threshold.games/internal/services/builder/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// serverName identifies this MCP server to clients.
var serverName = branding.AppName + " Builder MCP"

// serverVersion identifies the MCP server version.
const serverVersion = "0.1.0"

// Server binds the builder MCP tools to a store and a session manager.
type Server struct {
	mcpServer *mcp.Server
	store     storage.RuleDefinitionStore
	sessions  *session.Manager
}

// New creates a builder MCP server with every tool registered. A nil session
// manager gets a fresh one.
func New(store storage.RuleDefinitionStore, sessions *session.Manager) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("rule definition store is required")
	}
	if sessions == nil {
		sessions = session.NewManager()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerTools(mcpServer, store, sessions)

	return &Server{mcpServer: mcpServer, store: store, sessions: sessions}, nil
}

func registerTools(server *mcp.Server, store storage.RuleDefinitionStore, sessions *session.Manager) {
	mcp.AddTool(server, domain.PaletteSearchTool(), domain.PaletteSearchHandler())
	mcp.AddTool(server, domain.TreeValidateTool(), domain.TreeValidateHandler())

	mcp.AddTool(server, domain.DefinitionCreateTool(), domain.DefinitionCreateHandler(store))
	mcp.AddTool(server, domain.DefinitionGetTool(), domain.DefinitionGetHandler(store))
	mcp.AddTool(server, domain.DefinitionListTool(), domain.DefinitionListHandler(store))
	mcp.AddTool(server, domain.DefinitionUpdateTool(), domain.DefinitionUpdateHandler(store))
	mcp.AddTool(server, domain.DefinitionDeleteTool(), domain.DefinitionDeleteHandler(store))

	mcp.AddTool(server, domain.SessionOpenTool(), domain.SessionOpenHandler(store, sessions))
	mcp.AddTool(server, domain.SessionDropTool(), domain.SessionDropHandler(sessions))
	mcp.AddTool(server, domain.SessionEditTool(), domain.SessionEditHandler(sessions))
	mcp.AddTool(server, domain.SessionDeleteTool(), domain.SessionDeleteHandler(sessions))
	mcp.AddTool(server, domain.SessionUndoTool(), domain.SessionUndoHandler(sessions))
	mcp.AddTool(server, domain.SessionRedoTool(), domain.SessionRedoHandler(sessions))
	mcp.AddTool(server, domain.SessionSaveTool(), domain.SessionSaveHandler(store, sessions))
	mcp.AddTool(server, domain.SessionCloseTool(), domain.SessionCloseHandler(sessions))
}

// Serve starts the MCP server on stdio and blocks until it stops or the
// context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.serveWithTransport(ctx, &mcp.StdioTransport{})
}

// serveWithTransport runs the MCP server on the provided transport. A
// cancelled context is a clean shutdown, not an error.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
