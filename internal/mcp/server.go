package mcp

import (
	"context"
	"net/http"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"evenflow/internal/engine"
	"evenflow/internal/world"
)

type Server struct {
	engine *engine.Engine
	world  *world.World
	mcp    *sdk.Server
}

func NewServer(eng *engine.Engine, version string) *Server {
	s := &Server{
		engine: eng,
		world:  eng.World,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "evenflow",
			Version: version,
		}, nil),
	}
	s.registerTools()
	s.registerResources()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}

// HTTPHandler serves the same server over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return s.mcp
	}, nil)
}
