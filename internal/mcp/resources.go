package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"evenflow/internal/affinity"
	"evenflow/internal/world"
)

const locationURIPrefix = "location://"

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(&sdk.ResourceTemplate{
		Name:        "location",
		Title:       "Location state",
		Description: "A location's complete state. URI format: location://{location_id}",
		MIMEType:    "application/json",
		URITemplate: "location://{location_id}",
	}, s.readLocation)

	s.mcp.AddResource(&sdk.Resource{
		Name:        "affordance_registry",
		Title:       "Affordance registry",
		Description: "Global enable switch per affordance type",
		MIMEType:    "application/json",
		URI:         "affordance://registry",
	}, s.readRegistry)

	s.mcp.AddResource(&sdk.Resource{
		Name:        "world_state",
		Title:       "World state",
		Description: "Snapshot of every location with traces, cooldowns and affordances",
		MIMEType:    "application/json",
		URI:         "world://state",
	}, s.readWorld)

	s.mcp.AddResource(&sdk.Resource{
		Name:        "affinity_config",
		Title:       "Affinity configuration",
		Description: "Half-lives, channel weights, saturation capacity, thresholds and scale",
		MIMEType:    "application/json",
		URI:         "config://affinity",
	}, s.readConfig)
}

func (s *Server) readLocation(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, locationURIPrefix)
	if id == uri || id == "" {
		return nil, fmt.Errorf("location id is required; use URI format location://{location_id}")
	}
	state, err := s.world.LocationState(id, world.DefaultStateOptions())
	if err != nil {
		if errors.Is(err, affinity.ErrNotFound) {
			return nil, sdk.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	return jsonResource(uri, locationStateOutput(state))
}

func (s *Server) readRegistry(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.world.AffordanceRegistry())
}

func (s *Server) readWorld(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	out, err := s.exportWorld()
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, out.Locations)
}

func (s *Server) readConfig(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	return jsonResource(req.Params.URI, s.world.Config())
}

func jsonResource(uri string, payload any) (*sdk.ReadResourceResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", uri, err)
	}
	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}
