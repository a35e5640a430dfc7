package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"evenflow/internal/affinity"
	"evenflow/internal/config"
	"evenflow/internal/world"
)

type GetLocationStateInput struct {
	LocationID         string `json:"location_id" jsonschema:"the unique identifier of the location"`
	IncludeTraces      *bool  `json:"include_traces,omitempty" jsonschema:"include trace records (default true)"`
	IncludeAffordances *bool  `json:"include_affordances,omitempty" jsonschema:"include affordance configurations (default true)"`
	DecayToNow         *bool  `json:"decay_to_now,omitempty" jsonschema:"report trace values decayed to now; false returns the raw accumulators (default true)"`
}

type ListLocationsInput struct{}

type ListLocationsOutput struct {
	Locations []string `json:"locations"`
}

type ComputeAffinityInput struct {
	LocationID string   `json:"location_id" jsonschema:"the location to check"`
	ActorID    string   `json:"actor_id" jsonschema:"the actor's unique identifier"`
	ActorTags  []string `json:"actor_tags,omitempty" jsonschema:"the actor's categorical tags"`
}

type QueryTracesInput struct {
	LocationID   string  `json:"location_id,omitempty" jsonschema:"filter by location"`
	ActorID      string  `json:"actor_id,omitempty" jsonschema:"filter by actor (personal channel only)"`
	EventType    string  `json:"event_type,omitempty" jsonschema:"filter by event type such as harm.fire"`
	Channel      string  `json:"channel,omitempty" jsonschema:"personal, group, or behavior"`
	MinIntensity float64 `json:"min_intensity,omitempty" jsonschema:"minimum decayed intensity"`
	Limit        int     `json:"limit,omitempty" jsonschema:"maximum number of results (default 100)"`
}

type QueryTracesOutput struct {
	Traces []TraceOutput `json:"traces"`
}

type PredictActionInput struct {
	ActorID    string   `json:"actor_id" jsonschema:"the actor's unique identifier"`
	ActorTags  []string `json:"actor_tags,omitempty" jsonschema:"the actor's categorical tags"`
	LocationID string   `json:"location_id" jsonschema:"where the action would occur"`
	EventType  string   `json:"event_type" jsonschema:"the type of action such as harm.fire"`
	Intensity  float64  `json:"intensity" jsonschema:"action intensity from 0.0 to 1.0"`
}

type LogEventInput struct {
	ActorID    string   `json:"actor_id" jsonschema:"the actor's unique identifier"`
	ActorTags  []string `json:"actor_tags,omitempty" jsonschema:"the actor's categorical tags"`
	LocationID string   `json:"location_id" jsonschema:"where the action happened"`
	EventType  string   `json:"event_type" jsonschema:"the type of action such as offer.gift"`
	Intensity  float64  `json:"intensity" jsonschema:"action intensity from 0.0 to 1.0"`
}

type GetWorldHistoryInput struct {
	LocationID     string `json:"location_id" jsonschema:"the location to summarize"`
	TimeWindowDays int    `json:"time_window_days,omitempty" jsonschema:"how far back to look in days (default 30)"`
}

type GetAffordanceRegistryInput struct{}

type AffordanceRegistryOutput struct {
	Affordances map[string]bool `json:"affordances"`
}

type SetAffordanceEnabledInput struct {
	AffordanceType string `json:"affordance_type" jsonschema:"the affordance type to switch"`
	Enabled        bool   `json:"enabled" jsonschema:"whether the affordance may trigger"`
}

type ExportWorldStateInput struct{}

type ExportWorldStateOutput struct {
	Locations map[string]LocationSnapshotOutput `json:"locations"`
}

type ExplainValuationInput struct {
	LocationID string `json:"location_id" jsonschema:"the location to check"`
	EventType  string `json:"event_type" jsonschema:"the event type such as harm.fire"`
}

type ValuationOutput struct {
	EventType   string  `json:"event_type"`
	Weight      float64 `json:"weight"`
	MatchType   string  `json:"match_type"`
	Category    string  `json:"category,omitempty"`
	Explanation string  `json:"explanation"`
}

type GetAffinityConfigInput struct{}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_location_state",
		Description: "Get the current state of a location including affinity traces and affordances",
	}, s.handleGetLocationState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_locations",
		Description: "List all available location IDs in the world",
	}, s.handleListLocations)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "compute_affinity",
		Description: "Compute the affinity score for an actor at a specific location",
	}, s.handleComputeAffinity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "query_traces",
		Description: "Query affinity traces across the world, sorted by decayed intensity",
	}, s.handleQueryTraces)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "predict_action",
		Description: "Predict the consequences of an action without performing it",
	}, s.handlePredictAction)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "log_event",
		Description: "Record an action at a location, updating traces and affordance cooldowns",
	}, s.handleLogEvent)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_world_history",
		Description: "Summarize recent history of a location for folklore generation",
	}, s.handleGetWorldHistory)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_affordance_registry",
		Description: "Show which affordance types are globally enabled",
	}, s.handleGetAffordanceRegistry)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "set_affordance_enabled",
		Description: "Globally enable or disable an affordance type",
	}, s.handleSetAffordanceEnabled)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "export_world_state",
		Description: "Export the complete world state as a snapshot",
	}, s.handleExportWorldState)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "explain_valuation",
		Description: "Explain how a location values a specific event type",
	}, s.handleExplainValuation)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_affinity_config",
		Description: "Return the active affinity configuration",
	}, s.handleGetAffinityConfig)
}

func (s *Server) handleGetLocationState(ctx context.Context, req *sdk.CallToolRequest, input GetLocationStateInput) (*sdk.CallToolResult, LocationStateOutput, error) {
	if input.LocationID == "" {
		return nil, LocationStateOutput{}, fmt.Errorf("location_id is required")
	}
	opts := world.DefaultStateOptions()
	if input.IncludeTraces != nil {
		opts.IncludeTraces = *input.IncludeTraces
	}
	if input.IncludeAffordances != nil {
		opts.IncludeAffordances = *input.IncludeAffordances
	}
	if input.DecayToNow != nil {
		opts.DecayToNow = *input.DecayToNow
	}
	state, err := s.world.LocationState(input.LocationID, opts)
	if err != nil {
		return nil, LocationStateOutput{}, err
	}
	return nil, locationStateOutput(state), nil
}

func (s *Server) handleListLocations(ctx context.Context, req *sdk.CallToolRequest, input ListLocationsInput) (*sdk.CallToolResult, ListLocationsOutput, error) {
	return nil, ListLocationsOutput{Locations: s.world.ListLocations()}, nil
}

func (s *Server) handleComputeAffinity(ctx context.Context, req *sdk.CallToolRequest, input ComputeAffinityInput) (*sdk.CallToolResult, ScoreOutput, error) {
	if input.LocationID == "" {
		return nil, ScoreOutput{}, fmt.Errorf("location_id is required")
	}
	score, err := s.world.ComputeAffinity(input.LocationID, input.ActorID, input.ActorTags)
	if err != nil {
		return nil, ScoreOutput{}, err
	}
	return nil, scoreOutput(score), nil
}

func (s *Server) handleQueryTraces(ctx context.Context, req *sdk.CallToolRequest, input QueryTracesInput) (*sdk.CallToolResult, QueryTracesOutput, error) {
	traces, err := s.world.QueryTraces(world.TraceFilter{
		LocationID:   input.LocationID,
		ActorID:      input.ActorID,
		EventType:    input.EventType,
		Channel:      input.Channel,
		MinIntensity: input.MinIntensity,
		Limit:        input.Limit,
	})
	if err != nil {
		return nil, QueryTracesOutput{}, err
	}
	return nil, QueryTracesOutput{Traces: traceOutputs(traces)}, nil
}

func (s *Server) handlePredictAction(ctx context.Context, req *sdk.CallToolRequest, input PredictActionInput) (*sdk.CallToolResult, ConsequenceOutput, error) {
	if input.LocationID == "" {
		return nil, ConsequenceOutput{}, fmt.Errorf("location_id is required")
	}
	c, err := s.world.Predict(world.Prediction{
		ActorID:    input.ActorID,
		ActorTags:  input.ActorTags,
		LocationID: input.LocationID,
		EventType:  input.EventType,
		Intensity:  input.Intensity,
	})
	if err != nil {
		return nil, ConsequenceOutput{}, err
	}
	return nil, consequenceOutput(c), nil
}

func (s *Server) handleLogEvent(ctx context.Context, req *sdk.CallToolRequest, input LogEventInput) (*sdk.CallToolResult, EventOutcomeOutput, error) {
	if input.LocationID == "" {
		return nil, EventOutcomeOutput{}, fmt.Errorf("location_id is required")
	}
	out, err := s.engine.LogEvent(ctx, affinity.Event{
		Type:       input.EventType,
		ActorID:    input.ActorID,
		ActorTags:  input.ActorTags,
		LocationID: input.LocationID,
		Intensity:  input.Intensity,
	})
	if err != nil {
		return nil, EventOutcomeOutput{}, err
	}
	return nil, eventOutcomeOutput(out), nil
}

func (s *Server) handleGetWorldHistory(ctx context.Context, req *sdk.CallToolRequest, input GetWorldHistoryInput) (*sdk.CallToolResult, affinity.HistorySummary, error) {
	if input.LocationID == "" {
		return nil, affinity.HistorySummary{}, fmt.Errorf("location_id is required")
	}
	window := input.TimeWindowDays
	if window == 0 {
		window = world.DefaultHistoryWindowDays
	}
	summary, err := s.world.History(input.LocationID, window)
	if err != nil {
		return nil, affinity.HistorySummary{}, err
	}
	return nil, *summary, nil
}

func (s *Server) handleGetAffordanceRegistry(ctx context.Context, req *sdk.CallToolRequest, input GetAffordanceRegistryInput) (*sdk.CallToolResult, AffordanceRegistryOutput, error) {
	return nil, AffordanceRegistryOutput{Affordances: s.world.AffordanceRegistry()}, nil
}

func (s *Server) handleSetAffordanceEnabled(ctx context.Context, req *sdk.CallToolRequest, input SetAffordanceEnabledInput) (*sdk.CallToolResult, AffordanceRegistryOutput, error) {
	if input.AffordanceType == "" {
		return nil, AffordanceRegistryOutput{}, fmt.Errorf("affordance_type is required")
	}
	if err := s.world.SetAffordanceEnabled(input.AffordanceType, input.Enabled); err != nil {
		return nil, AffordanceRegistryOutput{}, err
	}
	return nil, AffordanceRegistryOutput{Affordances: s.world.AffordanceRegistry()}, nil
}

func (s *Server) handleExportWorldState(ctx context.Context, req *sdk.CallToolRequest, input ExportWorldStateInput) (*sdk.CallToolResult, ExportWorldStateOutput, error) {
	out, err := s.exportWorld()
	if err != nil {
		return nil, ExportWorldStateOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) handleExplainValuation(ctx context.Context, req *sdk.CallToolRequest, input ExplainValuationInput) (*sdk.CallToolResult, ValuationOutput, error) {
	if input.LocationID == "" {
		return nil, ValuationOutput{}, fmt.Errorf("location_id is required")
	}
	if input.EventType == "" {
		return nil, ValuationOutput{}, fmt.Errorf("event_type is required")
	}
	v, err := s.world.ExplainValuation(input.LocationID, input.EventType)
	if err != nil {
		return nil, ValuationOutput{}, err
	}
	return nil, ValuationOutput{
		EventType:   v.EventType,
		Weight:      v.Weight,
		MatchType:   string(v.MatchType),
		Category:    v.Category,
		Explanation: v.Explanation,
	}, nil
}

func (s *Server) handleGetAffinityConfig(ctx context.Context, req *sdk.CallToolRequest, input GetAffinityConfigInput) (*sdk.CallToolResult, config.AffinityConfig, error) {
	return nil, *s.world.Config(), nil
}

func (s *Server) exportWorld() (ExportWorldStateOutput, error) {
	snaps, err := s.world.Export()
	if err != nil {
		return ExportWorldStateOutput{}, err
	}
	out := ExportWorldStateOutput{Locations: make(map[string]LocationSnapshotOutput, len(snaps))}
	for id, snap := range snaps {
		out.Locations[id] = snapshotOutput(snap)
	}
	return out, nil
}
