package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"evenflow/internal/affinity"
	"evenflow/internal/config"
	"evenflow/internal/engine"
	"evenflow/internal/world"
)

var start = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerAt(t, func() time.Time { return start })
}

func newTestServerAt(t *testing.T, clock func() time.Time) *Server {
	t.Helper()
	w, err := world.New(config.DefaultAffinityConfig(), world.WithClock(clock))
	if err != nil {
		t.Fatalf("creating world: %v", err)
	}
	err = w.AddLocation(affinity.Definition{
		ID:        "whispering_woods",
		Name:      "Whispering Woods",
		Valuation: affinity.ValuationProfile{"harm": -1.0, "harm.fire": -0.9, "offer": 0.8},
		Affordances: []affinity.AffordanceConfig{{
			Type:            affinity.AffordancePathing,
			Enabled:         true,
			CooldownSeconds: 600,
			TellsHostile:    []string{"the woods creak"},
			TellsFavorable:  []string{"the woods hum"},
		}},
	})
	if err != nil {
		t.Fatalf("adding location: %v", err)
	}
	return NewServer(engine.New(w, nil, nil), "test")
}

func TestListLocations(t *testing.T) {
	server := newTestServer(t)
	_, output, err := server.handleListLocations(context.Background(), nil, ListLocationsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(output.Locations) != 1 || output.Locations[0] != "whispering_woods" {
		t.Fatalf("unexpected locations: %+v", output)
	}
}

func TestGetLocationState(t *testing.T) {
	server := newTestServer(t)

	_, _, err := server.handleGetLocationState(context.Background(), nil, GetLocationStateInput{LocationID: "missing"})
	if !errors.Is(err, affinity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	no := false
	_, output, err := server.handleGetLocationState(context.Background(), nil, GetLocationStateInput{LocationID: "whispering_woods", IncludeTraces: &no})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Name != "Whispering Woods" || len(output.Traces) != 0 || len(output.Affordances) != 1 {
		t.Fatalf("unexpected state: %+v", output)
	}
}

func TestGetLocationState_DecayToNow(t *testing.T) {
	ctx := context.Background()
	now := start
	server := newTestServerAt(t, func() time.Time { return now })

	_, _, err := server.handleLogEvent(ctx, nil, LogEventInput{
		ActorID:    "alice",
		LocationID: "whispering_woods",
		EventType:  "offer",
		Intensity:  0.6,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now = start.Add(60 * 24 * time.Hour)

	no := false
	_, raw, err := server.handleGetLocationState(ctx, nil, GetLocationStateInput{LocationID: "whispering_woods", DecayToNow: &no})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, decayed, err := server.handleGetLocationState(ctx, nil, GetLocationStateInput{LocationID: "whispering_woods"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw.Traces) == 0 || len(raw.Traces) != len(decayed.Traces) {
		t.Fatalf("unexpected traces: raw %+v decayed %+v", raw.Traces, decayed.Traces)
	}
	current := make(map[string]float64, len(decayed.Traces))
	for _, tr := range decayed.Traces {
		current[tr.Channel+"/"+tr.Key] = tr.DecayedValue
	}
	for _, tr := range raw.Traces {
		if tr.DecayedValue != tr.Accumulated {
			t.Errorf("raw %s: decayed_value %v != accumulated %v", tr.Key, tr.DecayedValue, tr.Accumulated)
		}
		if v := current[tr.Channel+"/"+tr.Key]; v >= tr.Accumulated {
			t.Errorf("%s: decayed_value %v should fall below %v", tr.Key, v, tr.Accumulated)
		}
	}
}

func TestLogEventThenQuery(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)

	_, outcome, err := server.handleLogEvent(ctx, nil, LogEventInput{
		ActorID:    "alice",
		ActorTags:  []string{"human"},
		LocationID: "whispering_woods",
		EventType:  "harm.fire",
		Intensity:  0.9,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.AffinityAfter.ThresholdLabel == "" || outcome.AffinityAfter.Total >= 0 {
		t.Fatalf("expected negative labelled score, got %+v", outcome.AffinityAfter)
	}
	if len(outcome.Triggered) != 1 || outcome.Triggered[0].AffordanceType != affinity.AffordancePathing {
		t.Fatalf("expected pathing triggered, got %+v", outcome.Triggered)
	}
	if outcome.At != "2026-05-04T09:00:00Z" {
		t.Fatalf("unexpected timestamp %q", outcome.At)
	}

	_, traces, err := server.handleQueryTraces(ctx, nil, QueryTracesInput{Channel: "personal"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(traces.Traces) != 1 || traces.Traces[0].Channel != "personal" || traces.Traces[0].Subject != "alice" {
		t.Fatalf("unexpected traces: %+v", traces)
	}

	if _, _, err := server.handleQueryTraces(ctx, nil, QueryTracesInput{Channel: "telepathic"}); !errors.Is(err, affinity.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPredictAction(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)

	_, output, err := server.handlePredictAction(ctx, nil, PredictActionInput{
		ActorID:    "bob",
		LocationID: "whispering_woods",
		EventType:  "offer",
		Intensity:  1.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.AffinityAfter.Total <= output.AffinityBefore.Total {
		t.Fatalf("expected offer to raise affinity: %+v", output)
	}
	if len(output.TriggeredAffordances) != 0 {
		t.Fatalf("expected nothing triggered for a favorable outcome, got %v", output.TriggeredAffordances)
	}

	_, traces, err := server.handleQueryTraces(ctx, nil, QueryTracesInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(traces.Traces) != 0 {
		t.Fatalf("prediction must not write traces")
	}
}

func TestComputeAffinity(t *testing.T) {
	server := newTestServer(t)
	_, output, err := server.handleComputeAffinity(context.Background(), nil, ComputeAffinityInput{LocationID: "whispering_woods", ActorID: "nobody"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Total != 0 || output.ThresholdLabel != "neutral" {
		t.Fatalf("expected neutral empty score, got %+v", output)
	}
}

func TestExplainValuation(t *testing.T) {
	server := newTestServer(t)
	cases := map[string]string{
		"harm.fire":  "exact",
		"harm.axe":   "category",
		"trade.fair": "default",
	}
	for eventType, want := range cases {
		_, output, err := server.handleExplainValuation(context.Background(), nil, ExplainValuationInput{LocationID: "whispering_woods", EventType: eventType})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if output.MatchType != want {
			t.Fatalf("%s: expected %s match, got %s", eventType, want, output.MatchType)
		}
	}
}

func TestWorldHistory_DefaultWindow(t *testing.T) {
	server := newTestServer(t)
	_, output, err := server.handleGetWorldHistory(context.Background(), nil, GetWorldHistoryInput{LocationID: "whispering_woods"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.TimeWindowDays != world.DefaultHistoryWindowDays || output.Mood != affinity.MoodPeaceful {
		t.Fatalf("unexpected history: %+v", output)
	}
}

func TestAffordanceRegistry(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)

	_, output, err := server.handleSetAffordanceEnabled(ctx, nil, SetAffordanceEnabledInput{AffordanceType: affinity.AffordancePathing, Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.Affordances[affinity.AffordancePathing] {
		t.Fatalf("expected pathing disabled")
	}

	if _, _, err := server.handleSetAffordanceEnabled(ctx, nil, SetAffordanceEnabledInput{AffordanceType: "unknown", Enabled: true}); !errors.Is(err, affinity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	_, predicted, err := server.handlePredictAction(ctx, nil, PredictActionInput{ActorID: "alice", LocationID: "whispering_woods", EventType: "harm", Intensity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(predicted.TriggeredAffordances) != 0 {
		t.Fatalf("disabled affordance must not trigger, got %v", predicted.TriggeredAffordances)
	}
}

func TestResources(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t)

	result, err := server.readLocation(ctx, &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: "location://whispering_woods"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var state LocationStateOutput
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &state); err != nil {
		t.Fatalf("decoding resource: %v", err)
	}
	if state.LocationID != "whispering_woods" {
		t.Fatalf("unexpected resource payload: %+v", state)
	}

	if _, err := server.readLocation(ctx, &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: "location://nowhere"}}); err == nil {
		t.Fatalf("expected not found error")
	}

	cfg, err := server.readConfig(ctx, &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: "config://affinity"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded config.AffinityConfig
	if err := json.Unmarshal([]byte(cfg.Contents[0].Text), &decoded); err != nil {
		t.Fatalf("decoding config: %v", err)
	}
	if decoded.AffinityScale != 100 {
		t.Fatalf("unexpected config: %+v", decoded)
	}

	worldState, err := server.readWorld(ctx, &sdk.ReadResourceRequest{Params: &sdk.ReadResourceParams{URI: "world://state"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var locations map[string]LocationSnapshotOutput
	if err := json.Unmarshal([]byte(worldState.Contents[0].Text), &locations); err != nil {
		t.Fatalf("decoding world: %v", err)
	}
	if _, ok := locations["whispering_woods"]; !ok {
		t.Fatalf("expected whispering_woods in export")
	}
}
