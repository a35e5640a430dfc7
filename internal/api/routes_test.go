package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"evenflow/internal/affinity"
	"evenflow/internal/config"
	"evenflow/internal/engine"
	"evenflow/internal/store/sqlite"
	"evenflow/internal/world"
)

var start = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return testEngineAt(t, func() time.Time { return start })
}

func testEngineAt(t *testing.T, clock func() time.Time) *engine.Engine {
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
		}},
	})
	if err != nil {
		t.Fatalf("adding location: %v", err)
	}
	return engine.New(w, nil, nil)
}

func testServer(t *testing.T) *Server {
	t.Helper()
	return New(testEngine(t), "test")
}

func do(srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	w := do(srv, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "ok" || resp["version"] != "test" {
		t.Errorf("unexpected health: %v", resp)
	}
	if resp["locations"] != float64(1) || resp["store"] != false {
		t.Errorf("unexpected health: %v", resp)
	}
}

func TestListLocations(t *testing.T) {
	srv := testServer(t)
	w := do(srv, "GET", "/api/locations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Locations []string `json:"locations"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Locations) != 1 || resp.Locations[0] != "whispering_woods" {
		t.Errorf("locations = %v", resp.Locations)
	}
}

func TestLocationState(t *testing.T) {
	srv := testServer(t)

	w := do(srv, "GET", "/api/locations/whispering_woods?traces=false", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var state world.LocationState
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if state.Name != "Whispering Woods" || len(state.Affordances) != 1 {
		t.Errorf("unexpected state: %+v", state)
	}

	if w := do(srv, "GET", "/api/locations/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing location status = %d, want 404", w.Code)
	}
	if w := do(srv, "GET", "/api/locations/whispering_woods?traces=maybe", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad flag status = %d, want 400", w.Code)
	}
}

func TestLocationState_RawAccumulators(t *testing.T) {
	now := start
	srv := New(testEngineAt(t, func() time.Time { return now }), "test")

	body := `{"actor_id":"alice","event_type":"harm.fire","intensity":0.8}`
	if w := do(srv, "POST", "/api/locations/whispering_woods/events", body); w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	now = start.Add(30 * 24 * time.Hour)

	personal := func(path string) world.TraceInfo {
		t.Helper()
		w := do(srv, "GET", path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
		}
		var state world.LocationState
		if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		for _, tr := range state.Traces {
			if tr.Channel == affinity.Personal {
				return tr
			}
		}
		t.Fatalf("no personal trace in %+v", state.Traces)
		return world.TraceInfo{}
	}

	raw := personal("/api/locations/whispering_woods?decay=false")
	if raw.Accumulated <= 0 || raw.DecayedValue != raw.Accumulated {
		t.Errorf("raw trace = %+v, want decayed_value == accumulated", raw)
	}
	decayed := personal("/api/locations/whispering_woods")
	if d := decayed.DecayedValue - raw.Accumulated/2; d > 1e-9 || d < -1e-9 {
		t.Errorf("decayed_value = %v, want half of %v after one half-life", decayed.DecayedValue, raw.Accumulated)
	}

	if w := do(srv, "GET", "/api/locations/whispering_woods?decay=sometimes", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad decay flag status = %d, want 400", w.Code)
	}
}

func TestLogEventThenAffinity(t *testing.T) {
	srv := testServer(t)

	body := `{"actor_id":"alice","actor_tags":["human"],"event_type":"harm.fire","intensity":0.9}`
	w := do(srv, "POST", "/api/locations/whispering_woods/events", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var outcome struct {
		AffinityAfter struct {
			Total float64 `json:"total"`
			Label string  `json:"threshold_label"`
		} `json:"affinity_after"`
		ScarsFormed []string `json:"scars_formed"`
	}
	json.Unmarshal(w.Body.Bytes(), &outcome)
	if outcome.AffinityAfter.Total >= 0 {
		t.Errorf("expected negative affinity, got %v", outcome.AffinityAfter.Total)
	}

	w = do(srv, "GET", "/api/locations/whispering_woods/affinity?actor_id=alice&tag=human", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var score struct {
		Personal float64 `json:"personal"`
		Label    string  `json:"threshold_label"`
	}
	json.Unmarshal(w.Body.Bytes(), &score)
	if score.Personal >= 0 || score.Label == "" {
		t.Errorf("unexpected score: %+v", score)
	}

	w = do(srv, "GET", "/api/traces?actor_id=alice&channel=personal", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var traces struct {
		Traces []world.TraceInfo `json:"traces"`
	}
	json.Unmarshal(w.Body.Bytes(), &traces)
	if len(traces.Traces) != 1 || traces.Traces[0].Subject != "alice" {
		t.Errorf("unexpected traces: %+v", traces.Traces)
	}
}

func TestAffinityRequiresActor(t *testing.T) {
	srv := testServer(t)
	if w := do(srv, "GET", "/api/locations/whispering_woods/affinity", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLogEventInvalid(t *testing.T) {
	srv := testServer(t)

	if w := do(srv, "POST", "/api/locations/whispering_woods/events", "{"); w.Code != http.StatusBadRequest {
		t.Errorf("bad json status = %d, want 400", w.Code)
	}
	body := `{"actor_id":"alice","event_type":" ","intensity":0.5}`
	if w := do(srv, "POST", "/api/locations/whispering_woods/events", body); w.Code != http.StatusBadRequest {
		t.Errorf("blank event type status = %d, want 400", w.Code)
	}
	body = `{"actor_id":"alice","event_type":"harm","intensity":0.5}`
	if w := do(srv, "POST", "/api/locations/nowhere/events", body); w.Code != http.StatusNotFound {
		t.Errorf("unknown location status = %d, want 404", w.Code)
	}
}

func TestPredictDoesNotMutate(t *testing.T) {
	srv := testServer(t)

	body := `{"actor_id":"bob","event_type":"offer","intensity":0.5}`
	w := do(srv, "POST", "/api/locations/whispering_woods/predict", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var c world.Consequence
	json.Unmarshal(w.Body.Bytes(), &c)
	if c.AffinityAfter.Total <= c.AffinityBefore.Total {
		t.Errorf("expected offer to raise affinity: %+v", c)
	}

	w = do(srv, "GET", "/api/traces?location_id=whispering_woods", "")
	var traces struct {
		Traces []world.TraceInfo `json:"traces"`
	}
	json.Unmarshal(w.Body.Bytes(), &traces)
	if len(traces.Traces) != 0 {
		t.Errorf("predict left traces behind: %+v", traces.Traces)
	}
}

func TestHistoryAndValuation(t *testing.T) {
	srv := testServer(t)

	if w := do(srv, "GET", "/api/locations/whispering_woods/history", ""); w.Code != http.StatusOK {
		t.Errorf("history status = %d", w.Code)
	}
	if w := do(srv, "GET", "/api/locations/whispering_woods/history?days=0", ""); w.Code != http.StatusBadRequest {
		t.Errorf("zero window status = %d, want 400", w.Code)
	}

	w := do(srv, "GET", "/api/locations/whispering_woods/valuation?event_type=harm.axe", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var v affinity.Valuation
	json.Unmarshal(w.Body.Bytes(), &v)
	if v.Weight != -1.0 || v.Category != "harm" {
		t.Errorf("unexpected valuation: %+v", v)
	}
}

func TestAffordanceToggle(t *testing.T) {
	srv := testServer(t)

	w := do(srv, "PUT", "/api/affordances/pathing", `{"enabled":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var reg map[string]bool
	json.Unmarshal(w.Body.Bytes(), &reg)
	if reg["pathing"] {
		t.Errorf("expected pathing disabled: %v", reg)
	}

	if w := do(srv, "PUT", "/api/affordances/pathing", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing flag status = %d, want 400", w.Code)
	}
}

func TestExportAndConfig(t *testing.T) {
	srv := testServer(t)

	w := do(srv, "GET", "/api/export", "")
	var snaps map[string]world.LocationSnapshot
	json.Unmarshal(w.Body.Bytes(), &snaps)
	if _, ok := snaps["whispering_woods"]; !ok {
		t.Errorf("export missing location: %s", w.Body.String())
	}

	w = do(srv, "GET", "/api/config", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestEventsJournal(t *testing.T) {
	srv := testServer(t)
	if w := do(srv, "GET", "/api/locations/whispering_woods/events", ""); w.Code != http.StatusNotImplemented {
		t.Errorf("status without store = %d, want 501", w.Code)
	}

	st, err := sqlite.New(context.Background(), "sqlite://:memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close(context.Background()) })
	if err := st.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	eng := testEngine(t)
	eng.Store = st
	srv = New(eng, "test")

	body := `{"actor_id":"alice","event_type":"offer","intensity":0.4}`
	if w := do(srv, "POST", "/api/locations/whispering_woods/events", body); w.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	w := do(srv, "GET", "/api/locations/whispering_woods/events?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Events []struct {
			ActorID   string `json:"actor_id"`
			EventType string `json:"event_type"`
		} `json:"events"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 1 || resp.Events[0].ActorID != "alice" {
		t.Errorf("unexpected journal: %+v", resp.Events)
	}
}

func TestMCPMounted(t *testing.T) {
	mcp := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := New(testEngine(t), "test", WithMCP(mcp))
	if w := do(srv, "POST", "/mcp", "{}"); w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want mcp handler", w.Code)
	}
	if w := do(testServer(t), "POST", "/mcp", "{}"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without mcp", w.Code)
	}
}
