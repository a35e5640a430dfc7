package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"evenflow/internal/affinity"
	"evenflow/internal/world"
)

type actionRequest struct {
	ActorID   string   `json:"actor_id"`
	ActorTags []string `json:"actor_tags"`
	EventType string   `json:"event_type"`
	Intensity float64  `json:"intensity"`
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"locations": s.world.ListLocations()})
}

func (s *Server) handleLocationState(w http.ResponseWriter, r *http.Request) {
	opts := world.DefaultStateOptions()
	q := r.URL.Query()
	var err error
	if opts.IncludeTraces, err = boolParam(q.Get("traces"), true); err != nil {
		writeError(w, http.StatusBadRequest, "traces must be a boolean")
		return
	}
	if opts.IncludeAffordances, err = boolParam(q.Get("affordances"), true); err != nil {
		writeError(w, http.StatusBadRequest, "affordances must be a boolean")
		return
	}
	if opts.DecayToNow, err = boolParam(q.Get("decay"), true); err != nil {
		writeError(w, http.StatusBadRequest, "decay must be a boolean")
		return
	}

	state, err := s.world.LocationState(chi.URLParam(r, "locationID"), opts)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAffinity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	actorID := q.Get("actor_id")
	if actorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id required")
		return
	}
	score, err := s.world.ComputeAffinity(chi.URLParam(r, "locationID"), actorID, splitTags(q["tag"]))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	c, err := s.world.Predict(world.Prediction{
		ActorID:    req.ActorID,
		ActorTags:  req.ActorTags,
		LocationID: chi.URLParam(r, "locationID"),
		EventType:  req.EventType,
		Intensity:  req.Intensity,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleLogEvent(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	out, err := s.engine.LogEvent(r.Context(), affinity.Event{
		Type:       req.EventType,
		ActorID:    req.ActorID,
		ActorTags:  req.ActorTags,
		LocationID: chi.URLParam(r, "locationID"),
		Intensity:  req.Intensity,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	events, err := s.engine.Events(r.Context(), chi.URLParam(r, "locationID"), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), world.DefaultHistoryWindowDays)
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be an integer")
		return
	}
	summary, err := s.world.History(chi.URLParam(r, "locationID"), days)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	eventType := r.URL.Query().Get("event_type")
	if eventType == "" {
		writeError(w, http.StatusBadRequest, "event_type required")
		return
	}
	v, err := s.world.ExplainValuation(chi.URLParam(r, "locationID"), eventType)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleQueryTraces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := world.TraceFilter{
		LocationID: q.Get("location_id"),
		ActorID:    q.Get("actor_id"),
		EventType:  q.Get("event_type"),
		Channel:    q.Get("channel"),
	}
	if v := q.Get("min_intensity"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_intensity must be a number")
			return
		}
		f.MinIntensity = parsed
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	f.Limit = limit

	traces, err := s.world.QueryTraces(f)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"traces": traces})
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.world.AffordanceRegistry())
}

func (s *Server) handleSetAffordance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled required")
		return
	}
	if err := s.world.SetAffordanceEnabled(chi.URLParam(r, "affordanceType"), *req.Enabled); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.world.AffordanceRegistry())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.world.Export()
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.world.Config())
}

func boolParam(v string, def bool) (bool, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseBool(v)
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// splitTags accepts repeated and comma separated tag parameters.
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
