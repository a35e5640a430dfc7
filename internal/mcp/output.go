package mcp

import (
	"sort"
	"time"

	"evenflow/internal/affinity"
	"evenflow/internal/world"
)

// Tool outputs carry labels, channels and times as strings so that the
// inferred output schema matches what is serialized.

type ScoreOutput struct {
	Total          float64 `json:"total"`
	Personal       float64 `json:"personal"`
	Group          float64 `json:"group"`
	Behavior       float64 `json:"behavior"`
	Scaled         float64 `json:"scaled"`
	ThresholdLabel string  `json:"threshold_label"`
}

type TraceOutput struct {
	LocationID   string  `json:"location_id"`
	Key          string  `json:"key"`
	Channel      string  `json:"channel"`
	Subject      string  `json:"subject,omitempty"`
	EventType    string  `json:"event_type"`
	Accumulated  float64 `json:"accumulated"`
	DecayedValue float64 `json:"decayed_value"`
	LastUpdated  string  `json:"last_updated"`
	EventCount   int     `json:"event_count"`
	IsScar       bool    `json:"is_scar"`
}

type AffordanceOutput struct {
	AffordanceType         string   `json:"affordance_type"`
	Enabled                bool     `json:"enabled"`
	MechanicalHandle       string   `json:"mechanical_handle,omitempty"`
	SeverityClampHostile   float64  `json:"severity_clamp_hostile"`
	SeverityClampFavorable float64  `json:"severity_clamp_favorable"`
	CooldownSeconds        int      `json:"cooldown_seconds"`
	CoolingDown            bool     `json:"cooling_down"`
	CooldownRemaining      float64  `json:"cooldown_remaining"`
	TellsHostile           []string `json:"tells_hostile"`
	TellsFavorable         []string `json:"tells_favorable"`
}

type LocationStateOutput struct {
	LocationID       string                 `json:"location_id"`
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	ValuationProfile map[string]float64     `json:"valuation_profile"`
	Saturation       affinity.ChannelValues `json:"saturation"`
	Traces           []TraceOutput          `json:"traces"`
	Affordances      []AffordanceOutput     `json:"affordances"`
	LastTick         string                 `json:"last_tick"`
}

type CooldownOutput struct {
	AffordanceType string `json:"affordance_type"`
	Until          string `json:"until"`
}

type AffordanceSummaryOutput struct {
	Type             string `json:"type"`
	Enabled          bool   `json:"enabled"`
	MechanicalHandle string `json:"mechanical_handle,omitempty"`
}

type LocationSnapshotOutput struct {
	LocationID       string                    `json:"location_id"`
	Name             string                    `json:"name"`
	Description      string                    `json:"description"`
	ValuationProfile map[string]float64        `json:"valuation_profile"`
	Saturation       affinity.ChannelValues    `json:"saturation"`
	Traces           []TraceOutput             `json:"traces"`
	Cooldowns        []CooldownOutput          `json:"cooldowns"`
	Affordances      []AffordanceSummaryOutput `json:"affordances"`
	LastTick         string                    `json:"last_tick"`
}

type ConsequenceOutput struct {
	LocationID           string      `json:"location_id"`
	ActorID              string      `json:"actor_id"`
	EventType            string      `json:"event_type"`
	AffinityBefore       ScoreOutput `json:"affinity_before"`
	AffinityAfter        ScoreOutput `json:"affinity_after"`
	TriggeredAffordances []string    `json:"triggered_affordances"`
	NarrativeHints       []string    `json:"narrative_hints"`
}

type TriggeredOutput struct {
	AffordanceType    string  `json:"affordance_type"`
	MechanicalHandle  string  `json:"mechanical_handle,omitempty"`
	CooldownUntil     string  `json:"cooldown_until"`
	CooldownRemaining float64 `json:"cooldown_remaining"`
	WasCoolingDown    bool    `json:"was_cooling_down"`
}

type EventOutcomeOutput struct {
	LocationID     string            `json:"location_id"`
	ActorID        string            `json:"actor_id"`
	ActorTags      []string          `json:"actor_tags"`
	EventType      string            `json:"event_type"`
	Intensity      float64           `json:"intensity"`
	At             string            `json:"at"`
	AffinityBefore ScoreOutput       `json:"affinity_before"`
	AffinityAfter  ScoreOutput       `json:"affinity_after"`
	Triggered      []TriggeredOutput `json:"triggered"`
	NarrativeHints []string          `json:"narrative_hints"`
	ScarsFormed    []string          `json:"scars_formed"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func scoreOutput(s affinity.Score) ScoreOutput {
	return ScoreOutput{
		Total:          s.Total,
		Personal:       s.Personal,
		Group:          s.Group,
		Behavior:       s.Behavior,
		Scaled:         s.Scaled,
		ThresholdLabel: s.Label.String(),
	}
}

func traceOutputs(traces []world.TraceInfo) []TraceOutput {
	out := make([]TraceOutput, 0, len(traces))
	for _, t := range traces {
		out = append(out, TraceOutput{
			LocationID:   t.LocationID,
			Key:          t.Key,
			Channel:      t.Channel.String(),
			Subject:      t.Subject,
			EventType:    t.EventType,
			Accumulated:  t.Accumulated,
			DecayedValue: t.DecayedValue,
			LastUpdated:  formatTime(t.LastUpdated),
			EventCount:   t.EventCount,
			IsScar:       t.IsScar,
		})
	}
	return out
}

func locationStateOutput(state *world.LocationState) LocationStateOutput {
	affs := make([]AffordanceOutput, 0, len(state.Affordances))
	for _, a := range state.Affordances {
		out := AffordanceOutput{
			AffordanceType:         a.Type,
			Enabled:                a.Enabled,
			MechanicalHandle:       a.MechanicalHandle,
			SeverityClampHostile:   a.SeverityClampHostile,
			SeverityClampFavorable: a.SeverityClampFavorable,
			CooldownSeconds:        a.CooldownSeconds,
			TellsHostile:           nonNil(a.TellsHostile),
			TellsFavorable:         nonNil(a.TellsFavorable),
		}
		if a.CooldownRemaining != nil {
			out.CoolingDown = *a.CooldownRemaining > 0
			out.CooldownRemaining = *a.CooldownRemaining
		}
		affs = append(affs, out)
	}
	return LocationStateOutput{
		LocationID:       state.LocationID,
		Name:             state.Name,
		Description:      state.Description,
		ValuationProfile: state.ValuationProfile,
		Saturation:       state.Saturation,
		Traces:           traceOutputs(state.Traces),
		Affordances:      affs,
		LastTick:         formatTime(state.LastTick),
	}
}

func snapshotOutput(snap *world.LocationSnapshot) LocationSnapshotOutput {
	cooldowns := make([]CooldownOutput, 0, len(snap.Cooldowns))
	for affType, until := range snap.Cooldowns {
		cooldowns = append(cooldowns, CooldownOutput{AffordanceType: affType, Until: formatTime(until)})
	}
	sort.Slice(cooldowns, func(i, j int) bool {
		return cooldowns[i].AffordanceType < cooldowns[j].AffordanceType
	})
	affs := make([]AffordanceSummaryOutput, 0, len(snap.Affordances))
	for _, a := range snap.Affordances {
		affs = append(affs, AffordanceSummaryOutput{Type: a.Type, Enabled: a.Enabled, MechanicalHandle: a.MechanicalHandle})
	}
	return LocationSnapshotOutput{
		LocationID:       snap.LocationID,
		Name:             snap.Name,
		Description:      snap.Description,
		ValuationProfile: snap.ValuationProfile,
		Saturation:       snap.Saturation,
		Traces:           traceOutputs(snap.Traces),
		Cooldowns:        cooldowns,
		Affordances:      affs,
		LastTick:         formatTime(snap.LastTick),
	}
}

func consequenceOutput(c *world.Consequence) ConsequenceOutput {
	return ConsequenceOutput{
		LocationID:           c.LocationID,
		ActorID:              c.ActorID,
		EventType:            c.EventType,
		AffinityBefore:       scoreOutput(c.AffinityBefore),
		AffinityAfter:        scoreOutput(c.AffinityAfter),
		TriggeredAffordances: nonNil(c.TriggeredAffordances),
		NarrativeHints:       nonNil(c.NarrativeHints),
	}
}

func eventOutcomeOutput(o *world.EventOutcome) EventOutcomeOutput {
	triggered := make([]TriggeredOutput, 0, len(o.Triggered))
	for _, t := range o.Triggered {
		triggered = append(triggered, TriggeredOutput{
			AffordanceType:    t.Type,
			MechanicalHandle:  t.MechanicalHandle,
			CooldownUntil:     formatTime(t.CooldownUntil),
			CooldownRemaining: t.CooldownRemaining,
			WasCoolingDown:    t.WasCoolingDown,
		})
	}
	return EventOutcomeOutput{
		LocationID:     o.Event.LocationID,
		ActorID:        o.Event.ActorID,
		ActorTags:      nonNil(o.Event.ActorTags),
		EventType:      o.Event.Type,
		Intensity:      o.Event.Intensity,
		At:             formatTime(o.At),
		AffinityBefore: scoreOutput(o.AffinityBefore),
		AffinityAfter:  scoreOutput(o.AffinityAfter),
		Triggered:      triggered,
		NarrativeHints: nonNil(o.NarrativeHints),
		ScarsFormed:    nonNil(o.ScarsFormed),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
