package world

import (
	"fmt"
	"sort"
	"time"

	"evenflow/internal/affinity"
)

type TraceInfo struct {
	LocationID   string           `json:"location_id"`
	Key          string           `json:"key"`
	Channel      affinity.Channel `json:"channel"`
	Subject      string           `json:"subject,omitempty"`
	EventType    string           `json:"event_type"`
	Accumulated  float64          `json:"accumulated"`
	DecayedValue float64          `json:"decayed_value"`
	LastUpdated  time.Time        `json:"last_updated"`
	EventCount   int              `json:"event_count"`
	IsScar       bool             `json:"is_scar"`
}

type AffordanceInfo struct {
	Type                   string   `json:"affordance_type"`
	Enabled                bool     `json:"enabled"`
	MechanicalHandle       string   `json:"mechanical_handle,omitempty"`
	SeverityClampHostile   float64  `json:"severity_clamp_hostile"`
	SeverityClampFavorable float64  `json:"severity_clamp_favorable"`
	CooldownSeconds        int      `json:"cooldown_seconds"`
	CooldownRemaining      *float64 `json:"cooldown_remaining"`
	TellsHostile           []string `json:"tells_hostile"`
	TellsFavorable         []string `json:"tells_favorable"`
}

type LocationState struct {
	LocationID       string                    `json:"location_id"`
	Name             string                    `json:"name"`
	Description      string                    `json:"description"`
	ValuationProfile affinity.ValuationProfile `json:"valuation_profile"`
	Saturation       affinity.ChannelValues    `json:"saturation"`
	Traces           []TraceInfo               `json:"traces"`
	Affordances      []AffordanceInfo          `json:"affordances"`
	LastTick         time.Time                 `json:"last_tick"`
}

type StateOptions struct {
	IncludeTraces      bool
	IncludeAffordances bool
	DecayToNow         bool
}

func DefaultStateOptions() StateOptions {
	return StateOptions{IncludeTraces: true, IncludeAffordances: true, DecayToNow: true}
}

func (w *World) LocationState(id string, opts StateOptions) (*LocationState, error) {
	var state *LocationState
	err := w.read(id, func(loc *affinity.Location) error {
		now := w.now()
		state = &LocationState{
			LocationID:       loc.ID,
			Name:             loc.Name,
			Description:      loc.Description,
			ValuationProfile: loc.Valuation.Clone(),
			Saturation:       loc.Saturation,
			Traces:           []TraceInfo{},
			Affordances:      []AffordanceInfo{},
			LastTick:         loc.LastTick,
		}
		if opts.IncludeTraces {
			traces, err := collectTraces(loc, w.params, now, opts.DecayToNow)
			if err != nil {
				return err
			}
			sortTraces(traces)
			state.Traces = traces
		}
		if opts.IncludeAffordances {
			state.Affordances = w.affordanceInfo(loc, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (w *World) affordanceInfo(loc *affinity.Location, now time.Time) []AffordanceInfo {
	out := make([]AffordanceInfo, 0, len(loc.Affordances))
	for _, aff := range loc.Affordances {
		info := AffordanceInfo{
			Type:                   aff.Type,
			Enabled:                w.active(aff),
			MechanicalHandle:       aff.MechanicalHandle,
			SeverityClampHostile:   aff.SeverityClampHostile,
			SeverityClampFavorable: aff.SeverityClampFavorable,
			CooldownSeconds:        aff.CooldownSeconds,
			TellsHostile:           append([]string{}, aff.TellsHostile...),
			TellsFavorable:         append([]string{}, aff.TellsFavorable...),
		}
		if d, ok := loc.CooldownRemaining(aff.Type, now); ok {
			secs := d.Seconds()
			info.CooldownRemaining = &secs
		}
		out = append(out, info)
	}
	return out
}

// collectTraces flattens every trace of loc. When decay is false the
// decayed value mirrors the raw accumulator.
func collectTraces(loc *affinity.Location, p affinity.Params, now time.Time, decay bool) ([]TraceInfo, error) {
	out := make([]TraceInfo, 0, len(loc.Personal)+len(loc.Group)+len(loc.Behavior))
	value := func(rec affinity.TraceRecord, c affinity.Channel) (float64, error) {
		if !decay {
			return rec.Accumulated, nil
		}
		return affinity.DecayedValue(rec, p.HalfLife.Of(c), now)
	}
	for k, rec := range loc.Personal {
		v, err := value(rec, affinity.Personal)
		if err != nil {
			return nil, err
		}
		out = append(out, newTraceInfo(loc.ID, k.String(), affinity.Personal, k.ActorID, k.EventType, rec, v))
	}
	for k, rec := range loc.Group {
		v, err := value(rec, affinity.Group)
		if err != nil {
			return nil, err
		}
		out = append(out, newTraceInfo(loc.ID, k.String(), affinity.Group, k.ActorTag, k.EventType, rec, v))
	}
	for eventType, rec := range loc.Behavior {
		v, err := value(rec, affinity.Behavior)
		if err != nil {
			return nil, err
		}
		out = append(out, newTraceInfo(loc.ID, eventType, affinity.Behavior, "", eventType, rec, v))
	}
	return out, nil
}

func newTraceInfo(locationID, key string, c affinity.Channel, subject, eventType string, rec affinity.TraceRecord, decayed float64) TraceInfo {
	return TraceInfo{
		LocationID:   locationID,
		Key:          key,
		Channel:      c,
		Subject:      subject,
		EventType:    eventType,
		Accumulated:  rec.Accumulated,
		DecayedValue: decayed,
		LastUpdated:  rec.LastUpdated,
		EventCount:   rec.EventCount,
		IsScar:       rec.IsScar,
	}
}

// sortTraces orders by decayed value descending, then by location,
// channel and key so that repeated reads agree.
func sortTraces(traces []TraceInfo) {
	sort.Slice(traces, func(i, j int) bool {
		a, b := traces[i], traces[j]
		if a.DecayedValue != b.DecayedValue {
			return a.DecayedValue > b.DecayedValue
		}
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return a.Key < b.Key
	})
}

// LocationSnapshot is the serializable form of one location's mutable
// state plus its identifying metadata.
type LocationSnapshot struct {
	LocationID       string                    `json:"location_id"`
	Name             string                    `json:"name"`
	Description      string                    `json:"description"`
	ValuationProfile affinity.ValuationProfile `json:"valuation_profile"`
	Saturation       affinity.ChannelValues    `json:"saturation"`
	Traces           []TraceInfo               `json:"traces"`
	Cooldowns        map[string]time.Time      `json:"cooldowns"`
	Affordances      []AffordanceSummary       `json:"affordances"`
	LastTick         time.Time                 `json:"last_tick"`
}

type AffordanceSummary struct {
	Type             string `json:"type"`
	Enabled          bool   `json:"enabled"`
	MechanicalHandle string `json:"mechanical_handle,omitempty"`
}

func (w *World) Snapshot(id string) (*LocationSnapshot, error) {
	var snap *LocationSnapshot
	err := w.read(id, func(loc *affinity.Location) error {
		s, err := w.snapshot(loc, w.now())
		snap = s
		return err
	})
	return snap, err
}

func (w *World) snapshot(loc *affinity.Location, now time.Time) (*LocationSnapshot, error) {
	traces, err := collectTraces(loc, w.params, now, true)
	if err != nil {
		return nil, err
	}
	sortTraces(traces)
	cooldowns := make(map[string]time.Time, len(loc.Cooldowns))
	for k, v := range loc.Cooldowns {
		cooldowns[k] = v
	}
	affs := make([]AffordanceSummary, 0, len(loc.Affordances))
	for _, aff := range loc.Affordances {
		affs = append(affs, AffordanceSummary{Type: aff.Type, Enabled: w.active(aff), MechanicalHandle: aff.MechanicalHandle})
	}
	return &LocationSnapshot{
		LocationID:       loc.ID,
		Name:             loc.Name,
		Description:      loc.Description,
		ValuationProfile: loc.Valuation.Clone(),
		Saturation:       loc.Saturation,
		Traces:           traces,
		Cooldowns:        cooldowns,
		Affordances:      affs,
		LastTick:         loc.LastTick,
	}, nil
}

// Export snapshots every location. Each location is read under its own
// lock; there is no cross-location consistency.
func (w *World) Export() (map[string]*LocationSnapshot, error) {
	out := make(map[string]*LocationSnapshot)
	for _, id := range w.ListLocations() {
		snap, err := w.Snapshot(id)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", id, err)
		}
		out[id] = snap
	}
	return out, nil
}

// Restore replaces the mutable state of an already loaded location with
// the contents of snap. Static metadata is kept from the definition.
func (w *World) Restore(snap *LocationSnapshot) error {
	return w.write(snap.LocationID, func(loc *affinity.Location) error {
		personal := make(map[affinity.PersonalKey]affinity.TraceRecord)
		group := make(map[affinity.GroupKey]affinity.TraceRecord)
		behavior := make(map[string]affinity.TraceRecord)
		for _, t := range snap.Traces {
			rec := affinity.TraceRecord{
				Accumulated: t.Accumulated,
				LastUpdated: t.LastUpdated,
				EventCount:  t.EventCount,
				IsScar:      t.IsScar,
			}
			switch t.Channel {
			case affinity.Personal:
				personal[affinity.PersonalKey{ActorID: t.Subject, EventType: t.EventType}] = rec
			case affinity.Group:
				group[affinity.GroupKey{ActorTag: t.Subject, EventType: t.EventType}] = rec
			case affinity.Behavior:
				behavior[t.EventType] = rec
			default:
				return fmt.Errorf("%w: trace channel %d", affinity.ErrInvalidArgument, int(t.Channel))
			}
		}
		loc.Personal = personal
		loc.Group = group
		loc.Behavior = behavior
		loc.Cooldowns = make(map[string]time.Time, len(snap.Cooldowns))
		for k, v := range snap.Cooldowns {
			loc.Cooldowns[k] = v
		}
		loc.Saturation = snap.Saturation
		if !snap.LastTick.IsZero() {
			loc.LastTick = snap.LastTick
		}
		return nil
	})
}
