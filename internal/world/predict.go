package world

import (
	"sort"
	"time"

	"evenflow/internal/affinity"
)

func (w *World) ComputeAffinity(locationID, actorID string, actorTags []string) (affinity.Score, error) {
	var score affinity.Score
	err := w.read(locationID, func(loc *affinity.Location) error {
		s, err := affinity.ComputeAffinity(loc, actorID, actorTags, w.params, w.now())
		score = s
		return err
	})
	return score, err
}

type Prediction struct {
	ActorID    string
	ActorTags  []string
	LocationID string
	EventType  string
	Intensity  float64
}

type Consequence struct {
	LocationID           string         `json:"location_id"`
	ActorID              string         `json:"actor_id"`
	EventType            string         `json:"event_type"`
	AffinityBefore       affinity.Score `json:"affinity_before"`
	AffinityAfter        affinity.Score `json:"affinity_after"`
	TriggeredAffordances []string       `json:"triggered_affordances"`
	NarrativeHints       []string       `json:"narrative_hints"`
}

// Predict evaluates an event against the location under a read lock and
// returns the score it would produce. Nothing is written.
func (w *World) Predict(p Prediction) (*Consequence, error) {
	var out *Consequence
	err := w.read(p.LocationID, func(loc *affinity.Location) error {
		now := w.now()
		ev := affinity.Event{
			Type:       p.EventType,
			ActorID:    p.ActorID,
			ActorTags:  p.ActorTags,
			LocationID: p.LocationID,
			Intensity:  p.Intensity,
		}
		plan, err := affinity.PlanEvent(loc, ev, w.params, now)
		if err != nil {
			return err
		}
		before, err := affinity.ComputeAffinity(loc, p.ActorID, plan.Event.ActorTags, w.params, now)
		if err != nil {
			return err
		}
		after := plan.Rescore(before, p.ActorID, plan.Event.ActorTags, w.params)
		triggered, hints := affinity.Triggers(after.Label, loc.Affordances, w.active)
		out = &Consequence{
			LocationID:           p.LocationID,
			ActorID:              p.ActorID,
			EventType:            plan.Event.Type,
			AffinityBefore:       before,
			AffinityAfter:        after,
			TriggeredAffordances: triggered,
			NarrativeHints:       hints,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type TriggeredAffordance struct {
	Type              string    `json:"affordance_type"`
	MechanicalHandle  string    `json:"mechanical_handle,omitempty"`
	CooldownUntil     time.Time `json:"cooldown_until"`
	CooldownRemaining float64   `json:"cooldown_remaining"`
	WasCoolingDown    bool      `json:"was_cooling_down"`
}

type EventOutcome struct {
	Event          affinity.Event        `json:"event"`
	At             time.Time             `json:"at"`
	AffinityBefore affinity.Score        `json:"affinity_before"`
	AffinityAfter  affinity.Score        `json:"affinity_after"`
	Triggered      []TriggeredAffordance `json:"triggered"`
	NarrativeHints []string              `json:"narrative_hints"`
	ScarsFormed    []string              `json:"scars_formed"`
}

// LogEvent commits an event to its location. Triggered affordances that are
// not already cooling down get a fresh cooldown; ones that are keep theirs.
func (w *World) LogEvent(ev affinity.Event) (*EventOutcome, error) {
	var out *EventOutcome
	err := w.write(ev.LocationID, func(loc *affinity.Location) error {
		now := w.now()
		plan, err := affinity.PlanEvent(loc, ev, w.params, now)
		if err != nil {
			return err
		}
		before, err := affinity.ComputeAffinity(loc, ev.ActorID, plan.Event.ActorTags, w.params, now)
		if err != nil {
			return err
		}
		after := plan.Rescore(before, ev.ActorID, plan.Event.ActorTags, w.params)
		if err := plan.Apply(loc); err != nil {
			return err
		}

		types, hints := affinity.Triggers(after.Label, loc.Affordances, w.active)
		triggered := make([]TriggeredAffordance, 0, len(types))
		for _, aff := range loc.Affordances {
			if !contains(types, aff.Type) {
				continue
			}
			t := TriggeredAffordance{Type: aff.Type, MechanicalHandle: aff.MechanicalHandle}
			if remaining, ok := loc.CooldownRemaining(aff.Type, now); ok && remaining > 0 {
				t.WasCoolingDown = true
			} else {
				loc.Cooldowns[aff.Type] = now.Add(time.Duration(aff.CooldownSeconds) * time.Second)
			}
			t.CooldownUntil = loc.Cooldowns[aff.Type]
			if remaining, _ := loc.CooldownRemaining(aff.Type, now); remaining > 0 {
				t.CooldownRemaining = remaining.Seconds()
			}
			triggered = append(triggered, t)
		}

		out = &EventOutcome{
			Event:          plan.Event,
			At:             now,
			AffinityBefore: before,
			AffinityAfter:  after,
			Triggered:      triggered,
			NarrativeHints: hints,
			ScarsFormed:    scarsFormed(plan),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scarsFormed(plan *affinity.Plan) []string {
	out := []string{}
	for k, ch := range plan.Personal {
		if ch.After.IsScar && !ch.Before.IsScar {
			out = append(out, affinity.Personal.String()+" "+k.String())
		}
	}
	for k, ch := range plan.Group {
		if ch.After.IsScar && !ch.Before.IsScar {
			out = append(out, affinity.Group.String()+" "+k.String())
		}
	}
	for k, ch := range plan.Behavior {
		if ch.After.IsScar && !ch.Before.IsScar {
			out = append(out, affinity.Behavior.String()+" "+k)
		}
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
