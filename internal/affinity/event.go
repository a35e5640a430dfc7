package affinity

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Event is a single behavioral occurrence at a location.
type Event struct {
	Type       string   `json:"event_type"`
	ActorID    string   `json:"actor_id"`
	ActorTags  []string `json:"actor_tags"`
	LocationID string   `json:"location_id"`
	Intensity  float64  `json:"intensity"`
}

// Change describes what an event does to one trace.
type Change struct {
	Existed   bool
	Before    TraceRecord
	Decayed   float64
	Effective float64
	After     TraceRecord
}

// Plan is the fully computed effect of an event on a location. Building a
// plan never writes to the location; Apply does.
type Plan struct {
	Event      Event
	At         time.Time
	Weight     float64
	Personal   map[PersonalKey]Change
	Group      map[GroupKey]Change
	Behavior   map[string]Change
	Saturation ChannelValues
}

// PlanEvent computes the records an event would produce. Existing values are
// decayed to now before the new contribution is added, and the contribution
// is damped by how full the channel already is.
func PlanEvent(loc *Location, ev Event, p Params, now time.Time) (*Plan, error) {
	ev, err := normalizeEvent(ev)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Event:    ev,
		At:       now,
		Weight:   loc.Valuation.Weight(ev.Type),
		Personal: make(map[PersonalKey]Change),
		Group:    make(map[GroupKey]Change),
		Behavior: make(map[string]Change),
	}

	for _, c := range Channels {
		usage, err := loc.Usage(c, p.HalfLife.Of(c), now)
		if err != nil {
			return nil, err
		}
		capacity := p.Capacity.Of(c)
		halfLife := p.HalfLife.Of(c)

		step := func(rec TraceRecord, existed bool) (Change, error) {
			ch, err := planChange(rec, existed, ev.Intensity, usage, capacity, halfLife, p.Scar, now)
			if err != nil {
				return Change{}, err
			}
			switch {
			case !ch.After.IsScar:
				usage += ch.Effective
			case existed && !rec.IsScar:
				// promoted: its old value leaves the shared budget
				usage = math.Max(0, usage-ch.Decayed)
			}
			return ch, nil
		}

		switch c {
		case Personal:
			if ev.ActorID == "" {
				break
			}
			k := PersonalKey{ActorID: ev.ActorID, EventType: ev.Type}
			rec, ok := loc.Personal[k]
			ch, err := step(rec, ok)
			if err != nil {
				return nil, err
			}
			plan.Personal[k] = ch
		case Group:
			for _, tag := range ev.ActorTags {
				k := GroupKey{ActorTag: tag, EventType: ev.Type}
				rec, ok := loc.Group[k]
				ch, err := step(rec, ok)
				if err != nil {
					return nil, err
				}
				plan.Group[k] = ch
			}
		case Behavior:
			rec, ok := loc.Behavior[ev.Type]
			ch, err := step(rec, ok)
			if err != nil {
				return nil, err
			}
			plan.Behavior[ev.Type] = ch
		default:
			panic(fmt.Sprintf("affinity: unknown channel %d", int(c)))
		}
		plan.Saturation.Set(c, usage)
	}
	return plan, nil
}

func planChange(rec TraceRecord, existed bool, intensity, usage, capacity, halfLife float64, scar ScarPolicy, now time.Time) (Change, error) {
	decayed := 0.0
	if existed {
		v, err := DecayedValue(rec, halfLife, now)
		if err != nil {
			return Change{}, err
		}
		decayed = v
	}
	if existed && rec.IsScar {
		usage = decayed
	}

	effective := intensity * math.Max(0, 1-usage/capacity)
	if headroom := capacity - usage; effective > headroom {
		effective = math.Max(0, headroom)
	}

	after := TraceRecord{
		Accumulated: decayed + effective,
		LastUpdated: now,
		EventCount:  rec.EventCount + 1,
		IsScar:      rec.IsScar,
	}
	if !after.IsScar && scar.promotes(intensity, after) {
		after.IsScar = true
	}
	return Change{
		Existed:   existed,
		Before:    rec,
		Decayed:   decayed,
		Effective: effective,
		After:     after,
	}, nil
}

// Apply writes the planned records into loc.
func (pl *Plan) Apply(loc *Location) error {
	if loc.ID != pl.Event.LocationID && pl.Event.LocationID != "" {
		return fmt.Errorf("%w: plan for %q applied to %q", ErrInvalidArgument, pl.Event.LocationID, loc.ID)
	}
	for k, ch := range pl.Personal {
		loc.Personal[k] = ch.After
	}
	for k, ch := range pl.Group {
		loc.Group[k] = ch.After
	}
	for k, ch := range pl.Behavior {
		loc.Behavior[k] = ch.After
	}
	loc.Saturation = pl.Saturation
	return nil
}

// Rescore derives the score the location would have after the plan is
// applied from the score it has now, without touching the trace maps.
// before must have been computed at pl.At for the same actor and tags.
func (pl *Plan) Rescore(before Score, actorID string, actorTags []string, p Params) Score {
	personal, group, behavior := before.Personal, before.Group, before.Behavior
	for k, ch := range pl.Personal {
		if k.ActorID == actorID {
			personal += (ch.After.Accumulated - ch.Decayed) * pl.Weight
		}
	}
	tags := tagSet(actorTags)
	for k, ch := range pl.Group {
		if _, ok := tags[k.ActorTag]; ok {
			group += (ch.After.Accumulated - ch.Decayed) * pl.Weight
		}
	}
	for _, ch := range pl.Behavior {
		behavior += (ch.After.Accumulated - ch.Decayed) * pl.Weight
	}
	return p.blend(personal, group, behavior)
}

func normalizeEvent(ev Event) (Event, error) {
	ev.Type = strings.TrimSpace(ev.Type)
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: event type is required", ErrInvalidArgument)
	}
	if math.IsNaN(ev.Intensity) {
		return Event{}, fmt.Errorf("%w: intensity must be a number", ErrInvalidArgument)
	}
	ev.Intensity = math.Min(1, math.Max(0, ev.Intensity))

	seen := make(map[string]struct{}, len(ev.ActorTags))
	tags := make([]string, 0, len(ev.ActorTags))
	for _, t := range ev.ActorTags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	sort.Strings(tags)
	ev.ActorTags = tags
	return ev, nil
}
