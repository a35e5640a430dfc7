package world

import (
	"fmt"
	"math"

	"evenflow/internal/affinity"
)

const DefaultTraceLimit = 100

type TraceFilter struct {
	LocationID   string
	ActorID      string
	EventType    string
	Channel      string
	MinIntensity float64
	Limit        int
}

// QueryTraces returns traces matching f ordered by decayed value. All
// candidates are ranked before the limit is applied. ActorID narrows only
// the personal channel.
func (w *World) QueryTraces(f TraceFilter) ([]TraceInfo, error) {
	var channel *affinity.Channel
	if f.Channel != "" {
		c, err := affinity.ParseChannel(f.Channel)
		if err != nil {
			return nil, err
		}
		channel = &c
	}
	if math.IsNaN(f.MinIntensity) {
		return nil, fmt.Errorf("%w: min_intensity must be a number", affinity.ErrInvalidArgument)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultTraceLimit
	}

	ids := []string{f.LocationID}
	if f.LocationID == "" {
		ids = w.ListLocations()
	} else if _, err := w.get(f.LocationID); err != nil {
		return nil, err
	}

	now := w.now()
	results := []TraceInfo{}
	for _, id := range ids {
		err := w.read(id, func(loc *affinity.Location) error {
			traces, err := collectTraces(loc, w.params, now, true)
			if err != nil {
				return err
			}
			for _, t := range traces {
				if channel != nil && t.Channel != *channel {
					continue
				}
				if f.ActorID != "" && t.Channel == affinity.Personal && t.Subject != f.ActorID {
					continue
				}
				if f.EventType != "" && t.EventType != f.EventType {
					continue
				}
				if t.DecayedValue < f.MinIntensity {
					continue
				}
				results = append(results, t)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sortTraces(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
