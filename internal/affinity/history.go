package affinity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Mood string

const (
	MoodPeaceful Mood = "peaceful"
	MoodTroubled Mood = "troubled"
	MoodViolent  Mood = "violent"
	MoodSacred   Mood = "sacred"
)

const historyCap = 10

type DominantEvent struct {
	EventType string  `json:"event_type"`
	Actor     string  `json:"actor"`
	Intensity float64 `json:"intensity"`
	Count     int     `json:"count"`
}

type HistorySummary struct {
	LocationID     string             `json:"location_id"`
	TimeWindowDays int                `json:"time_window_days"`
	DominantEvents []DominantEvent    `json:"dominant_events"`
	NotableActors  []string           `json:"notable_actors"`
	Categories     map[string]float64 `json:"categories"`
	Mood           Mood               `json:"mood"`
	FolkloreSeeds  []string           `json:"folklore_seeds"`
}

// Summarize reads the traces of loc updated within the window and derives a
// mood and folklore seeds from them.
func Summarize(loc *Location, windowDays int, now time.Time) (HistorySummary, error) {
	if windowDays <= 0 {
		return HistorySummary{}, fmt.Errorf("%w: time window must be positive, got %d days", ErrInvalidArgument, windowDays)
	}
	cutoff := now.AddDate(0, 0, -windowDays)

	events := make([]DominantEvent, 0, len(loc.Personal))
	for k, rec := range loc.Personal {
		if rec.LastUpdated.Before(cutoff) {
			continue
		}
		events = append(events, DominantEvent{
			EventType: k.EventType,
			Actor:     k.ActorID,
			Intensity: rec.Accumulated,
			Count:     rec.EventCount,
		})
	}
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Intensity != b.Intensity {
			return a.Intensity > b.Intensity
		}
		if a.Actor != b.Actor {
			return a.Actor < b.Actor
		}
		return a.EventType < b.EventType
	})

	actors := []string{}
	seen := make(map[string]struct{})
	for _, e := range events {
		if len(actors) == historyCap {
			break
		}
		if _, ok := seen[e.Actor]; ok {
			continue
		}
		seen[e.Actor] = struct{}{}
		actors = append(actors, e.Actor)
	}
	if len(events) > historyCap {
		events = events[:historyCap]
	}

	categories := make(map[string]float64)
	for eventType, rec := range loc.Behavior {
		if rec.LastUpdated.Before(cutoff) {
			continue
		}
		categories[Category(eventType)] += rec.Accumulated
	}

	return HistorySummary{
		LocationID:     loc.ID,
		TimeWindowDays: windowDays,
		DominantEvents: events,
		NotableActors:  actors,
		Categories:     categories,
		Mood:           ClassifyMood(categories),
		FolkloreSeeds:  folkloreSeeds(loc, categories),
	}, nil
}

// ClassifyMood applies the mood table to per-category behavior totals.
func ClassifyMood(totals map[string]float64) Mood {
	harm, offer, create := totals["harm"], totals["offer"], totals["create"]
	switch {
	case harm > 0.5:
		if harm >= 1.0 {
			return MoodViolent
		}
		return MoodTroubled
	case offer > 0.3 || create > 0.3:
		if offer > 0.5 {
			return MoodSacred
		}
		return MoodPeaceful
	default:
		return MoodPeaceful
	}
}

func folkloreSeeds(loc *Location, totals map[string]float64) []string {
	seeds := []string{}
	harm, offer, create := totals["harm"], totals["offer"], totals["create"]
	if harm > 0 && loc.Valuation["harm"] < 0 {
		seeds = append(seeds, fmt.Sprintf("The %s remembers those who brought harm", strings.ToLower(loc.Name)))
	}
	if loc.Valuation["harm.fire"] < -0.5 {
		seeds = append(seeds, "Fire is forbidden in these parts")
	}
	if offer > 0 {
		seeds = append(seeds, "Travelers who leave offerings find easier paths")
	}
	if create > 0 {
		seeds = append(seeds, "Those who plant and tend are welcomed")
	}
	return seeds
}
