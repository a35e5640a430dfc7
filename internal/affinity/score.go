package affinity

import (
	"strings"
	"time"
)

type Score struct {
	Total    float64 `json:"total"`
	Personal float64 `json:"personal"`
	Group    float64 `json:"group"`
	Behavior float64 `json:"behavior"`
	Scaled   float64 `json:"scaled"`
	Label    Label   `json:"threshold_label"`
}

func ScorePersonal(traces map[PersonalKey]TraceRecord, actorID string, halfLife float64, profile ValuationProfile, now time.Time) (float64, error) {
	var sum float64
	for k, rec := range traces {
		if k.ActorID != actorID {
			continue
		}
		v, err := DecayedValue(rec, halfLife, now)
		if err != nil {
			return 0, err
		}
		sum += v * profile.Weight(k.EventType)
	}
	return sum, nil
}

func ScoreGroup(traces map[GroupKey]TraceRecord, actorTags []string, halfLife float64, profile ValuationProfile, now time.Time) (float64, error) {
	tags := tagSet(actorTags)
	var sum float64
	for k, rec := range traces {
		if _, ok := tags[k.ActorTag]; !ok {
			continue
		}
		v, err := DecayedValue(rec, halfLife, now)
		if err != nil {
			return 0, err
		}
		sum += v * profile.Weight(k.EventType)
	}
	return sum, nil
}

func ScoreBehavior(traces map[string]TraceRecord, halfLife float64, profile ValuationProfile, now time.Time) (float64, error) {
	var sum float64
	for eventType, rec := range traces {
		v, err := DecayedValue(rec, halfLife, now)
		if err != nil {
			return 0, err
		}
		sum += v * profile.Weight(eventType)
	}
	return sum, nil
}

// ComputeAffinity blends the three channel scores of loc for an actor.
// It does not modify loc.
func ComputeAffinity(loc *Location, actorID string, actorTags []string, p Params, now time.Time) (Score, error) {
	personal, err := ScorePersonal(loc.Personal, actorID, p.HalfLife.Personal, loc.Valuation, now)
	if err != nil {
		return Score{}, err
	}
	group, err := ScoreGroup(loc.Group, actorTags, p.HalfLife.Group, loc.Valuation, now)
	if err != nil {
		return Score{}, err
	}
	behavior, err := ScoreBehavior(loc.Behavior, p.HalfLife.Behavior, loc.Valuation, now)
	if err != nil {
		return Score{}, err
	}
	return p.blend(personal, group, behavior), nil
}

func (p Params) blend(personal, group, behavior float64) Score {
	total := personal*p.Weights.Personal + group*p.Weights.Group + behavior*p.Weights.Behavior
	return Score{
		Total:    total,
		Personal: personal,
		Group:    group,
		Behavior: behavior,
		Scaled:   total * p.Scale,
		Label:    p.Thresholds.Label(total),
	}
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}
