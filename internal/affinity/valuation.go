package affinity

import (
	"fmt"
	"strings"
)

type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchCategory MatchType = "category"
	MatchDefault  MatchType = "default"
)

// ValuationProfile maps an event type or category to a signed weight.
type ValuationProfile map[string]float64

type Valuation struct {
	EventType   string    `json:"event_type"`
	Weight      float64   `json:"weight"`
	MatchType   MatchType `json:"match_type"`
	Category    string    `json:"category,omitempty"`
	Explanation string    `json:"explanation"`
}

// Category returns the substring of eventType before the first dot.
func Category(eventType string) string {
	if i := strings.IndexByte(eventType, '.'); i >= 0 {
		return eventType[:i]
	}
	return eventType
}

// Resolve looks up eventType by exact match, then by category, then
// falls back to a neutral weight.
func (p ValuationProfile) Resolve(eventType string) Valuation {
	if w, ok := p[eventType]; ok {
		return Valuation{
			EventType:   eventType,
			Weight:      w,
			MatchType:   MatchExact,
			Explanation: fmt.Sprintf("Location has explicit valuation for '%s'", eventType),
		}
	}
	category := Category(eventType)
	if w, ok := p[category]; ok {
		return Valuation{
			EventType:   eventType,
			Weight:      w,
			MatchType:   MatchCategory,
			Category:    category,
			Explanation: fmt.Sprintf("No exact match; using category '%s' valuation", category),
		}
	}
	return Valuation{
		EventType:   eventType,
		Weight:      0,
		MatchType:   MatchDefault,
		Explanation: "No valuation found; neutral (0.0) applied",
	}
}

func (p ValuationProfile) Weight(eventType string) float64 {
	return p.Resolve(eventType).Weight
}

func (p ValuationProfile) Clone() ValuationProfile {
	out := make(ValuationProfile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
