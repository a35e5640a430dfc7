package affinity

import (
	"fmt"
	"math"
	"time"
)

type PersonalKey struct {
	ActorID   string
	EventType string
}

func (k PersonalKey) String() string {
	return fmt.Sprintf("(%s, %s)", k.ActorID, k.EventType)
}

type GroupKey struct {
	ActorTag  string
	EventType string
}

func (k GroupKey) String() string {
	return fmt.Sprintf("(%s, %s)", k.ActorTag, k.EventType)
}

type AffordanceConfig struct {
	Type                   string   `json:"affordance_type" yaml:"type"`
	Enabled                bool     `json:"enabled" yaml:"enabled"`
	MechanicalHandle       string   `json:"mechanical_handle,omitempty" yaml:"mechanical_handle"`
	SeverityClampHostile   float64  `json:"severity_clamp_hostile" yaml:"severity_clamp_hostile"`
	SeverityClampFavorable float64  `json:"severity_clamp_favorable" yaml:"severity_clamp_favorable"`
	CooldownSeconds        int      `json:"cooldown_seconds" yaml:"cooldown_seconds"`
	TellsHostile           []string `json:"tells_hostile" yaml:"tells_hostile"`
	TellsFavorable         []string `json:"tells_favorable" yaml:"tells_favorable"`
}

// Definition is the static seed a location is created from.
type Definition struct {
	ID          string
	Name        string
	Description string
	Valuation   ValuationProfile
	Affordances []AffordanceConfig
}

// Location holds the mutable trace maps of one place. It carries no lock;
// callers serialize access per location.
type Location struct {
	ID          string
	Name        string
	Description string
	Valuation   ValuationProfile

	Personal map[PersonalKey]TraceRecord
	Group    map[GroupKey]TraceRecord
	Behavior map[string]TraceRecord

	Saturation  ChannelValues
	Affordances []AffordanceConfig
	Cooldowns   map[string]time.Time
	LastTick    time.Time
}

func NewLocation(def Definition) *Location {
	valuation := def.Valuation.Clone()
	affordances := make([]AffordanceConfig, len(def.Affordances))
	copy(affordances, def.Affordances)
	return &Location{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Valuation:   valuation,
		Personal:    make(map[PersonalKey]TraceRecord),
		Group:       make(map[GroupKey]TraceRecord),
		Behavior:    make(map[string]TraceRecord),
		Affordances: affordances,
		Cooldowns:   make(map[string]time.Time),
	}
}

// ScarPolicy promotes a trace to a scar once any enabled threshold is
// crossed. A zero threshold is disabled.
type ScarPolicy struct {
	Intensity   float64 `json:"intensity" yaml:"intensity"`
	Accumulated float64 `json:"accumulated" yaml:"accumulated"`
	Count       int     `json:"count" yaml:"count"`
}

func (s ScarPolicy) promotes(intensity float64, rec TraceRecord) bool {
	if s.Intensity > 0 && intensity >= s.Intensity {
		return true
	}
	if s.Accumulated > 0 && rec.Accumulated >= s.Accumulated {
		return true
	}
	return s.Count > 0 && rec.EventCount >= s.Count
}

// Params is the resolved scoring configuration for one entity kind.
// Half-lives are in seconds.
type Params struct {
	HalfLife   ChannelValues
	Weights    ChannelValues
	Capacity   ChannelValues
	Thresholds Thresholds
	Scar       ScarPolicy
	Scale      float64
}

func (p Params) Validate() error {
	for _, c := range Channels {
		hl := p.HalfLife.Of(c)
		if !(hl > 0) || math.IsInf(hl, 0) {
			return fmt.Errorf("%w: %s half-life must be positive, got %v", ErrConfiguration, c, hl)
		}
		if w := p.Weights.Of(c); !(w >= 0) {
			return fmt.Errorf("%w: %s channel weight must be non-negative, got %v", ErrConfiguration, c, w)
		}
		if cp := p.Capacity.Of(c); !(cp > 0) {
			return fmt.Errorf("%w: %s saturation capacity must be positive, got %v", ErrConfiguration, c, cp)
		}
	}
	if p.Scar.Intensity < 0 || p.Scar.Accumulated < 0 || p.Scar.Count < 0 {
		return fmt.Errorf("%w: scar thresholds must be non-negative", ErrConfiguration)
	}
	return p.Thresholds.Validate()
}

// Usage sums the decayed values of the non-scar traces in channel c. Scars
// sit outside the shared budget; each is bounded by capacity on its own.
func (l *Location) Usage(c Channel, halfLife float64, now time.Time) (float64, error) {
	var sum float64
	add := func(rec TraceRecord) error {
		if rec.IsScar {
			return nil
		}
		v, err := DecayedValue(rec, halfLife, now)
		if err != nil {
			return err
		}
		sum += v
		return nil
	}
	switch c {
	case Personal:
		for _, rec := range l.Personal {
			if err := add(rec); err != nil {
				return 0, err
			}
		}
	case Group:
		for _, rec := range l.Group {
			if err := add(rec); err != nil {
				return 0, err
			}
		}
	case Behavior:
		for _, rec := range l.Behavior {
			if err := add(rec); err != nil {
				return 0, err
			}
		}
	default:
		panic(fmt.Sprintf("affinity: unknown channel %d", int(c)))
	}
	return sum, nil
}

// Prune drops non-scar traces whose decayed value has fallen below floor
// and returns how many were removed.
func (l *Location) Prune(p Params, floor float64, now time.Time) (int, error) {
	if floor <= 0 {
		return 0, nil
	}
	removed := 0
	for k, rec := range l.Personal {
		v, err := DecayedValue(rec, p.HalfLife.Personal, now)
		if err != nil {
			return removed, err
		}
		if !rec.IsScar && v < floor {
			delete(l.Personal, k)
			removed++
		}
	}
	for k, rec := range l.Group {
		v, err := DecayedValue(rec, p.HalfLife.Group, now)
		if err != nil {
			return removed, err
		}
		if !rec.IsScar && v < floor {
			delete(l.Group, k)
			removed++
		}
	}
	for k, rec := range l.Behavior {
		v, err := DecayedValue(rec, p.HalfLife.Behavior, now)
		if err != nil {
			return removed, err
		}
		if !rec.IsScar && v < floor {
			delete(l.Behavior, k)
			removed++
		}
	}
	return removed, nil
}

// Refresh recomputes the stored saturation usage as of now.
func (l *Location) Refresh(p Params, now time.Time) error {
	for _, c := range Channels {
		u, err := l.Usage(c, p.HalfLife.Of(c), now)
		if err != nil {
			return err
		}
		l.Saturation.Set(c, u)
	}
	return nil
}
