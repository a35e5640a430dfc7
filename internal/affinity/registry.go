package affinity

import (
	"fmt"
	"sync"
	"time"
)

// Built-in affordance types known before any location is loaded.
const (
	AffordancePathing          = "pathing"
	AffordanceEncounterBias    = "encounter_bias"
	AffordanceAmbientMessaging = "ambient_messaging"
)

var BuiltinAffordanceTypes = []string{
	AffordancePathing,
	AffordanceEncounterBias,
	AffordanceAmbientMessaging,
}

// Registry is the global enable switch per affordance type. An affordance is
// active only when both its own config and the registry enable it.
type Registry struct {
	mu      sync.RWMutex
	enabled map[string]bool
}

func NewRegistry(types ...string) *Registry {
	r := &Registry{enabled: make(map[string]bool)}
	for _, t := range types {
		r.enabled[t] = true
	}
	return r
}

// Register adds t as enabled. Registering a known type keeps its state.
func (r *Registry) Register(t string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enabled[t]; !ok {
		r.enabled[t] = true
	}
}

func (r *Registry) IsEnabled(t string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled[t]
}

func (r *Registry) SetEnabled(t string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enabled[t]; !ok {
		return fmt.Errorf("%w: affordance type %q", ErrNotFound, t)
	}
	r.enabled[t] = enabled
	return nil
}

func (r *Registry) Snapshot() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.enabled))
	for k, v := range r.enabled {
		out[k] = v
	}
	return out
}

func (r *Registry) Active(aff AffordanceConfig) bool {
	return aff.Enabled && r.IsEnabled(aff.Type)
}

// Triggers applies the trigger rule for a resulting label. Adverse labels
// trigger every active affordance and surface its first hostile tell.
// Agreeable labels trigger nothing and surface first favorable tells.
func Triggers(label Label, affordances []AffordanceConfig, active func(AffordanceConfig) bool) (triggered []string, hints []string) {
	triggered = []string{}
	hints = []string{}
	switch label {
	case Hostile, Wary:
		for _, aff := range affordances {
			if !active(aff) {
				continue
			}
			triggered = append(triggered, aff.Type)
			if len(aff.TellsHostile) > 0 {
				hints = append(hints, aff.TellsHostile[0])
			}
		}
	case Warm, Favorable:
		for _, aff := range affordances {
			if !active(aff) {
				continue
			}
			if len(aff.TellsFavorable) > 0 {
				hints = append(hints, aff.TellsFavorable[0])
			}
		}
	case Neutral:
	default:
		panic(fmt.Sprintf("affinity: unknown label %d", int(label)))
	}
	return triggered, hints
}

// CooldownRemaining reports how long until affordance t may fire again.
// ok is false when no cooldown was ever recorded for t.
func (l *Location) CooldownRemaining(t string, now time.Time) (remaining time.Duration, ok bool) {
	until, ok := l.Cooldowns[t]
	if !ok {
		return 0, false
	}
	if d := until.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}
