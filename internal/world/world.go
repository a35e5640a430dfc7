// Package world holds every loaded location behind per-location locks and
// exposes the read, predict and mutation operations over them.
package world

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"evenflow/internal/affinity"
	"evenflow/internal/config"
)

// World is created once at startup and shared by every surface. Its lock
// guards the location set only; each location has its own lock.
type World struct {
	cfg      *config.AffinityConfig
	params   affinity.Params
	registry *affinity.Registry
	now      func() time.Time

	mu        sync.RWMutex
	locations map[string]*entry
}

type entry struct {
	mu  sync.RWMutex
	loc *affinity.Location
}

type Option func(*World)

func WithClock(now func() time.Time) Option {
	return func(w *World) { w.now = now }
}

func WithRegistry(r *affinity.Registry) Option {
	return func(w *World) { w.registry = r }
}

func New(cfg *config.AffinityConfig, opts ...Option) (*World, error) {
	if cfg == nil {
		cfg = config.DefaultAffinityConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		cfg:       cfg,
		params:    cfg.Params(config.KindLocation),
		now:       time.Now,
		locations: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.registry == nil {
		w.registry = affinity.NewRegistry(affinity.BuiltinAffordanceTypes...)
	}
	return w, nil
}

func (w *World) Config() *config.AffinityConfig { return w.cfg }

func (w *World) Params() affinity.Params { return w.params }

func (w *World) Registry() *affinity.Registry { return w.registry }

func (w *World) Now() time.Time { return w.now() }

// AddLocation seeds a location from its static definition.
func (w *World) AddLocation(def affinity.Definition) error {
	if strings.TrimSpace(def.ID) == "" {
		return fmt.Errorf("%w: location id is required", affinity.ErrInvalidArgument)
	}
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("%w: location %q name is required", affinity.ErrInvalidArgument, def.ID)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.locations[def.ID]; exists {
		return fmt.Errorf("%w: duplicate location id %q", affinity.ErrInvalidArgument, def.ID)
	}
	loc := affinity.NewLocation(def)
	loc.LastTick = w.now()
	w.locations[def.ID] = &entry{loc: loc}
	for _, aff := range def.Affordances {
		w.registry.Register(aff.Type)
	}
	return nil
}

func (w *World) ListLocations() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.locations))
	for id := range w.locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *World) get(id string) (*entry, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.locations[id]
	if !ok {
		return nil, fmt.Errorf("%w: location %q", affinity.ErrNotFound, id)
	}
	return e, nil
}

// read runs fn under the location's read lock.
func (w *World) read(id string, fn func(loc *affinity.Location) error) error {
	e, err := w.get(id)
	if err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.loc)
}

// write runs fn under the location's write lock.
func (w *World) write(id string, fn func(loc *affinity.Location) error) error {
	e, err := w.get(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.loc)
}

func (w *World) active(aff affinity.AffordanceConfig) bool {
	return w.registry.Active(aff)
}

func (w *World) SetAffordanceEnabled(affordanceType string, enabled bool) error {
	return w.registry.SetEnabled(affordanceType, enabled)
}

func (w *World) AffordanceRegistry() map[string]bool {
	return w.registry.Snapshot()
}
