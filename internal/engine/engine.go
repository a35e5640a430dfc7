// Package engine runs a world against an optional store: it journals
// logged events, checkpoints location state and drives the world tick.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"evenflow/internal/affinity"
	"evenflow/internal/store"
	"evenflow/internal/world"
)

var ErrNoStore = errors.New("no store configured")

type Engine struct {
	World  *world.World
	Store  store.Store
	Logger *slog.Logger

	tracer   trace.Tracer
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New wraps w. st may be nil, in which case nothing is persisted.
func New(w *world.World, st store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		World:  w,
		Store:  st,
		Logger: logger,
		tracer: otel.Tracer("evenflow/engine"),
		stopCh: make(chan struct{}),
	}
}

// Restore loads stored snapshots into already defined locations. Snapshots
// for locations no longer defined are skipped.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	if e.Store == nil {
		return 0, nil
	}
	snaps, err := e.Store.LoadSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading snapshots: %w", err)
	}
	restored := 0
	for _, s := range snaps {
		snap, err := fromStoreSnapshot(s)
		if err != nil {
			return restored, fmt.Errorf("decoding snapshot %s: %w", s.LocationID, err)
		}
		if err := e.World.Restore(snap); err != nil {
			if errors.Is(err, affinity.ErrNotFound) {
				e.Logger.Warn("skipping snapshot for undefined location", "location", s.LocationID)
				continue
			}
			return restored, fmt.Errorf("restoring %s: %w", s.LocationID, err)
		}
		restored++
	}
	return restored, nil
}

// LogEvent commits ev to the world and then journals it. A persistence
// failure is logged; the in-memory outcome stands and the next checkpoint
// saves the location again.
func (e *Engine) LogEvent(ctx context.Context, ev affinity.Event) (*world.EventOutcome, error) {
	ctx, span := e.tracer.Start(ctx, "engine.LogEvent", trace.WithAttributes(
		attribute.String("evenflow.location_id", ev.LocationID),
		attribute.String("evenflow.event_type", ev.Type),
	))
	defer span.End()

	out, err := e.World.LogEvent(ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("evenflow.affinity_after", out.AffinityAfter.Total),
		attribute.String("evenflow.label", out.AffinityAfter.Label.String()),
		attribute.Int("evenflow.triggered", len(out.Triggered)),
	)

	e.Logger.Debug("event logged",
		"location", ev.LocationID,
		"type", out.Event.Type,
		"actor", out.Event.ActorID,
		"before", out.AffinityBefore.Total,
		"after", out.AffinityAfter.Total,
	)
	if e.Store == nil {
		return out, nil
	}

	if err := e.Store.AppendEvent(ctx, journalRow(out)); err != nil {
		span.RecordError(err)
		e.Logger.Error("journaling event failed", "location", ev.LocationID, "error", err)
	}
	if err := e.save(ctx, ev.LocationID); err != nil {
		span.RecordError(err)
		e.Logger.Error("saving snapshot failed", "location", ev.LocationID, "error", err)
	}
	return out, nil
}

// Events lists journaled events, newest first.
func (e *Engine) Events(ctx context.Context, locationID string, limit int) ([]store.EventRow, error) {
	if e.Store == nil {
		return nil, ErrNoStore
	}
	if locationID != "" {
		if _, err := e.World.Snapshot(locationID); err != nil {
			return nil, err
		}
	}
	return e.Store.ListEvents(ctx, locationID, limit)
}

// Checkpoint saves every location and returns how many were written.
func (e *Engine) Checkpoint(ctx context.Context) (int, error) {
	if e.Store == nil {
		return 0, nil
	}
	ctx, span := e.tracer.Start(ctx, "engine.Checkpoint")
	defer span.End()

	saved := 0
	for _, id := range e.World.ListLocations() {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		if err := e.save(ctx, id); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return saved, err
		}
		saved++
	}
	span.SetAttributes(attribute.Int("evenflow.locations", saved))
	return saved, nil
}

// Tick runs one world tick and checkpoints the result.
func (e *Engine) Tick(ctx context.Context) (world.TickReport, error) {
	report, err := e.World.Tick()
	if err != nil {
		return report, err
	}
	if _, err := e.Checkpoint(ctx); err != nil {
		return report, fmt.Errorf("checkpoint: %w", err)
	}
	return report, nil
}

// StartTicker ticks the world every interval until Stop is called.
func (e *Engine) StartTicker(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				report, err := e.Tick(context.Background())
				if err != nil {
					e.Logger.Error("world tick failed", "error", err)
					continue
				}
				if report.Pruned > 0 {
					e.Logger.Info("world tick", "locations", report.Locations, "pruned", report.Pruned)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the ticker. It is safe to call more than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func (e *Engine) save(ctx context.Context, locationID string) error {
	snap, err := e.World.Snapshot(locationID)
	if err != nil {
		return err
	}
	if err := e.Store.SaveSnapshot(ctx, toStoreSnapshot(snap, e.World.Now())); err != nil {
		return fmt.Errorf("saving %s: %w", locationID, err)
	}
	return nil
}

func journalRow(out *world.EventOutcome) store.EventRow {
	triggered := make([]string, 0, len(out.Triggered))
	for _, t := range out.Triggered {
		triggered = append(triggered, t.Type)
	}
	return store.EventRow{
		ID:             store.NewEventID(),
		LocationID:     out.Event.LocationID,
		EventType:      out.Event.Type,
		ActorID:        out.Event.ActorID,
		ActorTags:      out.Event.ActorTags,
		Intensity:      out.Event.Intensity,
		OccurredAt:     out.At,
		AffinityBefore: out.AffinityBefore.Total,
		AffinityAfter:  out.AffinityAfter.Total,
		Triggered:      triggered,
	}
}

func toStoreSnapshot(snap *world.LocationSnapshot, savedAt time.Time) store.Snapshot {
	traces := make([]store.TraceRow, 0, len(snap.Traces))
	for _, t := range snap.Traces {
		traces = append(traces, store.TraceRow{
			Channel:     t.Channel.String(),
			Subject:     t.Subject,
			EventType:   t.EventType,
			Accumulated: t.Accumulated,
			LastUpdated: t.LastUpdated,
			EventCount:  t.EventCount,
			IsScar:      t.IsScar,
		})
	}
	cooldowns := make([]store.CooldownRow, 0, len(snap.Cooldowns))
	for affType, until := range snap.Cooldowns {
		cooldowns = append(cooldowns, store.CooldownRow{AffordanceType: affType, Until: until})
	}
	sort.Slice(cooldowns, func(i, j int) bool {
		return cooldowns[i].AffordanceType < cooldowns[j].AffordanceType
	})
	return store.Snapshot{
		LocationID: snap.LocationID,
		Saturation: snap.Saturation,
		Traces:     traces,
		Cooldowns:  cooldowns,
		LastTick:   snap.LastTick,
		SavedAt:    savedAt,
	}
}

func fromStoreSnapshot(s store.Snapshot) (*world.LocationSnapshot, error) {
	traces := make([]world.TraceInfo, 0, len(s.Traces))
	for _, t := range s.Traces {
		c, err := affinity.ParseChannel(t.Channel)
		if err != nil {
			return nil, err
		}
		traces = append(traces, world.TraceInfo{
			LocationID:  s.LocationID,
			Channel:     c,
			Subject:     t.Subject,
			EventType:   t.EventType,
			Accumulated: t.Accumulated,
			LastUpdated: t.LastUpdated,
			EventCount:  t.EventCount,
			IsScar:      t.IsScar,
		})
	}
	cooldowns := make(map[string]time.Time, len(s.Cooldowns))
	for _, cd := range s.Cooldowns {
		cooldowns[cd.AffordanceType] = cd.Until
	}
	return &world.LocationSnapshot{
		LocationID: s.LocationID,
		Saturation: s.Saturation,
		Traces:     traces,
		Cooldowns:  cooldowns,
		LastTick:   s.LastTick,
	}, nil
}
