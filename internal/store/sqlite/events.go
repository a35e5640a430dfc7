package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"evenflow/internal/store"
)

type eventRow struct {
	ID             string  `db:"id"`
	LocationID     string  `db:"location_id"`
	EventType      string  `db:"event_type"`
	ActorID        string  `db:"actor_id"`
	ActorTags      string  `db:"actor_tags"`
	Intensity      float64 `db:"intensity"`
	OccurredAt     int64   `db:"occurred_at"`
	AffinityBefore float64 `db:"affinity_before"`
	AffinityAfter  float64 `db:"affinity_after"`
	Triggered      string  `db:"triggered"`
}

func (c *Client) AppendEvent(ctx context.Context, ev store.EventRow) error {
	if ev.ID == uuid.Nil {
		ev.ID = store.NewEventID()
	}
	tagsJSON, err := json.Marshal(nonNil(ev.ActorTags))
	if err != nil {
		return fmt.Errorf("marshaling actor tags: %w", err)
	}
	triggeredJSON, err := json.Marshal(nonNil(ev.Triggered))
	if err != nil {
		return fmt.Errorf("marshaling triggered affordances: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
	INSERT INTO events (id, location_id, event_type, actor_id, actor_tags, intensity, occurred_at, affinity_before, affinity_after, triggered)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID.String(),
		ev.LocationID,
		ev.EventType,
		ev.ActorID,
		string(tagsJSON),
		ev.Intensity,
		toNanos(ev.OccurredAt),
		ev.AffinityBefore,
		ev.AffinityAfter,
		string(triggeredJSON),
	)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent journal rows, newest first. An empty
// locationID lists every location.
func (c *Client) ListEvents(ctx context.Context, locationID string, limit int) ([]store.EventRow, error) {
	query := `SELECT id, location_id, event_type, actor_id, actor_tags, intensity, occurred_at, affinity_before, affinity_after, triggered
	FROM events`
	args := []any{}
	if locationID != "" {
		query += " WHERE location_id = ?"
		args = append(args, locationID)
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT ?"
	args = append(args, store.LimitOrDefault(limit))

	var rows []eventRow
	if err := c.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	events := make([]store.EventRow, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("parsing event id %q: %w", r.ID, err)
		}
		ev := store.EventRow{
			ID:             id,
			LocationID:     r.LocationID,
			EventType:      r.EventType,
			ActorID:        r.ActorID,
			Intensity:      r.Intensity,
			OccurredAt:     fromNanos(r.OccurredAt),
			AffinityBefore: r.AffinityBefore,
			AffinityAfter:  r.AffinityAfter,
		}
		if err := json.Unmarshal([]byte(r.ActorTags), &ev.ActorTags); err != nil {
			return nil, fmt.Errorf("unmarshaling actor tags: %w", err)
		}
		if err := json.Unmarshal([]byte(r.Triggered), &ev.Triggered); err != nil {
			return nil, fmt.Errorf("unmarshaling triggered affordances: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
