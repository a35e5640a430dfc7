package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"evenflow/internal/store"
)

func (c *Client) AppendEvent(ctx context.Context, ev store.EventRow) error {
	if ev.ID == uuid.Nil {
		ev.ID = store.NewEventID()
	}
	_, err := c.pool.Exec(ctx, `
INSERT INTO events (id, location_id, event_type, actor_id, actor_tags, intensity, occurred_at, affinity_before, affinity_after, triggered)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`,
		ev.ID,
		ev.LocationID,
		ev.EventType,
		ev.ActorID,
		nonNil(ev.ActorTags),
		ev.Intensity,
		ev.OccurredAt,
		ev.AffinityBefore,
		ev.AffinityAfter,
		nonNil(ev.Triggered),
	)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

func (c *Client) ListEvents(ctx context.Context, locationID string, limit int) ([]store.EventRow, error) {
	query := `
SELECT id, location_id, event_type, actor_id, actor_tags, intensity, occurred_at, affinity_before, affinity_after, triggered
FROM events
WHERE ($1 = '' OR location_id = $1)
ORDER BY occurred_at DESC, id DESC
LIMIT $2`
	rows, err := c.pool.Query(ctx, query, locationID, store.LimitOrDefault(limit))
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	events := []store.EventRow{}
	for rows.Next() {
		var ev store.EventRow
		if err := rows.Scan(
			&ev.ID,
			&ev.LocationID,
			&ev.EventType,
			&ev.ActorID,
			&ev.ActorTags,
			&ev.Intensity,
			&ev.OccurredAt,
			&ev.AffinityBefore,
			&ev.AffinityAfter,
			&ev.Triggered,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		ev.OccurredAt = ev.OccurredAt.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
