package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"evenflow/internal/affinity"
	"evenflow/internal/store"
)

func (c *Client) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx, `
INSERT INTO locations (location_id, saturation_personal, saturation_group, saturation_behavior, last_tick, saved_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (location_id) DO UPDATE SET
    saturation_personal = EXCLUDED.saturation_personal,
    saturation_group = EXCLUDED.saturation_group,
    saturation_behavior = EXCLUDED.saturation_behavior,
    last_tick = EXCLUDED.last_tick,
    saved_at = EXCLUDED.saved_at
`,
		snap.LocationID,
		snap.Saturation.Personal,
		snap.Saturation.Group,
		snap.Saturation.Behavior,
		nullTime(snap.LastTick),
		savedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting location %s: %w", snap.LocationID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM traces WHERE location_id = $1", snap.LocationID); err != nil {
		return fmt.Errorf("clearing traces: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM cooldowns WHERE location_id = $1", snap.LocationID); err != nil {
		return fmt.Errorf("clearing cooldowns: %w", err)
	}

	if len(snap.Traces) > 0 {
		rows := make([][]any, 0, len(snap.Traces))
		for _, t := range snap.Traces {
			rows = append(rows, []any{snap.LocationID, t.Channel, t.Subject, t.EventType, t.Accumulated, t.LastUpdated, t.EventCount, t.IsScar})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"traces"},
			[]string{"location_id", "channel", "subject", "event_type", "accumulated", "last_updated", "event_count", "is_scar"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copying traces: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, cd := range snap.Cooldowns {
		batch.Queue("INSERT INTO cooldowns (location_id, affordance_type, until_at) VALUES ($1, $2, $3)",
			snap.LocationID, cd.AffordanceType, cd.Until)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting cooldowns: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

func (c *Client) LoadSnapshots(ctx context.Context) ([]store.Snapshot, error) {
	rows, err := c.pool.Query(ctx, `
SELECT location_id, saturation_personal, saturation_group, saturation_behavior, last_tick, saved_at
FROM locations ORDER BY location_id`)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	var snaps []store.Snapshot
	for rows.Next() {
		var (
			snap     store.Snapshot
			sat      affinity.ChannelValues
			lastTick *time.Time
		)
		if err := rows.Scan(&snap.LocationID, &sat.Personal, &sat.Group, &sat.Behavior, &lastTick, &snap.SavedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		snap.Saturation = sat
		if lastTick != nil {
			snap.LastTick = lastTick.UTC()
		}
		snap.Traces = []store.TraceRow{}
		snap.Cooldowns = []store.CooldownRow{}
		snaps = append(snaps, snap)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}

	index := make(map[string]int, len(snaps))
	for i, s := range snaps {
		index[s.LocationID] = i
	}

	traceRows, err := c.pool.Query(ctx, `
SELECT location_id, channel, subject, event_type, accumulated, last_updated, event_count, is_scar
FROM traces ORDER BY location_id, channel, subject, event_type`)
	if err != nil {
		return nil, fmt.Errorf("listing traces: %w", err)
	}
	type locatedTrace struct {
		LocationID string `db:"location_id"`
		store.TraceRow
	}
	traces, err := pgx.CollectRows(traceRows, pgx.RowToStructByName[locatedTrace])
	if err != nil {
		return nil, fmt.Errorf("scanning traces: %w", err)
	}
	for _, t := range traces {
		i, ok := index[t.LocationID]
		if !ok {
			continue
		}
		t.TraceRow.LastUpdated = t.TraceRow.LastUpdated.UTC()
		snaps[i].Traces = append(snaps[i].Traces, t.TraceRow)
	}

	cdRows, err := c.pool.Query(ctx, `
SELECT location_id, affordance_type, until_at FROM cooldowns ORDER BY location_id, affordance_type`)
	if err != nil {
		return nil, fmt.Errorf("listing cooldowns: %w", err)
	}
	defer cdRows.Close()
	for cdRows.Next() {
		var id string
		var cd store.CooldownRow
		if err := cdRows.Scan(&id, &cd.AffordanceType, &cd.Until); err != nil {
			return nil, fmt.Errorf("scanning cooldown: %w", err)
		}
		if i, ok := index[id]; ok {
			cd.Until = cd.Until.UTC()
			snaps[i].Cooldowns = append(snaps[i].Cooldowns, cd)
		}
	}
	if err := cdRows.Err(); err != nil {
		return nil, fmt.Errorf("listing cooldowns: %w", err)
	}
	return snaps, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
