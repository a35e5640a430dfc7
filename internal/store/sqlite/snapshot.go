package sqlite

import (
	"context"
	"fmt"

	"evenflow/internal/affinity"
	"evenflow/internal/store"
)

type locationRow struct {
	LocationID string  `db:"location_id"`
	Personal   float64 `db:"saturation_personal"`
	Group      float64 `db:"saturation_group"`
	Behavior   float64 `db:"saturation_behavior"`
	LastTick   int64   `db:"last_tick"`
	SavedAt    int64   `db:"saved_at"`
}

type traceRow struct {
	LocationID  string  `db:"location_id"`
	Channel     string  `db:"channel"`
	Subject     string  `db:"subject"`
	EventType   string  `db:"event_type"`
	Accumulated float64 `db:"accumulated"`
	LastUpdated int64   `db:"last_updated"`
	EventCount  int     `db:"event_count"`
	IsScar      int     `db:"is_scar"`
}

type cooldownRow struct {
	LocationID     string `db:"location_id"`
	AffordanceType string `db:"affordance_type"`
	Until          int64  `db:"until_at"`
}

// SaveSnapshot replaces everything stored for snap.LocationID in one
// transaction.
func (c *Client) SaveSnapshot(ctx context.Context, snap store.Snapshot) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO locations (location_id, saturation_personal, saturation_group, saturation_behavior, last_tick, saved_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (location_id) DO UPDATE SET
		saturation_personal = excluded.saturation_personal,
		saturation_group = excluded.saturation_group,
		saturation_behavior = excluded.saturation_behavior,
		last_tick = excluded.last_tick,
		saved_at = excluded.saved_at
	`,
		snap.LocationID,
		snap.Saturation.Personal,
		snap.Saturation.Group,
		snap.Saturation.Behavior,
		toNanos(snap.LastTick),
		toNanos(snap.SavedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting location %s: %w", snap.LocationID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM traces WHERE location_id = ?", snap.LocationID); err != nil {
		return fmt.Errorf("clearing traces: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cooldowns WHERE location_id = ?", snap.LocationID); err != nil {
		return fmt.Errorf("clearing cooldowns: %w", err)
	}

	if len(snap.Traces) > 0 {
		stmt, err := tx.PreparexContext(ctx, `INSERT INTO traces
			(location_id, channel, subject, event_type, accumulated, last_updated, event_count, is_scar)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing trace insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range snap.Traces {
			scar := 0
			if t.IsScar {
				scar = 1
			}
			if _, err := stmt.ExecContext(ctx, snap.LocationID, t.Channel, t.Subject, t.EventType,
				t.Accumulated, toNanos(t.LastUpdated), t.EventCount, scar); err != nil {
				return fmt.Errorf("inserting trace %s/%s/%s: %w", t.Channel, t.Subject, t.EventType, err)
			}
		}
	}

	for _, cd := range snap.Cooldowns {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO cooldowns (location_id, affordance_type, until_at) VALUES (?, ?, ?)",
			snap.LocationID, cd.AffordanceType, toNanos(cd.Until))
		if err != nil {
			return fmt.Errorf("inserting cooldown %s: %w", cd.AffordanceType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshots returns every stored location ordered by id.
func (c *Client) LoadSnapshots(ctx context.Context) ([]store.Snapshot, error) {
	var locations []locationRow
	if err := c.db.SelectContext(ctx, &locations,
		"SELECT location_id, saturation_personal, saturation_group, saturation_behavior, last_tick, saved_at FROM locations ORDER BY location_id"); err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}

	var traces []traceRow
	if err := c.db.SelectContext(ctx, &traces,
		`SELECT location_id, channel, subject, event_type, accumulated, last_updated, event_count, is_scar
		FROM traces ORDER BY location_id, channel, subject, event_type`); err != nil {
		return nil, fmt.Errorf("listing traces: %w", err)
	}

	var cooldowns []cooldownRow
	if err := c.db.SelectContext(ctx, &cooldowns,
		"SELECT location_id, affordance_type, until_at FROM cooldowns ORDER BY location_id, affordance_type"); err != nil {
		return nil, fmt.Errorf("listing cooldowns: %w", err)
	}

	byID := make(map[string]*store.Snapshot, len(locations))
	snaps := make([]store.Snapshot, len(locations))
	for i, l := range locations {
		snaps[i] = store.Snapshot{
			LocationID: l.LocationID,
			Saturation: affinity.ChannelValues{Personal: l.Personal, Group: l.Group, Behavior: l.Behavior},
			Traces:     []store.TraceRow{},
			Cooldowns:  []store.CooldownRow{},
			LastTick:   fromNanos(l.LastTick),
			SavedAt:    fromNanos(l.SavedAt),
		}
		byID[l.LocationID] = &snaps[i]
	}
	for _, t := range traces {
		snap, ok := byID[t.LocationID]
		if !ok {
			continue
		}
		snap.Traces = append(snap.Traces, store.TraceRow{
			Channel:     t.Channel,
			Subject:     t.Subject,
			EventType:   t.EventType,
			Accumulated: t.Accumulated,
			LastUpdated: fromNanos(t.LastUpdated),
			EventCount:  t.EventCount,
			IsScar:      t.IsScar != 0,
		})
	}
	for _, cd := range cooldowns {
		snap, ok := byID[cd.LocationID]
		if !ok {
			continue
		}
		snap.Cooldowns = append(snap.Cooldowns, store.CooldownRow{
			AffordanceType: cd.AffordanceType,
			Until:          fromNanos(cd.Until),
		})
	}
	return snaps, nil
}
