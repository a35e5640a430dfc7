package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS locations (
    location_id         TEXT PRIMARY KEY,
    saturation_personal DOUBLE PRECISION NOT NULL DEFAULT 0,
    saturation_group    DOUBLE PRECISION NOT NULL DEFAULT 0,
    saturation_behavior DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_tick           TIMESTAMPTZ,
    saved_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS traces (
    location_id  TEXT NOT NULL REFERENCES locations(location_id) ON DELETE CASCADE,
    channel      TEXT NOT NULL,
    subject      TEXT NOT NULL DEFAULT '',
    event_type   TEXT NOT NULL,
    accumulated  DOUBLE PRECISION NOT NULL,
    last_updated TIMESTAMPTZ NOT NULL,
    event_count  INTEGER NOT NULL DEFAULT 0,
    is_scar      BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (location_id, channel, subject, event_type)
);

CREATE TABLE IF NOT EXISTS cooldowns (
    location_id     TEXT NOT NULL REFERENCES locations(location_id) ON DELETE CASCADE,
    affordance_type TEXT NOT NULL,
    until_at        TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (location_id, affordance_type)
);

CREATE TABLE IF NOT EXISTS events (
    id              UUID PRIMARY KEY,
    location_id     TEXT NOT NULL,
    event_type      TEXT NOT NULL,
    actor_id        TEXT NOT NULL DEFAULT '',
    actor_tags      TEXT[] NOT NULL DEFAULT '{}',
    intensity       DOUBLE PRECISION NOT NULL,
    occurred_at     TIMESTAMPTZ NOT NULL,
    affinity_before DOUBLE PRECISION NOT NULL,
    affinity_after  DOUBLE PRECISION NOT NULL,
    triggered       TEXT[] NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_traces_location ON traces (location_id);
CREATE INDEX IF NOT EXISTS idx_events_location_time ON events (location_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_time ON events (occurred_at DESC);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
