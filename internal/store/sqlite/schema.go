package sqlite

import (
	"context"
	"fmt"
	"strings"
)

const ddl = `
	CREATE TABLE IF NOT EXISTS locations (
		location_id         TEXT PRIMARY KEY,
		saturation_personal REAL NOT NULL DEFAULT 0,
		saturation_group    REAL NOT NULL DEFAULT 0,
		saturation_behavior REAL NOT NULL DEFAULT 0,
		last_tick           INTEGER NOT NULL DEFAULT 0,
		saved_at            INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS traces (
		location_id  TEXT NOT NULL REFERENCES locations(location_id) ON DELETE CASCADE,
		channel      TEXT NOT NULL,
		subject      TEXT NOT NULL DEFAULT '',
		event_type   TEXT NOT NULL,
		accumulated  REAL NOT NULL,
		last_updated INTEGER NOT NULL,
		event_count  INTEGER NOT NULL DEFAULT 0,
		is_scar      INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (location_id, channel, subject, event_type)
	);

	CREATE TABLE IF NOT EXISTS cooldowns (
		location_id     TEXT NOT NULL REFERENCES locations(location_id) ON DELETE CASCADE,
		affordance_type TEXT NOT NULL,
		until_at        INTEGER NOT NULL,
		PRIMARY KEY (location_id, affordance_type)
	);

	-- journal rows outlive snapshots, so no foreign key here
	CREATE TABLE IF NOT EXISTS events (
		id              TEXT PRIMARY KEY,
		location_id     TEXT NOT NULL,
		event_type      TEXT NOT NULL,
		actor_id        TEXT NOT NULL DEFAULT '',
		actor_tags      TEXT NOT NULL DEFAULT '[]',
		intensity       REAL NOT NULL,
		occurred_at     INTEGER NOT NULL,
		affinity_before REAL NOT NULL,
		affinity_after  REAL NOT NULL,
		triggered       TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_traces_location ON traces (location_id);
	CREATE INDEX IF NOT EXISTS idx_events_location_time ON events (location_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_events_time ON events (occurred_at);
	`

func (c *Client) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")

		if strings.HasSuffix(stripped, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}

	return statements
}
