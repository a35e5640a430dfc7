package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"evenflow/internal/affinity"
)

// Store persists location state between runs and keeps an append-only
// journal of logged events.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	SaveSnapshot(ctx context.Context, snap Snapshot) error
	LoadSnapshots(ctx context.Context) ([]Snapshot, error)

	AppendEvent(ctx context.Context, ev EventRow) error
	ListEvents(ctx context.Context, locationID string, limit int) ([]EventRow, error)
}

// DefaultEventLimit caps ListEvents when limit is not positive.
const DefaultEventLimit = 50

type TraceRow struct {
	Channel     string    `db:"channel"`
	Subject     string    `db:"subject"`
	EventType   string    `db:"event_type"`
	Accumulated float64   `db:"accumulated"`
	LastUpdated time.Time `db:"last_updated"`
	EventCount  int       `db:"event_count"`
	IsScar      bool      `db:"is_scar"`
}

type CooldownRow struct {
	AffordanceType string    `db:"affordance_type"`
	Until          time.Time `db:"until_at"`
}

// Snapshot is the mutable state of one location. Static metadata is not
// stored.
type Snapshot struct {
	LocationID string
	Saturation affinity.ChannelValues
	Traces     []TraceRow
	Cooldowns  []CooldownRow
	LastTick   time.Time
	SavedAt    time.Time
}

type EventRow struct {
	ID             uuid.UUID `json:"id"`
	LocationID     string    `json:"location_id"`
	EventType      string    `json:"event_type"`
	ActorID        string    `json:"actor_id"`
	ActorTags      []string  `json:"actor_tags"`
	Intensity      float64   `json:"intensity"`
	OccurredAt     time.Time `json:"occurred_at"`
	AffinityBefore float64   `json:"affinity_before"`
	AffinityAfter  float64   `json:"affinity_after"`
	Triggered      []string  `json:"triggered"`
}

// NewEventID returns a time-ordered identifier for a journal row.
func NewEventID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func LimitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultEventLimit
	}
	return limit
}
