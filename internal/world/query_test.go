package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evenflow/internal/affinity"
)

func seedTraces(t *testing.T, w *World, id string, traces ...TraceInfo) {
	t.Helper()
	require.NoError(t, w.Restore(&LocationSnapshot{LocationID: id, Traces: traces}))
}

func TestQueryTraces_OrderAndThreshold(t *testing.T) {
	w, clock := newTestWorld(t)
	now := clock.Now()
	seedTraces(t, w, "whispering_woods",
		TraceInfo{Channel: affinity.Behavior, EventType: "harm.low", Accumulated: 0.1, LastUpdated: now, EventCount: 1},
		TraceInfo{Channel: affinity.Behavior, EventType: "harm.high", Accumulated: 0.9, LastUpdated: now, EventCount: 1},
		TraceInfo{Channel: affinity.Behavior, EventType: "harm.mid", Accumulated: 0.4, LastUpdated: now, EventCount: 1},
	)

	got, err := w.QueryTraces(TraceFilter{MinIntensity: 0.2, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "harm.high", got[0].Key)
	assert.Equal(t, 0.9, got[0].DecayedValue)
	assert.Equal(t, "harm.mid", got[1].Key)

	again, err := w.QueryTraces(TraceFilter{MinIntensity: 0.2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestQueryTraces_LimitAppliedAfterSort(t *testing.T) {
	w, clock := newTestWorld(t)
	require.NoError(t, w.AddLocation(affinity.Definition{ID: "abbey", Name: "Abbey"}))
	now := clock.Now()
	seedTraces(t, w, "abbey",
		TraceInfo{Channel: affinity.Behavior, EventType: "a", Accumulated: 0.2, LastUpdated: now},
		TraceInfo{Channel: affinity.Behavior, EventType: "b", Accumulated: 0.7, LastUpdated: now},
	)
	seedTraces(t, w, "whispering_woods",
		TraceInfo{Channel: affinity.Behavior, EventType: "c", Accumulated: 0.5, LastUpdated: now},
		TraceInfo{Channel: affinity.Behavior, EventType: "d", Accumulated: 0.9, LastUpdated: now},
	)

	got, err := w.QueryTraces(TraceFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].Key)
	assert.Equal(t, "b", got[1].Key)
}

func TestQueryTraces_Filters(t *testing.T) {
	w, clock := newTestWorld(t)
	now := clock.Now()
	seedTraces(t, w, "whispering_woods",
		TraceInfo{Channel: affinity.Personal, Subject: "alice", EventType: "harm", Accumulated: 0.5, LastUpdated: now},
		TraceInfo{Channel: affinity.Personal, Subject: "bob", EventType: "harm", Accumulated: 0.6, LastUpdated: now},
		TraceInfo{Channel: affinity.Group, Subject: "outsider", EventType: "harm", Accumulated: 0.3, LastUpdated: now},
		TraceInfo{Channel: affinity.Behavior, EventType: "harm", Accumulated: 0.8, LastUpdated: now},
		TraceInfo{Channel: affinity.Behavior, EventType: "offer", Accumulated: 0.8, LastUpdated: now},
	)

	t.Run("actor narrows personal only", func(t *testing.T) {
		got, err := w.QueryTraces(TraceFilter{ActorID: "alice"})
		require.NoError(t, err)
		require.Len(t, got, 4)
		for _, tr := range got {
			if tr.Channel == affinity.Personal {
				assert.Equal(t, "alice", tr.Subject)
			}
		}
	})

	t.Run("channel", func(t *testing.T) {
		got, err := w.QueryTraces(TraceFilter{Channel: "group"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "(outsider, harm)", got[0].Key)
	})

	t.Run("event type", func(t *testing.T) {
		got, err := w.QueryTraces(TraceFilter{EventType: "offer"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, affinity.Behavior, got[0].Channel)
	})

	t.Run("ties are deterministic", func(t *testing.T) {
		got, err := w.QueryTraces(TraceFilter{Channel: "behavior"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "harm", got[0].Key)
		assert.Equal(t, "offer", got[1].Key)
	})

	t.Run("bad channel", func(t *testing.T) {
		_, err := w.QueryTraces(TraceFilter{Channel: "ambient"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, affinity.ErrInvalidArgument))
		assert.Contains(t, err.Error(), "personal, group, behavior")
	})

	t.Run("default limit", func(t *testing.T) {
		got, err := w.QueryTraces(TraceFilter{Limit: -1})
		require.NoError(t, err)
		assert.Len(t, got, 5)
	})
}
