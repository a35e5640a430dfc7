package affinity

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDecayedValue_HalfLifeLaw(t *testing.T) {
	rec := TraceRecord{Accumulated: 0.8, LastUpdated: epoch, EventCount: 1}
	halfLife := HalfLifeSeconds(30)

	at, err := DecayedValue(rec, halfLife, epoch)
	require.NoError(t, err)
	assert.Equal(t, 0.8, at, "no elapsed time must return accumulated exactly")

	half, err := DecayedValue(rec, halfLife, epoch.Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.InDelta(t, 0.4, half, 1e-9)

	prev := at
	for days := 1; days <= 120; days += 7 {
		v, err := DecayedValue(rec, halfLife, epoch.Add(time.Duration(days)*24*time.Hour))
		require.NoError(t, err)
		assert.LessOrEqual(t, v, prev)
		assert.GreaterOrEqual(t, v, 0.0)
		prev = v
	}
}

func TestDecayedValue_ScarIsExempt(t *testing.T) {
	rec := TraceRecord{Accumulated: 2.5, LastUpdated: epoch, IsScar: true}
	for _, d := range []time.Duration{0, time.Hour, 24 * time.Hour * 365 * 10} {
		v, err := DecayedValue(rec, 60, epoch.Add(d))
		require.NoError(t, err)
		assert.Equal(t, 2.5, v)
	}
}

func TestDecayedValue_ClockBeforeLastUpdate(t *testing.T) {
	rec := TraceRecord{Accumulated: 1.2, LastUpdated: epoch}
	v, err := DecayedValue(rec, 100, epoch.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1.2, v)
}

func TestDecayedValue_RejectsBadHalfLife(t *testing.T) {
	rec := TraceRecord{Accumulated: 1, LastUpdated: epoch}
	for _, hl := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := DecayedValue(rec, hl, epoch.Add(time.Hour))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfiguration))
	}
}

func TestDecayedValue_NeverNegative(t *testing.T) {
	rec := TraceRecord{Accumulated: -3, LastUpdated: epoch}
	v, err := DecayedValue(rec, 10, epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}
