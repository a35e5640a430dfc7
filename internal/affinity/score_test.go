package affinity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Params {
	return Params{
		HalfLife:   ChannelValues{Personal: HalfLifeSeconds(30), Group: HalfLifeSeconds(60), Behavior: HalfLifeSeconds(90)},
		Weights:    ChannelValues{Personal: 0.5, Group: 0.3, Behavior: 0.2},
		Capacity:   ChannelValues{Personal: 10, Group: 10, Behavior: 20},
		Thresholds: Thresholds{Hostile: -0.5, Wary: -0.15, Warm: 0.15, Favorable: 0.5},
		Scale:      100,
	}
}

func TestValuationResolve(t *testing.T) {
	profile := ValuationProfile{"harm": -0.3, "harm.fire": -0.8}

	tests := []struct {
		eventType string
		weight    float64
		match     MatchType
		category  string
	}{
		{"harm.fire", -0.8, MatchExact, ""},
		{"harm.sword", -0.3, MatchCategory, "harm"},
		{"offer.gift", 0, MatchDefault, ""},
		{"harm", -0.3, MatchExact, ""},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			v := profile.Resolve(tt.eventType)
			assert.Equal(t, tt.weight, v.Weight)
			assert.Equal(t, tt.match, v.MatchType)
			assert.Equal(t, tt.category, v.Category)
			assert.NotEmpty(t, v.Explanation)
		})
	}
}

func TestCategory(t *testing.T) {
	assert.Equal(t, "harm", Category("harm.fire.arson"))
	assert.Equal(t, "rest", Category("rest"))
	assert.Equal(t, "", Category(".odd"))
}

func TestThresholdsLabel(t *testing.T) {
	th := Thresholds{Hostile: -0.5, Wary: -0.15, Warm: 0.15, Favorable: 0.5}
	cases := map[float64]Label{
		-2:    Hostile,
		-0.5:  Hostile,
		-0.3:  Wary,
		-0.15: Wary,
		0:     Neutral,
		0.15:  Warm,
		0.49:  Warm,
		0.5:   Favorable,
		3:     Favorable,
	}
	for total, want := range cases {
		assert.Equal(t, want, th.Label(total), "total %v", total)
	}

	prev := Hostile
	for total := -1.0; total <= 1.0; total += 0.01 {
		l := th.Label(total)
		assert.GreaterOrEqual(t, int(l), int(prev))
		prev = l
	}
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, Thresholds{Hostile: -1, Wary: -0.5, Warm: 0.5, Favorable: 1}.Validate())
	err := Thresholds{Hostile: -0.1, Wary: -0.5, Warm: 0.5, Favorable: 1}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestParseChannel(t *testing.T) {
	for _, c := range Channels {
		parsed, err := ParseChannel(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}
	_, err := ParseChannel("ambient")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), "personal, group, behavior")
}

func TestLabelText(t *testing.T) {
	var l Label
	require.NoError(t, l.UnmarshalText([]byte("Warm")))
	assert.Equal(t, Warm, l)

	text, err := Favorable.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "favorable", string(text))

	assert.True(t, errors.Is(l.UnmarshalText([]byte("furious")), ErrInvalidArgument))
}

func TestComputeAffinity(t *testing.T) {
	p := testParams()
	loc := NewLocation(Definition{
		ID:        "grove",
		Name:      "Grove",
		Valuation: ValuationProfile{"harm": -0.6, "offer": 0.4},
	})
	loc.Personal[PersonalKey{"alice", "harm.fire"}] = TraceRecord{Accumulated: 1, LastUpdated: epoch, EventCount: 1}
	loc.Personal[PersonalKey{"bob", "offer.gift"}] = TraceRecord{Accumulated: 1, LastUpdated: epoch, EventCount: 1}
	loc.Group[GroupKey{"druids", "offer.gift"}] = TraceRecord{Accumulated: 0.5, LastUpdated: epoch, EventCount: 1}
	loc.Behavior["harm.fire"] = TraceRecord{Accumulated: 1, LastUpdated: epoch, EventCount: 1}

	score, err := ComputeAffinity(loc, "alice", []string{"druids"}, p, epoch)
	require.NoError(t, err)
	assert.InDelta(t, -0.6, score.Personal, 1e-9)
	assert.InDelta(t, 0.2, score.Group, 1e-9)
	assert.InDelta(t, -0.6, score.Behavior, 1e-9)
	assert.InDelta(t, -0.3+0.06-0.12, score.Total, 1e-9)
	assert.InDelta(t, score.Total*100, score.Scaled, 1e-9)
	assert.Equal(t, Wary, score.Label)

	stranger, err := ComputeAffinity(loc, "carol", nil, p, epoch)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stranger.Personal)
	assert.Equal(t, 0.0, stranger.Group)
	assert.InDelta(t, -0.6, stranger.Behavior, 1e-9)
}

func TestComputeAffinity_TrimsTags(t *testing.T) {
	p := testParams()
	loc := NewLocation(Definition{ID: "grove", Name: "Grove", Valuation: ValuationProfile{"offer": 0.4}})
	loc.Group[GroupKey{"pilgrim", "offer"}] = TraceRecord{Accumulated: 1, LastUpdated: epoch, EventCount: 1}

	padded, err := ComputeAffinity(loc, "dana", []string{" pilgrim", "pilgrim "}, p, epoch)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, padded.Group, 1e-9)

	plan, err := PlanEvent(loc, Event{Type: "offer", ActorID: "dana", ActorTags: []string{" pilgrim"}, LocationID: "grove", Intensity: 0.2}, p, epoch)
	require.NoError(t, err)
	predicted := plan.Rescore(padded, "dana", []string{" pilgrim"}, p)
	require.NoError(t, plan.Apply(loc))
	actual, err := ComputeAffinity(loc, "dana", []string{" pilgrim"}, p, epoch)
	require.NoError(t, err)
	assert.InDelta(t, actual.Group, predicted.Group, 1e-9)
}

func TestComputeAffinity_BadHalfLife(t *testing.T) {
	p := testParams()
	p.HalfLife.Group = 0
	loc := NewLocation(Definition{ID: "x", Name: "X"})
	loc.Group[GroupKey{"a", "b"}] = TraceRecord{Accumulated: 1, LastUpdated: epoch}
	_, err := ComputeAffinity(loc, "a", []string{"a"}, p, epoch)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, testParams().Validate())

	p := testParams()
	p.HalfLife.Behavior = -1
	assert.True(t, errors.Is(p.Validate(), ErrConfiguration))

	p = testParams()
	p.Weights.Group = -0.1
	assert.True(t, errors.Is(p.Validate(), ErrConfiguration))

	p = testParams()
	p.Capacity.Personal = 0
	assert.True(t, errors.Is(p.Validate(), ErrConfiguration))
}

func TestTriggers(t *testing.T) {
	affs := []AffordanceConfig{
		{Type: "pathing", Enabled: true, TellsHostile: []string{"the woods creak"}, TellsFavorable: []string{"the woods hum"}},
		{Type: "encounter_bias", Enabled: false, TellsHostile: []string{"eyes in the dark"}},
	}
	all := func(a AffordanceConfig) bool { return a.Enabled }

	triggered, hints := Triggers(Hostile, affs, all)
	assert.Equal(t, []string{"pathing"}, triggered)
	assert.Equal(t, []string{"the woods creak"}, hints)

	triggered, hints = Triggers(Favorable, affs, all)
	assert.Empty(t, triggered)
	assert.Equal(t, []string{"the woods hum"}, hints)

	triggered, hints = Triggers(Neutral, affs, all)
	assert.Empty(t, triggered)
	assert.Empty(t, hints)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(AffordancePathing)
	assert.True(t, r.IsEnabled(AffordancePathing))
	assert.False(t, r.IsEnabled("unknown"))

	require.NoError(t, r.SetEnabled(AffordancePathing, false))
	r.Register(AffordancePathing)
	assert.False(t, r.IsEnabled(AffordancePathing), "re-registering must not reset state")

	err := r.SetEnabled("unknown", true)
	assert.True(t, errors.Is(err, ErrNotFound))

	snap := r.Snapshot()
	snap[AffordancePathing] = true
	assert.False(t, r.IsEnabled(AffordancePathing))

	assert.False(t, r.Active(AffordanceConfig{Type: AffordancePathing, Enabled: true}))
}

func TestCooldownRemaining(t *testing.T) {
	loc := NewLocation(Definition{ID: "x", Name: "X"})
	_, ok := loc.CooldownRemaining("pathing", epoch)
	assert.False(t, ok)

	loc.Cooldowns["pathing"] = epoch.Add(10 * time.Minute)
	d, ok := loc.CooldownRemaining("pathing", epoch)
	assert.True(t, ok)
	assert.Equal(t, 10*time.Minute, d)

	d, ok = loc.CooldownRemaining("pathing", epoch.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, time.Duration(0), d)
}
