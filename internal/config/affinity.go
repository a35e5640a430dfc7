package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"evenflow/internal/affinity"
)

type EntityKind string

const (
	KindLocation EntityKind = "location"
	KindArtifact EntityKind = "artifact"
	KindNPC      EntityKind = "npc"
)

// HalfLives are expressed in days per entity kind and channel.
type HalfLives struct {
	Location affinity.ChannelValues `yaml:"location" json:"location"`
	Artifact affinity.ChannelValues `yaml:"artifact" json:"artifact"`
	NPC      affinity.ChannelValues `yaml:"npc" json:"npc"`
}

type AffinityConfig struct {
	HalfLives          HalfLives              `yaml:"half_lives" json:"half_lives"`
	ChannelWeights     affinity.ChannelValues `yaml:"channel_weights" json:"channel_weights"`
	SaturationCapacity affinity.ChannelValues `yaml:"saturation_capacity" json:"saturation_capacity"`
	Thresholds         affinity.Thresholds    `yaml:"thresholds" json:"thresholds"`
	Scar               affinity.ScarPolicy    `yaml:"scar" json:"scar"`
	WorldTickInterval  int                    `yaml:"world_tick_interval" json:"world_tick_interval"`
	AffinityScale      float64                `yaml:"affinity_scale" json:"affinity_scale"`
	PruneBelow         float64                `yaml:"prune_below" json:"prune_below"`
}

func DefaultAffinityConfig() *AffinityConfig {
	return &AffinityConfig{
		HalfLives: HalfLives{
			Location: affinity.ChannelValues{Personal: 30, Group: 60, Behavior: 90},
			Artifact: affinity.ChannelValues{Personal: 60, Group: 120, Behavior: 180},
			NPC:      affinity.ChannelValues{Personal: 14, Group: 30, Behavior: 60},
		},
		ChannelWeights:     affinity.ChannelValues{Personal: 0.5, Group: 0.3, Behavior: 0.2},
		SaturationCapacity: affinity.ChannelValues{Personal: 10, Group: 10, Behavior: 20},
		Thresholds:         affinity.Thresholds{Hostile: -0.5, Wary: -0.15, Warm: 0.15, Favorable: 0.5},
		Scar:               affinity.ScarPolicy{Accumulated: 5},
		WorldTickInterval:  60,
		AffinityScale:      100,
		PruneBelow:         0.001,
	}
}

// LoadAffinityConfig overlays the file at path on the defaults. An empty
// path yields the defaults.
func LoadAffinityConfig(path string) (*AffinityConfig, error) {
	cfg := DefaultAffinityConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading affinity config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("loading affinity config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("loading affinity config: %w", err)
	}
	return cfg, nil
}

func (c *AffinityConfig) Validate() error {
	for _, kind := range []EntityKind{KindLocation, KindArtifact, KindNPC} {
		if err := c.Params(kind).Validate(); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
	}
	if c.WorldTickInterval <= 0 {
		return fmt.Errorf("%w: world_tick_interval must be positive, got %d", affinity.ErrConfiguration, c.WorldTickInterval)
	}
	if !(c.AffinityScale > 0) {
		return fmt.Errorf("%w: affinity_scale must be positive", affinity.ErrConfiguration)
	}
	if c.PruneBelow < 0 {
		return fmt.Errorf("%w: prune_below must be non-negative", affinity.ErrConfiguration)
	}
	return nil
}

// Params resolves the scoring parameters for one entity kind, converting
// half-lives from days to seconds.
func (c *AffinityConfig) Params(kind EntityKind) affinity.Params {
	var days affinity.ChannelValues
	switch kind {
	case KindLocation:
		days = c.HalfLives.Location
	case KindArtifact:
		days = c.HalfLives.Artifact
	case KindNPC:
		days = c.HalfLives.NPC
	default:
		panic(fmt.Sprintf("config: unknown entity kind %q", kind))
	}
	return affinity.Params{
		HalfLife: affinity.ChannelValues{
			Personal: affinity.HalfLifeSeconds(days.Personal),
			Group:    affinity.HalfLifeSeconds(days.Group),
			Behavior: affinity.HalfLifeSeconds(days.Behavior),
		},
		Weights:    c.ChannelWeights,
		Capacity:   c.SaturationCapacity,
		Thresholds: c.Thresholds,
		Scar:       c.Scar,
		Scale:      c.AffinityScale,
	}
}
