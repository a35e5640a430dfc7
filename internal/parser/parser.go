package parser

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"evenflow/internal/affinity"
)

const (
	DefaultSeverityClampHostile   = 0.5
	DefaultSeverityClampFavorable = -0.3
	DefaultCooldownSeconds        = 3600
)

type Document struct {
	Definition affinity.Definition
	SourceFile string
}

var (
	ErrInvalidYAML            = errors.New("invalid YAML in location definition")
	ErrMissingID              = errors.New("location definition missing required 'location_id' field")
	ErrMissingName            = errors.New("location definition missing required 'name' field")
	ErrMissingAffordanceType  = errors.New("affordance missing required 'type' field")
	ErrInvalidValuationWeight = errors.New("valuation weight must be a finite number")
)

type rawLocation struct {
	LocationID       string             `yaml:"location_id"`
	Name             string             `yaml:"name"`
	Description      string             `yaml:"description"`
	ValuationProfile map[string]float64 `yaml:"valuation_profile"`
	Affordances      []rawAffordance    `yaml:"affordances"`
}

type rawAffordance struct {
	Type             string         `yaml:"type"`
	Enabled          *bool          `yaml:"enabled"`
	MechanicalHandle string         `yaml:"mechanical_handle"`
	SeverityClamp    rawSeverity    `yaml:"severity_clamp"`
	CooldownSeconds  *int           `yaml:"cooldown_seconds"`
	Tells            map[string]any `yaml:"tells"`
}

type rawSeverity struct {
	Hostile   *float64 `yaml:"hostile"`
	Favorable *float64 `yaml:"favorable"`
}

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	doc.SourceFile = path
	return doc, nil
}

func Parse(content []byte) (*Document, error) {
	var raw rawLocation
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if strings.TrimSpace(raw.LocationID) == "" {
		return nil, ErrMissingID
	}
	if strings.TrimSpace(raw.Name) == "" {
		return nil, ErrMissingName
	}

	valuation := make(affinity.ValuationProfile, len(raw.ValuationProfile))
	for k, v := range raw.ValuationProfile {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidValuationWeight, k)
		}
		valuation[k] = v
	}

	affordances := make([]affinity.AffordanceConfig, 0, len(raw.Affordances))
	for i, a := range raw.Affordances {
		aff, err := parseAffordance(a)
		if err != nil {
			return nil, fmt.Errorf("affordance %d: %w", i, err)
		}
		affordances = append(affordances, aff)
	}

	return &Document{
		Definition: affinity.Definition{
			ID:          strings.TrimSpace(raw.LocationID),
			Name:        raw.Name,
			Description: strings.TrimSpace(raw.Description),
			Valuation:   valuation,
			Affordances: affordances,
		},
	}, nil
}

func parseAffordance(a rawAffordance) (affinity.AffordanceConfig, error) {
	if strings.TrimSpace(a.Type) == "" {
		return affinity.AffordanceConfig{}, ErrMissingAffordanceType
	}
	aff := affinity.AffordanceConfig{
		Type:                   strings.TrimSpace(a.Type),
		Enabled:                true,
		MechanicalHandle:       a.MechanicalHandle,
		SeverityClampHostile:   DefaultSeverityClampHostile,
		SeverityClampFavorable: DefaultSeverityClampFavorable,
		CooldownSeconds:        DefaultCooldownSeconds,
	}
	if a.Enabled != nil {
		aff.Enabled = *a.Enabled
	}
	if a.SeverityClamp.Hostile != nil {
		aff.SeverityClampHostile = *a.SeverityClamp.Hostile
	}
	if a.SeverityClamp.Favorable != nil {
		aff.SeverityClampFavorable = *a.SeverityClamp.Favorable
	}
	if a.CooldownSeconds != nil {
		aff.CooldownSeconds = *a.CooldownSeconds
	}

	var err error
	if aff.TellsHostile, err = parseTells(a.Tells["hostile"]); err != nil {
		return affinity.AffordanceConfig{}, fmt.Errorf("hostile tells: %w", err)
	}
	if aff.TellsFavorable, err = parseTells(a.Tells["favorable"]); err != nil {
		return affinity.AffordanceConfig{}, fmt.Errorf("favorable tells: %w", err)
	}
	return aff, nil
}

func parseTells(value any) ([]string, error) {
	if value == nil {
		return []string{}, nil
	}
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		return []string{v}, nil
	case []any:
		tells := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("tells must be strings")
			}
			if strings.TrimSpace(s) == "" {
				continue
			}
			tells = append(tells, s)
		}
		return tells, nil
	default:
		return nil, fmt.Errorf("tells must be string or list of strings")
	}
}
