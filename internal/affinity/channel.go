package affinity

import (
	"fmt"
	"strings"
)

// Channel is one of the three independent decay lanes of a location.
type Channel int

const (
	Personal Channel = iota
	Group
	Behavior
)

// Channels lists every channel in display order.
var Channels = [...]Channel{Personal, Group, Behavior}

func (c Channel) String() string {
	switch c {
	case Personal:
		return "personal"
	case Group:
		return "group"
	case Behavior:
		return "behavior"
	default:
		panic(fmt.Sprintf("affinity: unknown channel %d", int(c)))
	}
}

func (c Channel) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Channel) UnmarshalText(text []byte) error {
	parsed, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "personal":
		return Personal, nil
	case "group":
		return Group, nil
	case "behavior":
		return Behavior, nil
	default:
		return 0, fmt.Errorf("%w: channel %q must be one of personal, group, behavior", ErrInvalidArgument, s)
	}
}

// ChannelValues holds one float per channel. It is used for half-lives,
// blend weights, saturation capacities and saturation usage.
type ChannelValues struct {
	Personal float64 `json:"personal" yaml:"personal"`
	Group    float64 `json:"group" yaml:"group"`
	Behavior float64 `json:"behavior" yaml:"behavior"`
}

func (v ChannelValues) Of(c Channel) float64 {
	switch c {
	case Personal:
		return v.Personal
	case Group:
		return v.Group
	case Behavior:
		return v.Behavior
	default:
		panic(fmt.Sprintf("affinity: unknown channel %d", int(c)))
	}
}

func (v *ChannelValues) Set(c Channel, value float64) {
	switch c {
	case Personal:
		v.Personal = value
	case Group:
		v.Group = value
	case Behavior:
		v.Behavior = value
	default:
		panic(fmt.Sprintf("affinity: unknown channel %d", int(c)))
	}
}

// Label is the qualitative reading of an affinity total.
type Label int

const (
	Hostile Label = iota
	Wary
	Neutral
	Warm
	Favorable
)

func (l Label) String() string {
	switch l {
	case Hostile:
		return "hostile"
	case Wary:
		return "wary"
	case Neutral:
		return "neutral"
	case Warm:
		return "warm"
	case Favorable:
		return "favorable"
	default:
		panic(fmt.Sprintf("affinity: unknown label %d", int(l)))
	}
}

func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func ParseLabel(s string) (Label, error) {
	for _, l := range [...]Label{Hostile, Wary, Neutral, Warm, Favorable} {
		if strings.EqualFold(strings.TrimSpace(s), l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown threshold label %q", ErrInvalidArgument, s)
}

// Thresholds are the ordered label boundaries applied to an affinity total.
type Thresholds struct {
	Hostile   float64 `json:"hostile" yaml:"hostile"`
	Wary      float64 `json:"wary" yaml:"wary"`
	Warm      float64 `json:"warm" yaml:"warm"`
	Favorable float64 `json:"favorable" yaml:"favorable"`
}

func (t Thresholds) Validate() error {
	if !(t.Hostile < t.Wary && t.Wary < t.Warm && t.Warm < t.Favorable) {
		return fmt.Errorf("%w: thresholds must satisfy hostile < wary < warm < favorable, got %v < %v < %v < %v",
			ErrConfiguration, t.Hostile, t.Wary, t.Warm, t.Favorable)
	}
	return nil
}

// Label maps total onto the five-way taxonomy. It is monotonic in total.
func (t Thresholds) Label(total float64) Label {
	switch {
	case total <= t.Hostile:
		return Hostile
	case total <= t.Wary:
		return Wary
	case total >= t.Favorable:
		return Favorable
	case total >= t.Warm:
		return Warm
	default:
		return Neutral
	}
}
