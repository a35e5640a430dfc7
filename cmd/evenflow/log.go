package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"evenflow/internal/affinity"
)

func logCmd() *cobra.Command {
	var actorID string
	var tags []string
	var intensity float64
	cmd := &cobra.Command{
		Use:   "log <location_id> <event_type>",
		Short: "Record an event at a location",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(actorID) == "" {
				return fmt.Errorf("--actor is required")
			}
			return runLog(affinity.Event{
				LocationID: args[0],
				Type:       args[1],
				ActorID:    actorID,
				ActorTags:  tags,
				Intensity:  intensity,
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "Acting entity id")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Actor group tag (repeatable)")
	cmd.Flags().Float64Var(&intensity, "intensity", 0.5, "Event intensity in [0,1]")
	return cmd
}

func runLog(ev affinity.Event) error {
	ctx := context.Background()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if a.engine.Store == nil {
		fmt.Fprintln(os.Stderr, "warning: no database configured, the event will not be kept")
	}

	out, err := a.engine.LogEvent(ctx, ev)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Logged %s by %s at %s.\n", out.Event.Type, out.Event.ActorID, out.Event.LocationID)
	fmt.Fprintf(os.Stdout, "  Affinity: %s -> %s\n", formatScore(out.AffinityBefore), formatScore(out.AffinityAfter))
	for _, t := range out.Triggered {
		state := "triggered"
		if t.WasCoolingDown {
			state = "cooling down"
		}
		fmt.Fprintf(os.Stdout, "  Affordance %s: %s (%.0fs remaining)\n", t.Type, state, t.CooldownRemaining)
	}
	for _, hint := range out.NarrativeHints {
		fmt.Fprintf(os.Stdout, "  Hint: %s\n", hint)
	}
	for _, scar := range out.ScarsFormed {
		fmt.Fprintf(os.Stdout, "  Scar formed: %s\n", scar)
	}
	return nil
}

func formatScore(s affinity.Score) string {
	return fmt.Sprintf("%.3f (%s)", s.Total, s.Label)
}
