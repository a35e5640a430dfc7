package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"evenflow/internal/world"
)

func queryAffinityCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "affinity <location_id> <actor_id>",
		Short: "Compute how a location currently regards an actor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				score, err := a.engine.World.ComputeAffinity(args[0], args[1], tags)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Affinity: %s\n", formatScore(score))
				fmt.Fprintf(os.Stdout, "  Personal: %.3f\n", score.Personal)
				fmt.Fprintf(os.Stdout, "  Group:    %.3f\n", score.Group)
				fmt.Fprintf(os.Stdout, "  Behavior: %.3f\n", score.Behavior)
				fmt.Fprintf(os.Stdout, "  Scaled:   %.1f\n", score.Scaled)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Actor group tag (repeatable)")
	return cmd
}

func queryPredictCmd() *cobra.Command {
	var p world.Prediction
	cmd := &cobra.Command{
		Use:   "predict <location_id> <event_type>",
		Short: "Preview the consequence of an event without recording it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(p.ActorID) == "" {
				return fmt.Errorf("--actor is required")
			}
			p.LocationID = args[0]
			p.EventType = args[1]
			return withApp(func(ctx context.Context, a *app) error {
				c, err := a.engine.World.Predict(p)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Affinity: %s -> %s\n", formatScore(c.AffinityBefore), formatScore(c.AffinityAfter))
				if len(c.TriggeredAffordances) > 0 {
					fmt.Fprintf(os.Stdout, "Would trigger: %s\n", strings.Join(c.TriggeredAffordances, ", "))
				}
				for _, hint := range c.NarrativeHints {
					fmt.Fprintf(os.Stdout, "  Hint: %s\n", hint)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&p.ActorID, "actor", "", "Acting entity id")
	cmd.Flags().StringSliceVar(&p.ActorTags, "tag", nil, "Actor group tag (repeatable)")
	cmd.Flags().Float64Var(&p.Intensity, "intensity", 0.5, "Event intensity in [0,1]")
	return cmd
}

func queryExplainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <location_id> <event_type>",
		Short: "Explain how a location values an event type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				v, err := a.engine.World.ExplainValuation(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "%s: %+.2f (%s)\n", v.EventType, v.Weight, v.MatchType)
				fmt.Fprintf(os.Stdout, "  %s\n", v.Explanation)
				return nil
			})
		},
	}
}
