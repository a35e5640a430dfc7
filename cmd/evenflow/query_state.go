package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"evenflow/internal/world"
)

func queryLocationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List loaded locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				ids := a.engine.World.ListLocations()
				if len(ids) == 0 {
					fmt.Fprintln(os.Stdout, "No locations found.")
					return nil
				}
				for _, id := range ids {
					fmt.Fprintln(os.Stdout, id)
				}
				return nil
			})
		},
	}
}

func queryStateCmd() *cobra.Command {
	var noTraces bool
	var noAffordances bool
	var asJSON bool
	var raw bool
	cmd := &cobra.Command{
		Use:   "state <location_id>",
		Short: "Show a location's saturation, traces and affordances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := world.DefaultStateOptions()
			opts.IncludeTraces = !noTraces
			opts.IncludeAffordances = !noAffordances
			opts.DecayToNow = !raw
			return withApp(func(ctx context.Context, a *app) error {
				state, err := a.engine.World.LocationState(args[0], opts)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(state)
				}
				printState(state)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noTraces, "no-traces", false, "Omit traces")
	cmd.Flags().BoolVar(&noAffordances, "no-affordances", false, "Omit affordances")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "Show raw accumulators instead of values decayed to now")
	return cmd
}

func printState(state *world.LocationState) {
	fmt.Fprintf(os.Stdout, "%s (%s)\n", state.Name, state.LocationID)
	if state.Description != "" {
		fmt.Fprintf(os.Stdout, "  %s\n", state.Description)
	}
	fmt.Fprintf(os.Stdout, "Saturation: personal=%.3f group=%.3f behavior=%.3f\n",
		state.Saturation.Personal, state.Saturation.Group, state.Saturation.Behavior)
	if !state.LastTick.IsZero() {
		fmt.Fprintf(os.Stdout, "Last tick: %s\n", state.LastTick.Format("2006-01-02 15:04:05"))
	}

	if len(state.Traces) > 0 {
		fmt.Fprintf(os.Stdout, "\nTraces (%d):\n", len(state.Traces))
		printTraces(state.Traces)
	}

	if len(state.Affordances) > 0 {
		fmt.Fprintf(os.Stdout, "\nAffordances (%d):\n", len(state.Affordances))
		for _, aff := range state.Affordances {
			status := "enabled"
			if !aff.Enabled {
				status = "disabled"
			}
			if aff.CooldownRemaining != nil {
				status = fmt.Sprintf("%s, cooling down %.0fs", status, *aff.CooldownRemaining)
			}
			fmt.Fprintf(os.Stdout, "  - %s [%s]\n", aff.Type, status)
		}
	}
}

func printTraces(traces []world.TraceInfo) {
	for _, t := range traces {
		scar := ""
		if t.IsScar {
			scar = " scar"
		}
		fmt.Fprintf(os.Stdout, "  - %s %s: %.3f (accumulated %.3f, %d events%s)\n",
			t.LocationID, t.Key, t.DecayedValue, t.Accumulated, t.EventCount, scar)
	}
}
