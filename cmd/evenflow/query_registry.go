package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

func queryRegistryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Show which affordance types are enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				reg := a.engine.World.AffordanceRegistry()
				types := make([]string, 0, len(reg))
				for t := range reg {
					types = append(types, t)
				}
				sort.Strings(types)
				for _, t := range types {
					state := "enabled"
					if !reg[t] {
						state = "disabled"
					}
					fmt.Fprintf(os.Stdout, "%s: %s\n", t, state)
				}
				return nil
			})
		},
	}
}

func queryExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print every location snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				snaps, err := a.engine.World.Export()
				if err != nil {
					return err
				}
				return printJSON(snaps)
			})
		},
	}
}

func queryEventsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events [location_id]",
		Short: "List journaled events, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var locationID string
			if len(args) == 1 {
				locationID = args[0]
			}
			return withApp(func(ctx context.Context, a *app) error {
				events, err := a.engine.Events(ctx, locationID, limit)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintln(os.Stdout, "No events found.")
					return nil
				}
				for _, ev := range events {
					fmt.Fprintf(os.Stdout, "%s  %s  %s by %s (%.2f)  %.3f -> %.3f\n",
						ev.OccurredAt.Format("2006-01-02 15:04:05"), ev.LocationID, ev.EventType, ev.ActorID,
						ev.Intensity, ev.AffinityBefore, ev.AffinityAfter)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum events")
	return cmd
}
