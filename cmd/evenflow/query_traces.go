package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"evenflow/internal/world"
)

func queryTracesCmd() *cobra.Command {
	var f world.TraceFilter
	cmd := &cobra.Command{
		Use:   "traces",
		Short: "Search traces across locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				traces, err := a.engine.World.QueryTraces(f)
				if err != nil {
					return err
				}
				if len(traces) == 0 {
					fmt.Fprintln(os.Stdout, "No traces found.")
					return nil
				}
				printTraces(traces)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.LocationID, "location", "", "Location to search")
	cmd.Flags().StringVar(&f.ActorID, "actor", "", "Actor to filter personal traces by")
	cmd.Flags().StringVar(&f.EventType, "event-type", "", "Event type or category")
	cmd.Flags().StringVar(&f.Channel, "channel", "", "personal, group or behavior")
	cmd.Flags().Float64Var(&f.MinIntensity, "min", 0, "Minimum absolute decayed value")
	cmd.Flags().IntVar(&f.Limit, "limit", world.DefaultTraceLimit, "Maximum traces")
	return cmd
}

func queryHistoryCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history <location_id>",
		Short: "Summarise what a location remembers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				h, err := a.engine.World.History(args[0], days)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Mood: %s (last %d days)\n", h.Mood, h.TimeWindowDays)
				if len(h.DominantEvents) > 0 {
					fmt.Fprintln(os.Stdout, "Dominant events:")
					for _, ev := range h.DominantEvents {
						fmt.Fprintf(os.Stdout, "  - %s by %s: %.3f (%d)\n", ev.EventType, ev.Actor, ev.Intensity, ev.Count)
					}
				}
				if len(h.NotableActors) > 0 {
					fmt.Fprintln(os.Stdout, "Notable actors:")
					for _, actor := range h.NotableActors {
						fmt.Fprintf(os.Stdout, "  - %s\n", actor)
					}
				}
				for _, seed := range h.FolkloreSeeds {
					fmt.Fprintf(os.Stdout, "Folklore: %s\n", seed)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", world.DefaultHistoryWindowDays, "Window in days")
	return cmd
}
