package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect the world from the CLI",
	}
	cmd.AddCommand(queryLocationsCmd())
	cmd.AddCommand(queryStateCmd())
	cmd.AddCommand(queryAffinityCmd())
	cmd.AddCommand(queryTracesCmd())
	cmd.AddCommand(queryPredictCmd())
	cmd.AddCommand(queryHistoryCmd())
	cmd.AddCommand(queryExplainCmd())
	cmd.AddCommand(queryRegistryCmd())
	cmd.AddCommand(queryExportCmd())
	cmd.AddCommand(queryEventsCmd())
	return cmd
}

// withApp loads the project, runs fn and releases the store.
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx := context.Background()
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
