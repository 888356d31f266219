package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/query"
	"github.com/mschirtzinger/logseq-tasks/internal/ui"
)

var defaultCountStatuses = []string{"Todo", "Doing", query.StatusDone}

var countCmd = &cobra.Command{
	Use:     "count [STATUS...]",
	GroupID: "tasks",
	Short:   "Count tasks per status",
	Long: `Count the tasks in each STATUS. Without arguments Todo, Doing and Done
are counted.

Examples:
  lqt count
  lqt count Doing Canceled --json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		statuses := args
		if len(statuses) == 0 {
			statuses = defaultCountStatuses
		}

		store := openStore(ctx)
		defer store.Close()

		counts, err := countStatuses(ctx, newClient(effectiveGraph(ctx, cfg, store)), statuses)
		if err != nil {
			fatal(err)
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			if err := ui.WriteJSON(os.Stdout, counts); err != nil {
				fatal(err)
			}
			return
		}
		stdoutPrinter().Counts(counts)
	},
}

// countStatuses runs one count query per status concurrently. The first
// failure cancels the rest.
func countStatuses(ctx context.Context, client *logseq.Client, statuses []string) ([]ui.StatusCount, error) {
	counts := make([]ui.StatusCount, len(statuses))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, status := range statuses {
		g.Go(func() error {
			n, err := client.Count(ctx, query.CountByStatus(status))
			if err != nil {
				return err
			}
			counts[i] = ui.StatusCount{Status: status, Count: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func init() {
	countCmd.Flags().Bool("json", false, "print JSON")
	rootCmd.AddCommand(countCmd)
}
