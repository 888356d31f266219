package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/presets"
	"github.com/mschirtzinger/logseq-tasks/internal/ui"
)

var queryCmd = &cobra.Command{
	Use:     "query [DATALOG]",
	GroupID: "tasks",
	Short:   "Run a task query and print the results",
	Long: `Run a Datalog query against the graph and print the matching tasks.

The query is taken from, in order:
  1. the DATALOG argument
  2. --status, --priority, --today, --on, --active or --class
  3. --preset
  4. the last used preset
  5. the built-in "DOING Tasks" preset

Inline [[uuid]] references in task titles are replaced by the referenced
block's title unless --no-resolve is given.

Examples:
  lqt query --status Todo
  lqt query --priority high --priority urgent
  lqt query --on "next friday"
  lqt query --active -n 20
  lqt query --class Project --status Todo
  lqt query -p "High Priority" --json`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		flags := cmd.Flags()

		store := openStore(ctx)
		defer store.Close()

		src, err := selectQuery(ctx, cmd, args, store, time.Now())
		if err != nil {
			fatal(err)
		}

		limit := cfg.DisplayLimit
		if flags.Changed("limit") {
			limit, _ = flags.GetInt("limit")
		}
		opts := []logseq.QueryOption{logseq.WithLimit(limit)}
		if noResolve, _ := flags.GetBool("no-resolve"); noResolve {
			opts = append(opts, logseq.WithoutResolution())
		}

		graph := effectiveGraph(ctx, cfg, store)
		client := newClient(graph)
		asJSON, _ := flags.GetBool("json")
		start := time.Now()

		if asJSON {
			paired, err := client.QueryWithStatus(ctx, src.Text, opts...)
			if err != nil {
				fatal(err)
			}
			logQuery(src, len(paired), start)
			markUsed(ctx, store, src)
			if err := ui.WriteJSON(os.Stdout, ui.StatusTaskViews(graph, paired)); err != nil {
				fatal(err)
			}
			return
		}

		res, err := client.Query(ctx, src.Text, opts...)
		if err != nil {
			fatal(err)
		}
		logQuery(src, len(res.Records), start)
		markUsed(ctx, store, src)

		p := stdoutPrinter()
		p.ShowLinks, _ = flags.GetBool("links")
		p.Tasks(graph, res)
	},
}

func logQuery(src querySource, records int, start time.Time) {
	logger.Debug("query finished",
		zap.String("source", src.Label),
		zap.Int("records", records),
		zap.Duration("took", time.Since(start)),
	)
}

func markUsed(ctx context.Context, store *presets.Store, src querySource) {
	if src.PresetID == uuid.Nil {
		return
	}
	if err := store.SetLastUsed(ctx, src.PresetID); err != nil {
		logger.Warn("failed to record last used preset", zap.Error(err))
	}
}

func init() {
	addSourceFlags(queryCmd)
	queryCmd.Flags().IntP("limit", "n", 0, "maximum tasks to show (default from config, 0 for all)")
	queryCmd.Flags().Bool("no-resolve", false, "leave [[uuid]] references unresolved")
	queryCmd.Flags().Bool("json", false, "print JSON")
	queryCmd.Flags().Bool("links", false, "print logseq:// links to each task")
	rootCmd.AddCommand(queryCmd)
}
