package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mschirtzinger/logseq-tasks/internal/dashboard"
	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/presets"
	"github.com/mschirtzinger/logseq-tasks/internal/ui"
	"github.com/mschirtzinger/logseq-tasks/internal/watch"
)

// refreshResult is the outcome of one live refresh.
type refreshResult struct {
	Graph  string
	Label  string
	Result *logseq.QueryResult
	Err    error
}

// newRefresher re-runs src on the configured interval and whenever the
// config file changes. The config is re-read and stored presets re-fetched
// on every run, so edits take effect without a restart.
func newRefresher(src querySource, store *presets.Store, deliver func(refreshResult)) *watch.Refresher {
	run := func(ctx context.Context) error {
		out := refreshResult{Label: src.Label}

		c, err := loadConfig()
		if err != nil {
			out.Err = err
			deliver(out)
			return err
		}

		text := src.Text
		if src.PresetID != uuid.Nil {
			p, err := store.Get(ctx, src.PresetID)
			if err != nil {
				out.Err = err
				deliver(out)
				return err
			}
			text, out.Label = p.Text, p.Name
		}

		out.Graph = effectiveGraph(ctx, c, store)
		out.Result, out.Err = clientFor(c, out.Graph).Query(ctx, text, logseq.WithLimit(c.DisplayLimit))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		deliver(out)
		return out.Err
	}

	var files []string
	if _, err := os.Stat(filepath.Dir(configPath())); err == nil {
		files = append(files, configPath())
	}
	return watch.New(watch.Config{
		Interval: cfg.RefreshInterval,
		Files:    files,
		Logger:   logger.Named("refresh"),
	}, run)
}

var watchCmd = &cobra.Command{
	Use:     "watch [DATALOG]",
	GroupID: "live",
	Short:   "Re-run a query and redraw the results",
	Long: `Run a query, print the results, and run it again every refresh_interval
and whenever the config file changes. Accepts the same query flags as
'lqt query'. Press Ctrl+C to stop.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		src, err := selectQuery(ctx, cmd, args, store, time.Now())
		if err != nil {
			fatal(err)
		}

		out := termenv.NewOutput(os.Stdout)
		interactive := ui.IsTerminal(os.Stdout)
		p := stdoutPrinter()

		r := newRefresher(src, store, func(res refreshResult) {
			if interactive {
				out.ClearScreen()
			}
			fmt.Printf("%s · %s · %s\n\n", res.Label, res.Graph, time.Now().Format("15:04:05"))
			if res.Err != nil {
				p.Error(res.Err)
				return
			}
			p.Tasks(res.Graph, res.Result)
		})
		if err := r.Run(ctx); err != nil {
			fatal(err)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:     "serve [DATALOG]",
	GroupID: "live",
	Short:   "Serve a live task feed over HTTP and WebSocket",
	Long: `Start a dashboard server that runs a query every refresh_interval (and
when the config file changes) and publishes the results.

Endpoints:
  /health      server status
  /api/tasks   latest results as JSON
  /ws          WebSocket feed of "tasks" and "error" messages

Accepts the same query flags as 'lqt query'.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		src, err := selectQuery(ctx, cmd, args, store, time.Now())
		if err != nil {
			fatal(err)
		}

		addr := cfg.Addr()
		if cmd.Flags().Changed("port") {
			port, _ := cmd.Flags().GetInt("port")
			addr = fmt.Sprintf("%s:%d", cfg.Dashboard.Host, port)
		}

		server := dashboard.NewServer(dashboard.Config{Addr: addr, Logger: logger.Named("dashboard")})
		if err := server.Start(); err != nil {
			fatal(err)
		}
		fmt.Printf("Dashboard on http://%s (WebSocket ws://%s/ws)\n", server.Addr(), server.Addr())
		fmt.Println("Press Ctrl+C to stop...")

		r := newRefresher(src, store, func(res refreshResult) {
			if res.Err != nil {
				server.PublishError(res.Err)
				return
			}
			server.Publish(dashboard.NewSnapshot(res.Graph, res.Label, res.Result, time.Now()))
		})
		runErr := r.Run(ctx)

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			logger.Warn("dashboard shutdown failed", zap.Error(err))
		}
		if runErr != nil {
			fatal(runErr)
		}
	},
}

func init() {
	addSourceFlags(watchCmd)
	addSourceFlags(serveCmd)
	serveCmd.Flags().Int("port", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}
