// Command lqt queries tasks in a Logseq DB graph.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mschirtzinger/logseq-tasks/internal/config"
	"github.com/mschirtzinger/logseq-tasks/internal/logging"
	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/presets"
	"github.com/mschirtzinger/logseq-tasks/internal/ui"
)

var (
	cfgPath string
	noColor bool

	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "lqt",
	Short: "Query tasks in a Logseq DB graph",
	Long: `lqt runs Datalog task queries against a Logseq DB graph through the
logseq CLI, converts the EDN output with jet, and prints the tasks.

Configuration is read from ~/.config/lqt/config.toml (or --config), then
LQT_* environment variables, then flags. Run 'lqt config init' to create
the file and 'lqt doctor' to check the setup.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync(logger)
	},
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (setup reaches rootCmd through newViper).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return setup()
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "tasks", Title: "Tasks:"},
		&cobra.Group{ID: "presets", Title: "Presets:"},
		&cobra.Group{ID: "live", Title: "Live views:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "config file (default "+config.DefaultPath()+")")
	flags.StringP("graph", "g", "", "graph to query (overrides config)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		fatal(err)
	}
}

// newViper returns a viper with defaults, environment and the persistent
// flags bound.
func newViper() *viper.Viper {
	v := config.NewViper()
	_ = v.BindPFlag("graph", rootCmd.PersistentFlags().Lookup("graph"))
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	return v
}

func configPath() string {
	if cfgPath != "" {
		return cfgPath
	}
	return config.DefaultPath()
}

// loadConfig reads the configuration without validating it. Commands that
// need a graph validate through the client.
func loadConfig() (*config.Config, error) {
	return config.Load(newViper(), configPath())
}

// updateConfigFile applies change to the config file as written, leaving
// environment and flag overrides out of it.
func updateConfigFile(change func(*config.Config) error) error {
	path := configPath()
	c, err := config.Load(config.NewFileViper(), path)
	if err != nil {
		return err
	}
	if err := change(c); err != nil {
		return err
	}
	return config.Save(path, c)
}

func setup() error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = c

	l, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	logger = l
	logger.Debug("configuration loaded", zap.String("path", configPath()), zap.String("graph", cfg.Graph))
	return nil
}

// fatal prints err verbatim and exits with status 1.
func fatal(err error) {
	p := ui.NewPrinter(os.Stderr, !noColor)
	p.Error(err)
	switch {
	case errors.Is(err, logseq.ErrInvalidConfig):
		fmt.Fprintln(os.Stderr, "Run 'lqt doctor' to check the configuration.")
	case errors.Is(err, context.Canceled):
		exit(130)
	}
	exit(1)
}

// onExit holds cleanups that exit runs, since os.Exit skips deferred calls.
var onExit []func()

// exit runs the registered cleanups in reverse order, flushes the log and
// terminates with code.
func exit(code int) {
	for i := len(onExit) - 1; i >= 0; i-- {
		onExit[i]()
	}
	onExit = nil
	logging.Sync(logger)
	os.Exit(code)
}

// openStore opens the preset store and registers it to be closed by exit.
// Callers still defer Close for the normal return path; closing twice is
// harmless.
func openStore(ctx context.Context) *presets.Store {
	store, err := presets.Open(ctx, cfg.StorePath)
	if err != nil {
		fatal(err)
	}
	onExit = append(onExit, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close preset store", zap.Error(err))
		}
	})
	return store
}

// effectiveGraph is the graph named in c, falling back to the one picked
// with 'lqt graphs --select'.
func effectiveGraph(ctx context.Context, c *config.Config, sel presets.GraphSelection) string {
	if c.Graph != "" {
		return c.Graph
	}
	graph, err := sel.SelectedGraph(ctx)
	if err != nil {
		logger.Warn("failed to read selected graph", zap.Error(err))
		return ""
	}
	return graph
}

func newClient(graph string) *logseq.Client {
	return clientFor(cfg, graph)
}

func clientFor(c *config.Config, graph string) *logseq.Client {
	engine := c.Engine()
	engine.Graph = graph
	return logseq.NewClient(engine,
		logseq.WithLogger(logger),
		logseq.WithResolveWorkers(c.ResolveWorkers),
	)
}

func stdoutPrinter() *ui.Printer {
	return ui.NewPrinter(os.Stdout, !noColor)
}
