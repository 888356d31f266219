package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/logseq-tasks/internal/logseq"
	"github.com/mschirtzinger/logseq-tasks/internal/presets"
	"github.com/mschirtzinger/logseq-tasks/internal/query"
)

var checkCmd = &cobra.Command{
	Use:     "check",
	GroupID: "setup",
	Short:   "Check that the logseq CLI responds",
	Long: `Run 'logseq --version' and report whether it succeeded. Exits with
status 1 when the CLI is not available.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient(cfg.Graph)
		ok := client.Available(cmd.Context())
		stdoutPrinter().Check(ok, "logseq CLI", cfg.LogseqPath)
		if !ok {
			exit(1)
		}
	},
}

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: "setup",
	Short:   "Diagnose the configuration and tools",
	Long: `Check everything lqt needs:
  - the config file and its values
  - the logseq CLI and its version
  - the jet converter
  - the preset store
  - that the configured graph exists
  - that a query against it succeeds`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		p := stdoutPrinter()
		failed := false
		check := func(ok bool, label, detail string) {
			p.Check(ok, label, detail)
			if !ok {
				failed = true
			}
		}

		path := configPath()
		if _, err := os.Stat(path); err == nil {
			check(true, "config file", path)
		} else {
			p.Check(true, "config file", "not found, using defaults ("+path+")")
		}

		var store *presets.Store
		s, err := presets.Open(ctx, cfg.StorePath)
		if err != nil {
			check(false, "preset store", err.Error())
		} else {
			store = s
			defer store.Close()
			onExit = append(onExit, func() { store.Close() })
			check(true, "preset store", cfg.StorePath)
		}

		graph := cfg.Graph
		if graph == "" && store != nil {
			graph = effectiveGraph(ctx, cfg, store)
		}
		validated := *cfg
		validated.Graph = graph
		if err := validated.Validate(); err != nil {
			check(false, "configuration", err.Error())
		} else {
			check(true, "configuration", "graph "+graph)
		}

		client := newClient(graph)
		if !client.Available(ctx) {
			check(false, "logseq CLI", cfg.LogseqPath+" does not answer --version")
		} else {
			version, err := client.Version(ctx)
			minVersion, _ := cmd.Flags().GetString("min-version")
			switch {
			case err != nil:
				check(false, "logseq CLI", err.Error())
			case minVersion != "" && !logseq.VersionAtLeast(version, canonicalVersion(minVersion)):
				check(false, "logseq CLI", fmt.Sprintf("%s is older than %s", version, canonicalVersion(minVersion)))
			default:
				check(true, "logseq CLI", version)
			}
		}

		if info, err := os.Stat(cfg.JetPath); err != nil || info.IsDir() {
			check(false, "jet converter", cfg.JetPath+" not found")
		} else {
			check(true, "jet converter", cfg.JetPath)
		}

		graphs, err := client.ListGraphs(ctx)
		switch {
		case err != nil:
			check(false, "graphs", err.Error())
		case graph == "":
			check(false, "graph", "no graph configured (known graphs: "+strings.Join(graphs, ", ")+")")
		case !slices.Contains(graphs, graph):
			check(false, "graph", fmt.Sprintf("%q not in %v", graph, graphs))
		default:
			check(true, "graph", graph)
		}

		if !failed {
			res, err := client.Query(ctx, query.SimpleTasks(), logseq.WithoutResolution())
			if err != nil {
				check(false, "test query", err.Error())
			} else {
				check(true, "test query", fmt.Sprintf("%d tasks (%s)", len(res.Records), res.Shape))
			}
			if err == nil && len(res.Records) == 0 {
				blocks, err := client.Query(ctx, query.AnyBlocks(), logseq.WithoutResolution(), logseq.WithLimit(1))
				switch {
				case err != nil:
					check(false, "graph blocks", err.Error())
				case blocks.Total == 0:
					p.Check(true, "graph blocks", "graph is empty")
				default:
					p.Check(true, "graph blocks", fmt.Sprintf("%d blocks, none tagged #%s", blocks.Total, query.TaskTag))
				}
			}
		}

		if failed {
			exit(1)
		}
	},
}

func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func init() {
	doctorCmd.Flags().String("min-version", "", "require at least this logseq CLI version")
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(doctorCmd)
}
