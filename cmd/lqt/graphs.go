package main

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mschirtzinger/logseq-tasks/internal/config"
)

var graphsCmd = &cobra.Command{
	Use:     "graphs [NAME]",
	GroupID: "tasks",
	Short:   "List the DB graphs known to the logseq CLI",
	Long: `List the DB graphs reported by 'logseq list'. File graphs are not shown.

With --select, pick the graph to query. The choice is remembered and
written to the config file. Pass NAME to select without a prompt.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		selectGraph, _ := cmd.Flags().GetBool("select")

		store := openStore(ctx)
		defer store.Close()

		client := newClient(effectiveGraph(ctx, cfg, store))
		graphs, err := client.ListGraphs(ctx)
		if err != nil {
			fatal(err)
		}

		if !selectGraph {
			stdoutPrinter().Graphs(graphs, client.Config().Graph)
			return
		}
		if len(graphs) == 0 {
			fatal(fmt.Errorf("no DB graphs found"))
		}

		var choice string
		if len(args) == 1 {
			choice = args[0]
			if !slices.Contains(graphs, choice) {
				fatal(fmt.Errorf("graph %q not found (known graphs: %v)", choice, graphs))
			}
		} else {
			choice = client.Config().Graph
			err := huh.NewSelect[string]().
				Title("Select a graph").
				Options(huh.NewOptions(graphs...)...).
				Value(&choice).
				Run()
			if err != nil {
				fatal(err)
			}
		}

		if err := store.SetSelectedGraph(ctx, choice); err != nil {
			fatal(err)
		}
		err = updateConfigFile(func(c *config.Config) error {
			c.Graph = choice
			return nil
		})
		if err != nil {
			fatal(err)
		}
		logger.Info("graph selected", zap.String("graph", choice))
		fmt.Printf("Selected graph %s\n", choice)
	},
}

func init() {
	graphsCmd.Flags().BoolP("select", "s", false, "choose the graph to query")
	rootCmd.AddCommand(graphsCmd)
}
