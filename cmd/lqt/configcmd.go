package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/logseq-tasks/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Show or change the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	Long: `Write the effective configuration (defaults, environment and flags) to
the config file. Use --force to overwrite an existing file.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath()
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			fatal(fmt.Errorf("%s already exists (use --force to overwrite)", path))
		}
		if err := config.Save(path, cfg); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote %s\n", path)
		if cfg.Graph == "" {
			fmt.Println("No graph set yet. Run 'lqt graphs --select' to pick one.")
		}
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		data, err := config.Encode(cfg)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("# %s\n", configPath())
		os.Stdout.Write(data)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting in the config file",
	Long:  "Change one setting in the config file.\n\nKeys: " + joinKeys(),
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		err := updateConfigFile(func(c *config.Config) error {
			return config.Set(c, args[0], args[1])
		})
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Set %s = %s in %s\n", args[0], args[1], configPath())
	},
}

func joinKeys() string {
	return strings.Join(config.Keys(), ", ")
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
