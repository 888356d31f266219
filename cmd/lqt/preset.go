package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

var presetCmd = &cobra.Command{
	Use:     "preset",
	GroupID: "presets",
	Short:   "Manage saved queries",
	Long: `Manage saved query presets.

Four built-in presets (DOING Tasks, TODO Tasks, High Priority, Today) are
always available and cannot be changed. Use 'lqt preset dup' to copy one
and edit the copy. Presets are referred to by name (case-insensitive) or id.`,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		list, err := store.List(ctx)
		if err != nil {
			fatal(err)
		}
		last, _, err := store.LastUsed(ctx)
		if err != nil {
			fatal(err)
		}
		stdoutPrinter().Presets(list, last.ID, time.Now())
	},
}

var presetShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a preset's query",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		p, err := store.Find(ctx, args[0])
		if err != nil {
			fatal(err)
		}
		stdoutPrinter().Preset(p, time.Now())
	},
}

var presetNewCmd = &cobra.Command{
	Use:   "new NAME [DATALOG]",
	Short: "Create a preset",
	Long: `Create a preset from a Datalog query. The query is read from DATALOG,
from --file, or from standard input when neither is given. With -i the name
and query are entered in a form.`,
	Args: cobra.RangeArgs(0, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		interactive, _ := cmd.Flags().GetBool("interactive")

		var name, text string
		if len(args) > 0 {
			name = args[0]
		}
		if len(args) > 1 {
			text = args[1]
		}

		switch {
		case interactive:
			if err := presetForm(&name, &text); err != nil {
				fatal(err)
			}
		case name == "":
			fatal(errors.New("preset name is required (or use -i)"))
		case text == "":
			t, err := readQueryText(cmd)
			if err != nil {
				fatal(err)
			}
			text = t
		}

		store := openStore(ctx)
		defer store.Close()

		p := types.NewQueryPreset(strings.TrimSpace(name), strings.TrimSpace(text), time.Now())
		if err := store.Add(ctx, p); err != nil {
			fatal(err)
		}
		fmt.Printf("Created preset %s (%s)\n", p.Name, p.ID)
	},
}

var presetEditCmd = &cobra.Command{
	Use:   "edit NAME [DATALOG]",
	Short: "Replace a preset's query",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		interactive, _ := cmd.Flags().GetBool("interactive")

		store := openStore(ctx)
		defer store.Close()

		p, err := store.Find(ctx, args[0])
		if err != nil {
			fatal(err)
		}
		if !p.Editable() {
			fatal(fmt.Errorf("%s is read-only; use 'lqt preset dup' to make an editable copy", p.Name))
		}

		switch {
		case interactive:
			if err := presetForm(&p.Name, &p.Text); err != nil {
				fatal(err)
			}
		case len(args) == 2:
			p.Text = args[1]
		default:
			text, err := readQueryText(cmd)
			if err != nil {
				fatal(err)
			}
			p.Text = text
		}

		p.Name = strings.TrimSpace(p.Name)
		p.Text = strings.TrimSpace(p.Text)
		if err := store.Update(ctx, p); err != nil {
			fatal(err)
		}
		fmt.Printf("Updated preset %s\n", p.Name)
	},
}

var presetRenameCmd = &cobra.Command{
	Use:   "rename NAME NEW_NAME",
	Short: "Rename a preset",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		p, err := store.Find(ctx, args[0])
		if err != nil {
			fatal(err)
		}
		if err := store.Rename(ctx, p.ID, strings.TrimSpace(args[1])); err != nil {
			fatal(err)
		}
		fmt.Printf("Renamed %s to %s\n", p.Name, args[1])
	},
}

var presetDupCmd = &cobra.Command{
	Use:   "dup NAME",
	Short: "Copy a preset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		p, err := store.Find(ctx, args[0])
		if err != nil {
			fatal(err)
		}
		dup, err := store.Duplicate(ctx, p.ID)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Created preset %s (%s)\n", dup.Name, dup.ID)
	},
}

var presetRmCmd = &cobra.Command{
	Use:     "rm NAME",
	Aliases: []string{"delete"},
	Short:   "Delete a preset",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		p, err := store.Find(ctx, args[0])
		if err != nil {
			fatal(err)
		}
		if err := store.Delete(ctx, p.ID); err != nil {
			fatal(err)
		}
		fmt.Printf("Deleted preset %s\n", p.Name)
	},
}

var presetExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Write custom presets as YAML",
	Long:  `Write all custom presets as YAML to FILE, or to standard output. Built-in presets are not exported.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		var w io.Writer = os.Stdout
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Create(args[0])
			if err != nil {
				fatal(err)
			}
			defer f.Close()
			w = f
		}

		n, err := store.Export(ctx, w)
		if err != nil {
			fatal(err)
		}
		if len(args) == 1 && args[0] != "-" {
			fmt.Printf("Exported %d presets to %s\n", n, args[0])
		}
	},
}

var presetImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load presets from YAML",
	Long: `Load presets written by 'lqt preset export'. Presets with an existing id
are replaced; the rest are added. Use - to read standard input.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store := openStore(ctx)
		defer store.Close()

		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				fatal(err)
			}
			defer f.Close()
			r = f
		}

		n, err := store.Import(ctx, r)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("Imported %d presets\n", n)
	},
}

// presetForm prompts for a preset's name and query.
func presetForm(name, text *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Datalog query").
				Lines(8).
				Value(text).
				Validate(func(s string) error {
					if !strings.HasPrefix(strings.TrimSpace(s), "[") {
						return errors.New("query must be a Datalog vector starting with [")
					}
					return nil
				}),
		),
	).Run()
}

func readQueryText(cmd *cobra.Command) (string, error) {
	var data []byte
	var err error
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err = os.ReadFile(file)
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return "", fmt.Errorf("failed to read query: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("query text is empty")
	}
	return text, nil
}

func init() {
	for _, c := range []*cobra.Command{presetNewCmd, presetEditCmd} {
		c.Flags().BoolP("interactive", "i", false, "enter the preset in a form")
		c.Flags().StringP("file", "f", "", "read the query from a file")
	}

	presetCmd.AddCommand(presetListCmd, presetShowCmd, presetNewCmd, presetEditCmd,
		presetRenameCmd, presetDupCmd, presetRmCmd, presetExportCmd, presetImportCmd)
	rootCmd.AddCommand(presetCmd)
}
