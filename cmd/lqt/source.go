package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mschirtzinger/logseq-tasks/internal/presets"
	"github.com/mschirtzinger/logseq-tasks/internal/query"
)

// querySource is the query a command runs and where it came from.
type querySource struct {
	Text string

	// Label names the preset or filter, for headers and the dashboard.
	Label string

	// PresetID is set when the query came from a stored preset.
	PresetID uuid.UUID
}

var sourceFlags = []string{"preset", "status", "priority", "today", "on", "active", "class"}

// classStatus is the status --class filters on when --status is not given.
const classStatus = "Doing"

func addSourceFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("preset", "p", "", "run a saved preset (name or id)")
	flags.String("status", "", "tasks with this status, e.g. Doing")
	flags.StringSlice("priority", nil, "tasks with any of these priorities")
	flags.Bool("today", false, "tasks scheduled or due today")
	flags.String("on", "", "tasks scheduled or due on a day (2024-03-15, tomorrow, next friday)")
	flags.Bool("active", false, "every task that is not done or canceled")
	flags.String("class", "", "prioritised tasks tagged with a class or a class extending it (status from --status, default "+classStatus+")")
	cmd.MarkFlagsMutuallyExclusive("preset", "status", "priority", "today", "on", "active")
	cmd.MarkFlagsMutuallyExclusive("preset", "class", "priority", "today", "on", "active")
}

// selectQuery picks the query from the positional argument, a filter flag,
// a preset, the last used preset or the DOING preset, in that order.
func selectQuery(ctx context.Context, cmd *cobra.Command, args []string, store *presets.Store, now time.Time) (querySource, error) {
	flags := cmd.Flags()
	changed := 0
	for _, name := range sourceFlags {
		if flags.Changed(name) {
			changed++
		}
	}
	if len(args) > 0 {
		if changed > 0 {
			return querySource{}, errors.New("query text cannot be combined with --preset or filter flags")
		}
		return querySource{Text: query.Raw(args[0]), Label: "custom query"}, nil
	}

	switch {
	case flags.Changed("class"):
		class, _ := flags.GetString("class")
		status := classStatus
		if flags.Changed("status") {
			status, _ = flags.GetString("status")
		}
		return querySource{Text: query.ClassInheritance(status, class), Label: fmt.Sprintf("class %s (%s)", class, status)}, nil

	case flags.Changed("active"):
		return querySource{Text: query.Active(0), Label: "active"}, nil

	case flags.Changed("status"):
		status, _ := flags.GetString("status")
		return querySource{Text: query.Status(status), Label: "status " + status}, nil

	case flags.Changed("priority"):
		names, _ := flags.GetStringSlice("priority")
		return querySource{Text: query.Priority(names...), Label: fmt.Sprintf("priority %v", names)}, nil

	case flags.Changed("today"):
		return querySource{Text: query.Today(now), Label: "today"}, nil

	case flags.Changed("on"):
		text, _ := flags.GetString("on")
		day, err := query.ParseDay(text, now)
		if err != nil {
			return querySource{}, err
		}
		return querySource{Text: query.OnDay(day), Label: "on " + text}, nil

	case flags.Changed("preset"):
		ref, _ := flags.GetString("preset")
		p, err := store.Find(ctx, ref)
		if err != nil {
			return querySource{}, err
		}
		return querySource{Text: p.Text, Label: p.Name, PresetID: p.ID}, nil
	}

	p, ok, err := store.LastUsed(ctx)
	if err != nil {
		return querySource{}, err
	}
	if !ok {
		p, err = store.Get(ctx, query.DefaultPresetID(query.PresetDoing))
		if err != nil {
			return querySource{}, err
		}
	}
	return querySource{Text: p.Text, Label: p.Name, PresetID: p.ID}, nil
}
