package query

import (
	"time"

	"github.com/google/uuid"

	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

// presetNamespace seeds the deterministic IDs of built-in presets so that a
// remembered "last used" preset survives restarts.
var presetNamespace = uuid.MustParse("4f0d9a4e-5c0b-4d8e-9b1e-6b7a2f3c1d00")

// Built-in preset names.
const (
	PresetDoing        = "DOING Tasks"
	PresetTodo         = "TODO Tasks"
	PresetHighPriority = "High Priority"
	PresetToday        = "Today"
)

// DefaultPresets returns the shipped presets. They are rebuilt on every call
// so the query text always matches the running binary, and the Today preset
// always targets the calendar day of now.
func DefaultPresets(now time.Time) []types.QueryPreset {
	defs := []struct {
		name string
		text string
	}{
		{PresetDoing, Doing()},
		{PresetTodo, TodoWithPriority()},
		{PresetHighPriority, HighPriority()},
		{PresetToday, Today(now)},
	}

	out := make([]types.QueryPreset, 0, len(defs))
	for _, d := range defs {
		out = append(out, types.QueryPreset{
			ID:           DefaultPresetID(d.name),
			Name:         d.name,
			Text:         d.text,
			ReadOnly:     true,
			IsDefault:    true,
			CreatedAt:    now,
			LastModified: now,
		})
	}
	return out
}

// DefaultPresetID returns the stable ID of the built-in preset called name.
func DefaultPresetID(name string) uuid.UUID {
	return uuid.NewSHA1(presetNamespace, []byte(name))
}

// IsDefaultPresetID reports whether id belongs to a built-in preset.
func IsDefaultPresetID(id uuid.UUID) bool {
	for _, name := range []string{PresetDoing, PresetTodo, PresetHighPriority, PresetToday} {
		if DefaultPresetID(name) == id {
			return true
		}
	}
	return false
}
