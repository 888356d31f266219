package types

import (
	"time"

	"github.com/google/uuid"
)

// QueryPreset is a named, saved query.
//
// ID never changes once assigned. Name, Text and LastModified change on
// edit. Built-in presets have IsDefault set; they are regenerated from code
// on every load and are never written to storage.
type QueryPreset struct {
	ID           uuid.UUID `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Text         string    `json:"query" yaml:"query"`
	ReadOnly     bool      `json:"read_only" yaml:"read_only"`
	IsDefault    bool      `json:"is_default" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
}

// NewQueryPreset creates a user preset with a fresh random ID.
func NewQueryPreset(name, text string, now time.Time) QueryPreset {
	return QueryPreset{
		ID:           uuid.New(),
		Name:         name,
		Text:         text,
		CreatedAt:    now,
		LastModified: now,
	}
}

// Duplicate returns an editable copy named "<name> Copy" with a new ID.
func (p QueryPreset) Duplicate(now time.Time) QueryPreset {
	return NewQueryPreset(p.Name+" Copy", p.Text, now)
}

// Editable reports whether the preset may be renamed, edited or deleted.
func (p QueryPreset) Editable() bool {
	return !p.ReadOnly && !p.IsDefault
}
