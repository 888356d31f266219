package presets

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mschirtzinger/logseq-tasks/internal/query"
	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

// exportFile is the YAML document written by Export.
type exportFile struct {
	Presets []types.QueryPreset `yaml:"presets"`
}

// Export writes every user preset to w as YAML. Built-in presets are
// omitted since every installation already has them.
func (s *Store) Export(ctx context.Context, w io.Writer) (int, error) {
	all, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	var doc exportFile
	for _, p := range all {
		if !p.IsDefault {
			doc.Presets = append(doc.Presets, p)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return 0, fmt.Errorf("failed to encode presets: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("failed to encode presets: %w", err)
	}
	return len(doc.Presets), nil
}

// Import reads presets exported by Export. Presets whose ID already exists
// are overwritten; entries without an ID or claiming a built-in ID get a
// fresh one. It returns the number of presets written.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	var doc exportFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to decode presets: %w", err)
	}

	now := s.now()
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, p := range doc.Presets {
		if p.Name == "" {
			return 0, fmt.Errorf("preset %d: %w", i+1, ErrNameRequired)
		}
		if p.ID == uuid.Nil || query.IsDefaultPresetID(p.ID) {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.LastModified.IsZero() {
			p.LastModified = now
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO presets (id, name, query, read_only, created_at, last_modified)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				query = excluded.query,
				read_only = excluded.read_only,
				last_modified = excluded.last_modified`,
			p.ID.String(), p.Name, p.Text, p.ReadOnly,
			formatTime(p.CreatedAt), formatTime(p.LastModified),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to import preset %q: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(doc.Presets), nil
}
