// Package presets persists user query presets and per-user settings
// (selected graph, last used preset) in an embedded SQLite database.
//
// Built-in presets are never stored. List merges them in from
// query.DefaultPresets on every call so their text always matches the
// running binary.
package presets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mschirtzinger/logseq-tasks/internal/query"
	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

var (
	// ErrNotFound is returned when no preset has the requested ID or name.
	ErrNotFound = errors.New("preset not found")

	// ErrReadOnly is returned when modifying a built-in or read-only preset.
	ErrReadOnly = errors.New("preset is read-only")

	// ErrNameRequired is returned when a preset name is blank.
	ErrNameRequired = errors.New("preset name is required")
)

// Setting keys.
const (
	settingSelectedGraph = "selected_graph"
	settingLastUsed      = "last_used_preset"
)

// PresetStore is the load/save surface the CLI uses for presets.
type PresetStore interface {
	List(ctx context.Context) ([]types.QueryPreset, error)
	Add(ctx context.Context, p types.QueryPreset) error
	Update(ctx context.Context, p types.QueryPreset) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// GraphSelection persists the graph the user picked.
type GraphSelection interface {
	SelectedGraph(ctx context.Context) (string, error)
	SetSelectedGraph(ctx context.Context, graph string) error
}

// Store is the SQLite-backed preset store.
type Store struct {
	conn *sql.DB
	path string

	// now is replaced in tests.
	now func() time.Time
}

var (
	_ PresetStore    = (*Store)(nil)
	_ GraphSelection = (*Store)(nil)
)

// Open opens or creates the store at path and ensures the schema exists.
//
// The caller must call Close when done.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset store: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping preset store: %w", err)
	}

	s := &Store{conn: conn, path: path, now: time.Now}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := s.InitSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the database.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	_, _ = s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close preset store: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the tables if they do not exist. Idempotent.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS presets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		query TEXT NOT NULL,
		read_only INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		last_modified TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_presets_created ON presets(created_at);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// List returns the built-in presets followed by user presets in creation
// order.
func (s *Store) List(ctx context.Context) ([]types.QueryPreset, error) {
	out := query.DefaultPresets(s.now())

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, query, read_only, created_at, last_modified
		FROM presets
		ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return out, nil
}

// Get returns the preset with the given ID, built-in or stored.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (types.QueryPreset, error) {
	if query.IsDefaultPresetID(id) {
		for _, p := range query.DefaultPresets(s.now()) {
			if p.ID == id {
				return p, nil
			}
		}
	}

	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, query, read_only, created_at, last_modified
		FROM presets WHERE id = ?`, id.String())
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.QueryPreset{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return p, err
}

// Find resolves ref as a preset ID or, failing that, a case-insensitive
// name. Built-in presets win name ties.
func (s *Store) Find(ctx context.Context, ref string) (types.QueryPreset, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.Get(ctx, id)
	}

	all, err := s.List(ctx)
	if err != nil {
		return types.QueryPreset{}, err
	}
	for _, p := range all {
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return types.QueryPreset{}, fmt.Errorf("%q: %w", ref, ErrNotFound)
}

// Add stores a new user preset.
func (s *Store) Add(ctx context.Context, p types.QueryPreset) error {
	if p.IsDefault || query.IsDefaultPresetID(p.ID) {
		return fmt.Errorf("%s: %w", p.Name, ErrReadOnly)
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.LastModified.IsZero() {
		p.LastModified = p.CreatedAt
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO presets (id, name, query, read_only, created_at, last_modified)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, p.Text, p.ReadOnly,
		formatTime(p.CreatedAt), formatTime(p.LastModified),
	)
	if err != nil {
		return fmt.Errorf("failed to add preset %q: %w", p.Name, err)
	}
	return nil
}

// Update replaces the name and text of an editable preset and bumps its
// modification time.
func (s *Store) Update(ctx context.Context, p types.QueryPreset) error {
	current, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if !current.Editable() {
		return fmt.Errorf("%s: %w", current.Name, ErrReadOnly)
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}

	_, err = s.conn.ExecContext(ctx, `
		UPDATE presets SET name = ?, query = ?, last_modified = ?
		WHERE id = ?`,
		p.Name, p.Text, formatTime(s.now()), p.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update preset %q: %w", p.Name, err)
	}
	return nil
}

// Rename changes the name of an editable preset.
func (s *Store) Rename(ctx context.Context, id uuid.UUID, name string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Name = name
	return s.Update(ctx, p)
}

// SetText changes the query text of an editable preset.
func (s *Store) SetText(ctx context.Context, id uuid.UUID, text string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Text = text
	return s.Update(ctx, p)
}

// Delete removes an editable preset. Deleting the last used preset clears
// that setting.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !p.Editable() {
		return fmt.Errorf("%s: %w", p.Name, ErrReadOnly)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", p.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ? AND value = ?`,
		settingLastUsed, id.String()); err != nil {
		return fmt.Errorf("failed to clear last used preset: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Duplicate stores an editable copy of the preset, named "<name> Copy".
func (s *Store) Duplicate(ctx context.Context, id uuid.UUID) (types.QueryPreset, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return types.QueryPreset{}, err
	}
	dup := p.Duplicate(s.now())
	if err := s.Add(ctx, dup); err != nil {
		return types.QueryPreset{}, err
	}
	return dup, nil
}

// SelectedGraph returns the remembered graph name, or "" if none.
func (s *Store) SelectedGraph(ctx context.Context) (string, error) {
	return s.setting(ctx, settingSelectedGraph)
}

// SetSelectedGraph remembers graph as the selected graph.
func (s *Store) SetSelectedGraph(ctx context.Context, graph string) error {
	return s.setSetting(ctx, settingSelectedGraph, graph)
}

// LastUsed returns the last used preset. ok is false when none is
// remembered or it no longer exists.
func (s *Store) LastUsed(ctx context.Context) (p types.QueryPreset, ok bool, err error) {
	raw, err := s.setting(ctx, settingLastUsed)
	if err != nil || raw == "" {
		return types.QueryPreset{}, false, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return types.QueryPreset{}, false, nil
	}
	p, err = s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return types.QueryPreset{}, false, nil
	}
	if err != nil {
		return types.QueryPreset{}, false, err
	}
	return p, true, nil
}

// SetLastUsed remembers id as the last used preset.
func (s *Store) SetLastUsed(ctx context.Context, id uuid.UUID) error {
	return s.setSetting(ctx, settingLastUsed, id.String())
}

func (s *Store) setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (types.QueryPreset, error) {
	var (
		p                 types.QueryPreset
		id                string
		created, modified string
	)
	if err := row.Scan(&id, &p.Name, &p.Text, &p.ReadOnly, &created, &modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan preset: %w", err)
	}

	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return p, fmt.Errorf("preset has invalid id %q: %w", id, err)
	}
	if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return p, fmt.Errorf("preset %s has invalid created_at: %w", id, err)
	}
	if p.LastModified, err = time.Parse(timeLayout, modified); err != nil {
		return p, fmt.Errorf("preset %s has invalid last_modified: %w", id, err)
	}
	return p, nil
}

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
