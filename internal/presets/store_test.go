package presets

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/mschirtzinger/logseq-tasks/internal/query"
	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

// testStore opens a store in a temp dir with a controllable clock.
func testStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "lqt", "presets.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	clock := time.Date(2025, time.May, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func userPresets(t *testing.T, s *Store) []types.QueryPreset {
	t.Helper()
	all, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	var out []types.QueryPreset
	for _, p := range all {
		if !p.IsDefault {
			out = append(out, p)
		}
	}
	return out
}

func TestOpen_CreatesSchema(t *testing.T) {
	s, _ := testStore(t)
	for _, table := range []string{"presets", "settings"} {
		var count int
		err := s.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Table %s does not exist", table)
		}
	}
	if err := s.InitSchema(context.Background()); err != nil {
		t.Errorf("Second InitSchema() failed: %v", err)
	}
}

func TestList_DefaultsFirst(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len(List) = %d, want 4 built-in presets", len(all))
	}

	if err := s.Add(ctx, types.NewQueryPreset("Mine", "[:find ?b]", s.now())); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	all, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 5 || all[4].Name != "Mine" || all[0].Name != query.PresetDoing {
		t.Errorf("List order = %v", names(all))
	}

	var stored int
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM presets`).Scan(&stored); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if stored != 1 {
		t.Errorf("stored presets = %d, want 1 (defaults are never persisted)", stored)
	}
}

func names(ps []types.QueryPreset) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestAddGetRoundTrip(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	p := types.NewQueryPreset("Waiting", query.Status("Waiting"), s.now())
	if err := s.Add(ctx, p); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_Rejects(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	def := query.DefaultPresets(s.now())[0]
	if err := s.Add(ctx, def); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Add(default) error = %v, want ErrReadOnly", err)
	}
	if err := s.Add(ctx, types.NewQueryPreset("  ", "q", s.now())); !errors.Is(err, ErrNameRequired) {
		t.Errorf("Add(blank name) error = %v, want ErrNameRequired", err)
	}
}

func TestUpdate(t *testing.T) {
	s, clock := testStore(t)
	ctx := context.Background()

	p := types.NewQueryPreset("Old", "q1", s.now())
	if err := s.Add(ctx, p); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	*clock = clock.Add(time.Hour)
	if err := s.Rename(ctx, p.ID, "New"); err != nil {
		t.Fatalf("Rename() failed: %v", err)
	}
	if err := s.SetText(ctx, p.ID, "q2"); err != nil {
		t.Fatalf("SetText() failed: %v", err)
	}

	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "New" || got.Text != "q2" {
		t.Errorf("got %q/%q, want New/q2", got.Name, got.Text)
	}
	if !got.LastModified.Equal(*clock) {
		t.Errorf("LastModified = %s, want %s", got.LastModified, *clock)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Error("CreatedAt must not change on edit")
	}
	if got.ID != p.ID {
		t.Error("ID must not change on edit")
	}
}

func TestUpdate_DefaultIsReadOnly(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	id := query.DefaultPresetID(query.PresetDoing)

	if err := s.Rename(ctx, id, "Hijack"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Rename(default) error = %v, want ErrReadOnly", err)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Delete(default) error = %v, want ErrReadOnly", err)
	}
}

func TestDelete(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	p := types.NewQueryPreset("Temp", "q", s.now())
	if err := s.Add(ctx, p); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := s.SetLastUsed(ctx, p.ID); err != nil {
		t.Fatalf("SetLastUsed() failed: %v", err)
	}
	if err := s.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, err := s.Get(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if _, ok, err := s.LastUsed(ctx); err != nil || ok {
		t.Errorf("LastUsed() after delete = ok %v, err %v", ok, err)
	}
	if err := s.Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestDuplicate(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	dup, err := s.Duplicate(ctx, query.DefaultPresetID(query.PresetHighPriority))
	if err != nil {
		t.Fatalf("Duplicate() failed: %v", err)
	}
	if dup.Name != "High Priority Copy" || !dup.Editable() {
		t.Errorf("dup = %+v", dup)
	}
	if dup.Text != query.HighPriority() {
		t.Error("duplicate should keep query text")
	}

	users := userPresets(t, s)
	if len(users) != 1 || users[0].ID != dup.ID {
		t.Errorf("user presets = %v", names(users))
	}
}

func TestFind(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	p := types.NewQueryPreset("Errands", "q", s.now())
	if err := s.Add(ctx, p); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	tests := []struct {
		ref  string
		want uuid.UUID
	}{
		{"errands", p.ID},
		{p.ID.String(), p.ID},
		{"doing tasks", query.DefaultPresetID(query.PresetDoing)},
	}
	for _, tt := range tests {
		got, err := s.Find(ctx, tt.ref)
		if err != nil {
			t.Errorf("Find(%q) failed: %v", tt.ref, err)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("Find(%q) = %s, want %s", tt.ref, got.ID, tt.want)
		}
	}

	if _, err := s.Find(ctx, "nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(nothing) error = %v, want ErrNotFound", err)
	}
}

func TestSettings(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	if g, err := s.SelectedGraph(ctx); err != nil || g != "" {
		t.Errorf("SelectedGraph() = %q, %v; want empty", g, err)
	}
	for _, g := range []string{"work", "personal"} {
		if err := s.SetSelectedGraph(ctx, g); err != nil {
			t.Fatalf("SetSelectedGraph() failed: %v", err)
		}
		got, err := s.SelectedGraph(ctx)
		if err != nil || got != g {
			t.Errorf("SelectedGraph() = %q, %v; want %q", got, err, g)
		}
	}

	id := query.DefaultPresetID(query.PresetToday)
	if err := s.SetLastUsed(ctx, id); err != nil {
		t.Fatalf("SetLastUsed() failed: %v", err)
	}
	p, ok, err := s.LastUsed(ctx)
	if err != nil || !ok || p.Name != query.PresetToday {
		t.Errorf("LastUsed() = %q, %v, %v", p.Name, ok, err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	p := types.NewQueryPreset("Keep", "q", time.Now())
	if err := s.Add(ctx, p); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if err := s.SetSelectedGraph(ctx, "work"); err != nil {
		t.Fatalf("SetSelectedGraph() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if _, err := s.Get(ctx, p.ID); err != nil {
		t.Errorf("preset lost across reopen: %v", err)
	}
	if g, _ := s.SelectedGraph(ctx); g != "work" {
		t.Errorf("SelectedGraph() = %q after reopen", g)
	}
}

func TestExportImport(t *testing.T) {
	src, _ := testStore(t)
	ctx := context.Background()

	a := types.NewQueryPreset("A", "[:find ?a]", src.now())
	b := types.NewQueryPreset("B", "[:find ?b]", src.now().Add(time.Second))
	b.ReadOnly = true
	for _, p := range []types.QueryPreset{a, b} {
		if err := src.Add(ctx, p); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	var buf bytes.Buffer
	n, err := src.Export(ctx, &buf)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Export() = %d, want 2", n)
	}
	if strings.Contains(buf.String(), query.PresetDoing) {
		t.Error("export should not contain built-in presets")
	}

	dst, _ := testStore(t)
	n, err = dst.Import(ctx, &buf)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Import() = %d, want 2", n)
	}

	got := userPresets(t, dst)
	if diff := cmp.Diff([]types.QueryPreset{a, b}, got); diff != "" {
		t.Errorf("imported presets mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_ReassignsDefaultIDs(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	doc := "presets:\n  - id: " + query.DefaultPresetID(query.PresetDoing).String() +
		"\n    name: Shadow\n    query: q\n  - name: NoID\n    query: q2\n"
	n, err := s.Import(ctx, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("Import() = %d, want 2", n)
	}

	for _, p := range userPresets(t, s) {
		if query.IsDefaultPresetID(p.ID) || p.ID == uuid.Nil {
			t.Errorf("preset %q kept id %s", p.Name, p.ID)
		}
	}

	doing, err := s.Get(ctx, query.DefaultPresetID(query.PresetDoing))
	if err != nil || doing.Name != query.PresetDoing {
		t.Errorf("built-in preset shadowed: %+v, %v", doing, err)
	}
}

func TestImport_Empty(t *testing.T) {
	s, _ := testStore(t)
	if n, err := s.Import(context.Background(), strings.NewReader("")); err != nil || n != 0 {
		t.Errorf("Import(empty) = %d, %v", n, err)
	}
}
