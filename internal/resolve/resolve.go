// Package resolve replaces inline [[uuid]] markers in record titles with the
// title of the block they point at.
//
// The common case, titles without markers, costs a single regexp scan and
// issues no lookups.
package resolve

import (
	"context"
	"errors"
	"regexp"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

// ErrNoTitle is returned by a Lookup when the block exists but has no title,
// or no block matches.
var ErrNoTitle = errors.New("no title found")

// DefaultWorkers bounds concurrent lookups when no limit is configured.
const DefaultWorkers = 4

// markerPattern matches a double-bracketed lowercase canonical UUID.
var markerPattern = regexp.MustCompile(`\[\[([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})\]\]`)

// Lookup fetches the title of the block with the given identifier.
type Lookup interface {
	ResolveTitle(ctx context.Context, uuid string) (string, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, uuid string) (string, error)

// ResolveTitle implements Lookup.
func (f LookupFunc) ResolveTitle(ctx context.Context, uuid string) (string, error) {
	return f(ctx, uuid)
}

// Resolver rewrites marker-bearing titles.
type Resolver struct {
	lookup  Lookup
	workers int
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWorkers bounds the number of lookups in flight. Values below one mean
// sequential lookups.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithLogger sets the logger used for lookup misses.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Resolver backed by lookup.
func New(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:  lookup,
		workers: DefaultWorkers,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns records with every resolvable marker in their titles
// replaced by the referenced block's title.
//
// A failed lookup leaves that marker untouched; Resolve never fails as a
// whole. When no title carries a marker the input slice is returned as is.
func (r *Resolver) Resolve(ctx context.Context, records []types.Record) []types.Record {
	ids := CollectMarkers(records)
	if len(ids) == 0 {
		return records
	}

	names := r.lookupAll(ctx, ids)
	r.logger.Debug("resolved markers",
		zap.Int("markers", len(ids)),
		zap.Int("resolved", len(names)),
	)
	return Apply(records, names)
}

// lookupAll resolves ids with bounded concurrency. Each goroutine writes
// only its own slot, so the merged map is independent of completion order.
func (r *Resolver) lookupAll(ctx context.Context, ids []string) map[string]string {
	titles := make([]string, len(ids))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, id := range ids {
		g.Go(func() error {
			title, err := r.lookup.ResolveTitle(ctx, id)
			if err != nil {
				r.logger.Debug("marker lookup failed", zap.String("uuid", id), zap.Error(err))
				return nil
			}
			if title == "" {
				r.logger.Debug("marker has no title", zap.String("uuid", id))
				return nil
			}
			titles[i] = title
			return nil
		})
	}
	_ = g.Wait()

	names := make(map[string]string, len(ids))
	for i, id := range ids {
		if titles[i] != "" {
			names[id] = titles[i]
		}
	}
	return names
}

// FindMarkers returns the distinct marker identifiers in text in order of
// first appearance.
func FindMarkers(text string) []string {
	var ids []string
	for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
		if !slices.Contains(ids, m[1]) {
			ids = append(ids, m[1])
		}
	}
	return ids
}

// CollectMarkers returns the set of marker identifiers across all record
// titles, in order of first appearance.
func CollectMarkers(records []types.Record) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, rec := range records {
		if rec.Title == nil {
			continue
		}
		for _, id := range FindMarkers(*rec.Title) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// Rewrite replaces each marker in title whose identifier is in names.
// It reports whether anything changed.
func Rewrite(title string, names map[string]string) (string, bool) {
	changed := false
	out := markerPattern.ReplaceAllStringFunc(title, func(marker string) string {
		id := marker[2 : len(marker)-2]
		name, ok := names[id]
		if !ok {
			return marker
		}
		changed = true
		return "[[" + name + "]]"
	})
	return out, changed
}

// Apply rewrites titles using names. Records whose title does not change are
// copied through untouched, and the input slice is never modified.
func Apply(records []types.Record, names map[string]string) []types.Record {
	if len(names) == 0 {
		return records
	}

	out := records
	copied := false
	for i, rec := range records {
		if rec.Title == nil {
			continue
		}
		title, changed := Rewrite(*rec.Title, names)
		if !changed {
			continue
		}
		if !copied {
			out = slices.Clone(records)
			copied = true
		}
		out[i] = rec.WithTitle(title)
	}
	return out
}
