package logseq

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mschirtzinger/logseq-tasks/internal/query"
	"github.com/mschirtzinger/logseq-tasks/internal/resolve"
	"github.com/mschirtzinger/logseq-tasks/internal/types"
)

// Config is the engine configuration a Client is built with. It is never
// modified after construction.
type Config struct {
	// Graph is the DB graph to query.
	Graph string

	// LogseqPath is the logseq CLI executable.
	LogseqPath string

	// JetPath is the jet EDN converter executable.
	JetPath string
}

// Validate checks that the graph name is set and both executables exist.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Graph) == "" {
		return newError(ErrInvalidConfig, "config", "graph name is empty", nil)
	}
	if err := checkExecutable(c.LogseqPath); err != nil {
		return err
	}
	return checkExecutable(c.JetPath)
}

func checkExecutable(path string) error {
	if path == "" {
		return newError(ErrInvalidConfig, "config", "executable path is empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return newError(ErrInvalidConfig, "config", path+" not found", err)
	}
	if info.IsDir() {
		return newError(ErrInvalidConfig, "config", path+" is a directory", nil)
	}
	return nil
}

// Client runs queries against one graph.
//
// A Client holds no mutable state and is safe for concurrent use; each call
// spawns its own processes.
type Client struct {
	cfg       Config
	runner    Runner
	converter *Converter
	resolver  *resolve.Resolver
	workers   int
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the process runner. Tests use this to avoid spawning
// the real CLI.
func WithRunner(r Runner) Option {
	return func(c *Client) {
		c.runner = r
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithResolveWorkers bounds concurrent marker lookups.
func WithResolveWorkers(n int) Option {
	return func(c *Client) {
		c.workers = n
	}
}

// NewClient creates a Client for cfg. The configuration is validated on each
// call rather than here so that a Client can be built before the executables
// are installed.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:     cfg,
		workers: resolve.DefaultWorkers,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runner == nil {
		c.runner = NewExecRunner(c.logger)
	}
	c.converter = &Converter{Path: cfg.JetPath, Runner: c.runner, Logger: c.logger}
	c.resolver = resolve.New(c, resolve.WithWorkers(c.workers), resolve.WithLogger(c.logger))
	return c
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.cfg
}

// WithGraph returns a client for another graph sharing this client's runner
// and options.
func (c *Client) WithGraph(graph string) *Client {
	cfg := c.cfg
	cfg.Graph = graph
	return NewClient(cfg, WithRunner(c.runner), WithLogger(c.logger), WithResolveWorkers(c.workers))
}

// ListGraphs returns the names of the DB graphs known to the CLI.
//
// Only the CLI path is required: graph selection happens after listing.
func (c *Client) ListGraphs(ctx context.Context) ([]string, error) {
	if err := checkExecutable(c.cfg.LogseqPath); err != nil {
		return nil, err
	}
	res, err := c.runner.Run(ctx, c.cfg.LogseqPath, []string{"list"}, nil)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, newError(ErrCommandFailed, "list", res.Stderr, nil)
	}
	return ParseGraphList(res.Stdout), nil
}

// QueryResult is the outcome of Query.
type QueryResult struct {
	Records []types.Record

	// Statuses holds the joined status name of each record when the query
	// returned [record, status] pairs; otherwise nil.
	Statuses []string

	// Shape is the result layout the decoder matched.
	Shape Shape

	// Total is the number of records the engine returned before any cap.
	Total int

	// Truncated is set when a limit dropped records.
	Truncated bool
}

// StatusRecord pairs a record with its joined status name.
type StatusRecord struct {
	Record     types.Record
	StatusName string
}

// WithStatus zips Records and Statuses. When the query did not join status
// names the record's own status reference is used.
func (r *QueryResult) WithStatus() []StatusRecord {
	out := make([]StatusRecord, len(r.Records))
	for i, rec := range r.Records {
		out[i].Record = rec
		if i < len(r.Statuses) {
			out[i].StatusName = r.Statuses[i]
		} else {
			out[i].StatusName = rec.Status.Display()
		}
	}
	return out
}

type queryOptions struct {
	limit   int
	resolve bool
}

// QueryOption adjusts a single Query call.
type QueryOption func(*queryOptions)

// WithLimit caps the number of records returned. The cap is applied before
// marker resolution so dropped records cost no lookups.
func WithLimit(n int) QueryOption {
	return func(o *queryOptions) {
		o.limit = n
	}
}

// WithoutResolution skips marker resolution.
func WithoutResolution() QueryOption {
	return func(o *queryOptions) {
		o.resolve = false
	}
}

// Query runs text against the graph and returns the decoded records with
// [[uuid]] markers in titles replaced by block titles.
func (c *Client) Query(ctx context.Context, text string, opts ...QueryOption) (*QueryResult, error) {
	o := queryOptions{resolve: true}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := c.runQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return &QueryResult{}, nil
	}

	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("decoded result",
		zap.Stringer("shape", decoded.Shape),
		zap.Int("records", len(decoded.Records)),
	)

	out := &QueryResult{
		Records:  decoded.Records,
		Statuses: decoded.Statuses,
		Shape:    decoded.Shape,
		Total:    len(decoded.Records),
	}
	if o.limit > 0 && len(out.Records) > o.limit {
		out.Records = out.Records[:o.limit]
		if out.Statuses != nil {
			out.Statuses = out.Statuses[:o.limit]
		}
		out.Truncated = true
	}

	if o.resolve {
		out.Records = c.resolver.Resolve(ctx, out.Records)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// runQuery validates the configuration, runs text and converts the output
// to JSON. An empty result at either stage yields nil data and no error.
func (c *Client) runQuery(ctx context.Context, text string) ([]byte, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := c.runner.Run(ctx, c.cfg.LogseqPath, c.queryArgs(text), nil)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, newError(ErrCommandFailed, "query", res.Stderr, nil)
	}

	edn := []byte(res.Stdout)
	if isEmptyResult(edn) {
		c.logger.Debug("query returned no results")
		return nil, nil
	}

	data, err := c.converter.ToJSON(ctx, edn)
	if err != nil {
		return nil, err
	}
	if isEmptyResult(data) {
		c.logger.Debug("converted result is empty")
		return nil, nil
	}
	return data, nil
}

// Count runs an aggregate query such as query.CountByStatus and returns
// its number. No matches count as zero.
func (c *Client) Count(ctx context.Context, text string) (int, error) {
	data, err := c.runQuery(ctx, text)
	if err != nil || data == nil {
		return 0, err
	}
	return DecodeCount(data)
}

// QueryWithStatus runs text and pairs each record with its status name.
func (c *Client) QueryWithStatus(ctx context.Context, text string, opts ...QueryOption) ([]StatusRecord, error) {
	res, err := c.Query(ctx, text, opts...)
	if err != nil {
		return nil, err
	}
	return res.WithStatus(), nil
}

func (c *Client) queryArgs(text string) []string {
	return []string{"query", text, "-g", c.cfg.Graph}
}

// titlePattern matches the title entry in native EDN output.
var titlePattern = regexp.MustCompile(`:block/title\s+"((?:[^"\\]|\\.)*)"`)

// ResolveTitle looks up the title of the block with the given identifier.
// The native output is matched directly, without the converter, since only
// one field is needed.
func (c *Client) ResolveTitle(ctx context.Context, uuid string) (string, error) {
	res, err := c.runner.Run(ctx, c.cfg.LogseqPath, c.queryArgs(query.FindByUUID(uuid)), nil)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", newError(ErrCommandFailed, "resolve", res.Stderr, nil)
	}
	m := titlePattern.FindStringSubmatch(res.Stdout)
	if m == nil || m[1] == "" {
		return "", fmt.Errorf("%s: %w", uuid, resolve.ErrNoTitle)
	}
	return unquoteEDN(m[1]), nil
}

// unquoteEDN decodes the escapes EDN shares with Go string literals. Text
// that Go cannot unquote, such as raw newlines, is returned as is.
func unquoteEDN(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

// Available reports whether the CLI can be started and answers --version.
// It never returns an error.
func (c *Client) Available(ctx context.Context) bool {
	res, err := c.runner.Run(ctx, c.cfg.LogseqPath, []string{"--version"}, nil)
	return err == nil && res.ExitCode == 0
}

// Version returns the CLI's version in canonical semver form.
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.runner.Run(ctx, c.cfg.LogseqPath, []string{"--version"}, nil)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", newError(ErrCommandFailed, "version", res.Stderr, nil)
	}
	v := ParseVersion(res.Stdout)
	if v == "" {
		return "", fmt.Errorf("no version in %q", strings.TrimSpace(res.Stdout))
	}
	return v, nil
}
