package watch

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultDebounce is how long file changes settle before a run.
const DefaultDebounce = 250 * time.Millisecond

// RunFunc performs one refresh. Its error is logged and does not stop the
// Refresher.
type RunFunc func(ctx context.Context) error

// Config configures a Refresher.
type Config struct {
	// Interval between scheduled runs. Zero disables the timer.
	Interval time.Duration

	// Debounce delays a file-triggered run so a burst of writes causes
	// one run. Defaults to DefaultDebounce.
	Debounce time.Duration

	// Files trigger a run when they change.
	Files []string

	Logger *zap.Logger
}

// Refresher calls a RunFunc on start, on a timer and on file changes.
// Runs never overlap: triggers that arrive during a run collapse into a
// single follow-up run.
type Refresher struct {
	cfg     Config
	run     RunFunc
	trigger chan struct{}
}

// New creates a Refresher.
func New(cfg Config, run RunFunc) *Refresher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Refresher{
		cfg:     cfg,
		run:     run,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger requests a run as soon as the current one (if any) finishes.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled. The first run happens immediately.
func (r *Refresher) Run(ctx context.Context) error {
	var events <-chan FileEvent
	var errs <-chan error
	if len(r.cfg.Files) > 0 {
		fw, err := NewFileWatcher()
		if err != nil {
			return err
		}
		if err := fw.Start(r.cfg.Files...); err != nil {
			_ = fw.Stop()
			return err
		}
		defer fw.Stop()
		events, errs = fw.Events(), fw.Errors()
		r.cfg.Logger.Debug("watching files", zap.Strings("files", r.cfg.Files))
	}

	var tick <-chan time.Time
	if r.cfg.Interval > 0 {
		ticker := time.NewTicker(r.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	done := make(chan struct{})
	go r.loop(ctx, done)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	r.Trigger()
	for {
		select {
		case <-ctx.Done():
			<-done
			return nil

		case <-tick:
			r.Trigger()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.cfg.Logger.Debug("file changed", zap.String("path", ev.Path), zap.Stringer("op", ev.Op))
			if debounce == nil {
				debounce = time.AfterFunc(r.cfg.Debounce, r.Trigger)
			} else {
				debounce.Reset(r.cfg.Debounce)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.cfg.Logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// loop executes runs one at a time.
func (r *Refresher) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
			start := time.Now()
			if err := r.run(ctx); err != nil && ctx.Err() == nil {
				r.cfg.Logger.Warn("refresh failed", zap.Error(err))
			}
			r.cfg.Logger.Debug("refresh finished", zap.Duration("took", time.Since(start)))
		}
	}
}
