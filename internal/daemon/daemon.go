package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"folio/internal/config"
	"folio/internal/logging"
	"folio/internal/snapshot"
)

// Generator runs synchronization passes.
type Generator interface {
	Generate(ctx context.Context, trigger string) snapshot.Result
	InProgress() bool
}

// HTTPServer is the lifecycle surface of the API server.
type HTTPServer interface {
	Start(ctx context.Context) error
	Stop()
	Addr() string
}

// Pruner trims recorded history.
type Pruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// Daemon coordinates the API server and the sync scheduler, and enforces
// single-instance execution.
type Daemon struct {
	logger   *slog.Logger
	gen      Generator
	server   HTTPServer
	pruner   Pruner
	keep     int
	interval time.Duration
	startup  bool
	hasFiles func() bool

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastRun atomic.Pointer[snapshot.Result]
	nextRun atomic.Int64
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithPruner prunes history to keep runs after every scheduled pass.
func WithPruner(pruner Pruner, keep int) Option {
	return func(d *Daemon) {
		d.pruner = pruner
		d.keep = keep
	}
}

// WithInterval overrides the configured scheduler interval.
func WithInterval(interval time.Duration) Option {
	return func(d *Daemon) { d.interval = interval }
}

// WithStartupSync runs a pass at start when hasFiles reports no snapshot.
func WithStartupSync(hasFiles func() bool) Option {
	return func(d *Daemon) {
		d.startup = true
		d.hasFiles = hasFiles
	}
}

// New constructs a daemon. server may be nil for a scheduler-only process.
func New(cfg *config.Config, logger *slog.Logger, gen Generator, server HTTPServer, opts ...Option) (*Daemon, error) {
	if cfg == nil || gen == nil {
		return nil, errors.New("daemon requires config and generator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.DaemonLockPath()
	d := &Daemon{
		logger:   logging.NewComponentLogger(logger, "daemon"),
		gen:      gen,
		server:   server,
		interval: cfg.SyncInterval(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock, starts the API server and the scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another folio daemon instance is already running (lock %s)", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if d.server != nil {
		if err := d.server.Start(runCtx); err != nil {
			cancel()
			_ = d.lock.Unlock()
			return fmt.Errorf("start api server: %w", err)
		}
	}
	d.cancel = cancel
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.schedule(runCtx)
	}()

	d.logger.Info("folio daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("sync_interval", d.interval),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop cancels the scheduler, stops the server and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.Stop()
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the lock file if no daemon is running"),
			logging.String(logging.FieldImpact, "next daemon start may be refused"),
		)
	}
	d.nextRun.Store(0)
	d.running.Store(false)
	d.logger.Info("folio daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// NextSync returns when the next scheduled pass is due. It is zero while
// no schedule is running.
func (d *Daemon) NextSync() time.Time {
	if next := d.nextRun.Load(); next > 0 {
		return time.Unix(0, next)
	}
	return time.Time{}
}

// LastResult returns the outcome of the last pass the daemon started itself,
// or nil before the first one.
func (d *Daemon) LastResult() *snapshot.Result {
	return d.lastRun.Load()
}

func (d *Daemon) schedule(ctx context.Context) {
	if d.startup && (d.hasFiles == nil || !d.hasFiles()) {
		d.runPass(ctx, snapshot.TriggerStartup)
	}
	if d.interval <= 0 {
		d.logger.Info("scheduled sync disabled; passes run on demand only")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.nextRun.Store(time.Now().Add(d.interval).UnixNano())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runPass(ctx, snapshot.TriggerSchedule)
			d.nextRun.Store(time.Now().Add(d.interval).UnixNano())
		}
	}
}

func (d *Daemon) runPass(ctx context.Context, trigger string) {
	result := d.gen.Generate(ctx, trigger)
	d.lastRun.Store(&result)
	if ctx.Err() != nil || d.pruner == nil || d.keep <= 0 {
		return
	}
	removed, err := d.pruner.Prune(ctx, d.keep)
	if err != nil {
		logging.WarnWithContext(d.logger, "sync history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history database keeps growing until the next prune"),
		)
		return
	}
	if removed > 0 {
		d.logger.Debug("sync history pruned", logging.Int64("removed", removed))
	}
}
