package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/history"
	"folio/internal/logging"
	"folio/internal/media"
	"folio/internal/notifications"
	"folio/internal/portfolio"
)

// Triggers record what started a pass.
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
	TriggerAPI      = "api"
	TriggerOnDemand = "on-demand"
	TriggerCLI      = "cli"
)

// ErrBusy is returned when another process holds the sync lock past the lock timeout.
var ErrBusy = errors.New("another sync pass is running")

// Fetcher supplies CMS content.
type Fetcher interface {
	All(ctx context.Context) (content.Result, error)
}

// Mirror synchronizes media for fetched content.
type Mirror interface {
	Sync(ctx context.Context, c portfolio.Content) (portfolio.Content, media.Report, error)
	Sweep(ctx context.Context, active map[string]struct{}) (media.SweepResult, error)
}

// RunRecorder persists finished passes.
type RunRecorder interface {
	Record(ctx context.Context, run history.Run) error
}

// SyncObserver receives pass outcomes for metrics.
type SyncObserver interface {
	ObserveSync(trigger string, success bool, elapsed time.Duration, stats portfolio.SyncStats, failedCollections []string)
}

// Result is the outcome of a pass.
type Result struct {
	Success           bool                 `json:"success"`
	Timestamp         time.Time            `json:"timestamp"`
	RunID             string               `json:"runId,omitempty"`
	Trigger           string               `json:"trigger,omitempty"`
	Items             int                  `json:"items"`
	FailedCollections []string             `json:"failedCollections,omitempty"`
	Stats             *portfolio.SyncStats `json:"stats,omitempty"`
	Error             string               `json:"error,omitempty"`
}

// Generator runs synchronization passes.
type Generator struct {
	fetcher      Fetcher
	mirror       Mirror
	snapshotPath string
	metadataPath string
	lock         *flock.Flock
	lockTimeout  time.Duration
	logger       *slog.Logger
	recorder     RunRecorder
	observer     SyncObserver
	notifier     notifications.Service
	group        singleflight.Group
	running      atomic.Bool
	now          func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecorder records each pass in the sync history.
func WithRecorder(recorder RunRecorder) Option {
	return func(g *Generator) { g.recorder = recorder }
}

// WithObserver reports each pass to metrics.
func WithObserver(observer SyncObserver) Option {
	return func(g *Generator) { g.observer = observer }
}

// WithNotifier publishes pass outcomes.
func WithNotifier(notifier notifications.Service) Option {
	return func(g *Generator) {
		if notifier != nil {
			g.notifier = notifier
		}
	}
}

// WithLogger sets the generator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator wires a generator writing into the configured content directory.
func NewGenerator(cfg *config.Config, fetcher Fetcher, mirror Mirror, opts ...Option) *Generator {
	g := &Generator{
		fetcher:      fetcher,
		mirror:       mirror,
		snapshotPath: cfg.SnapshotPath(),
		metadataPath: cfg.MetadataPath(),
		lock:         flock.New(cfg.SyncLockPath()),
		lockTimeout:  cfg.LockTimeout(),
		logger:       logging.NewNop(),
		notifier:     notifications.NewService(&config.Config{}),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "snapshot")
	return g
}

// InProgress reports whether a pass is running in this process.
func (g *Generator) InProgress() bool {
	return g.running.Load()
}

// Generate runs a pass, or joins the one already running in this process.
// Failures are reported in the Result; the previous documents stay in place.
func (g *Generator) Generate(ctx context.Context, trigger string) Result {
	v, _, _ := g.group.Do("generate", func() (any, error) {
		return g.run(ctx, trigger), nil
	})
	return v.(Result)
}

func (g *Generator) run(ctx context.Context, trigger string) Result {
	g.running.Store(true)
	defer g.running.Store(false)

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, g.logger).With(logging.String(logging.FieldTrigger, trigger))
	started := g.now()
	logger.Info("sync pass started", logging.String(logging.FieldEventType, "sync_started"))

	result := Result{RunID: runID, Trigger: trigger}
	stats, items, failed, err := g.pass(ctx, logger)
	result.Timestamp = g.now().UTC()
	result.Items = items
	result.FailedCollections = failed
	if err != nil {
		result.Error = err.Error()
		logging.ErrorWithContext(logger, "sync pass failed; previous snapshot kept", "sync_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check CMS credentials and connectivity, then run 'folio sync'"),
		)
	} else {
		result.Success = true
		result.Stats = &stats
		logger.Info("sync pass complete",
			logging.Int("items", items),
			logging.Int("total_images", stats.TotalImages),
			logging.Int("downloaded", stats.Downloaded),
			logging.Int("reused", stats.Reused),
			logging.Int("failed", stats.Failed),
			logging.Int("cleaned", stats.Cleaned),
			logging.Duration("elapsed", g.now().Sub(started)),
			logging.String(logging.FieldEventType, "sync_complete"),
		)
	}

	g.report(context.WithoutCancel(ctx), logger, started, result, err)
	return result
}

func (g *Generator) pass(ctx context.Context, logger *slog.Logger) (portfolio.SyncStats, int, []string, error) {
	var stats portfolio.SyncStats

	lockCtx, cancel := context.WithTimeout(ctx, g.lockTimeout)
	defer cancel()
	locked, err := g.lock.TryLockContext(lockCtx, 250*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return stats, 0, nil, ctx.Err()
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			return stats, 0, nil, fmt.Errorf("acquire sync lock: %w", err)
		}
	}
	if !locked {
		return stats, 0, nil, fmt.Errorf("%w: lock %s held for %s", ErrBusy, g.lock.Path(), g.lockTimeout)
	}
	defer func() {
		if err := g.lock.Unlock(); err != nil {
			logger.Warn("sync lock release failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "sync_unlock_failed"),
				logging.String(logging.FieldErrorHint, "remove the lock file if no sync is running"),
				logging.String(logging.FieldImpact, "later passes may wait for the lock timeout"),
			)
		}
	}()

	fetched, err := g.fetcher.All(ctx)
	if err != nil {
		return stats, 0, nil, fmt.Errorf("fetch content: %w", err)
	}
	failed := make([]string, 0, len(fetched.Failures))
	for name := range fetched.Failures {
		failed = append(failed, name)
	}
	slices.Sort(failed)

	synced, report, err := g.mirror.Sync(ctx, fetched.Content)
	if err != nil {
		return stats, 0, failed, fmt.Errorf("sync media: %w", err)
	}
	stats = report.Stats

	snap := portfolio.NewSnapshot(synced)
	items := 0
	for _, col := range snap.AllCollections {
		items += len(col.Items)
	}
	if err := writeJSONDocument(g.snapshotPath, snap); err != nil {
		return stats, items, failed, err
	}

	swept, err := g.mirror.Sweep(ctx, report.Active)
	if err != nil {
		logging.WarnWithContext(logger, "media sweep failed", "media_sweep_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "unreferenced media stays on disk until the next pass"),
		)
	}
	stats.Cleaned = len(swept.Removed)

	meta := portfolio.UpdateMetadata{Timestamp: g.now().UTC(), RunID: runIDFrom(ctx), Stats: &stats}
	if err := writeJSONDocument(g.metadataPath, meta); err != nil {
		return stats, items, failed, err
	}
	return stats, items, failed, nil
}

func (g *Generator) report(ctx context.Context, logger *slog.Logger, started time.Time, result Result, passErr error) {
	elapsed := g.now().Sub(started)
	var stats portfolio.SyncStats
	if result.Stats != nil {
		stats = *result.Stats
	}

	if g.recorder != nil {
		run := history.Run{
			ID:                result.RunID,
			Trigger:           result.Trigger,
			StartedAt:         started,
			FinishedAt:        started.Add(elapsed),
			Success:           result.Success,
			Error:             result.Error,
			Items:             result.Items,
			FailedCollections: result.FailedCollections,
			Stats:             stats,
		}
		if err := g.recorder.Record(ctx, run); err != nil {
			logging.WarnWithContext(logger, "sync history write failed", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "pass missing from 'folio history'"),
			)
		}
	}
	if g.observer != nil {
		g.observer.ObserveSync(result.Trigger, result.Success, elapsed, stats, result.FailedCollections)
	}
	summary := notifications.Summary{
		RunID:             result.RunID,
		Trigger:           result.Trigger,
		Success:           result.Success,
		Err:               passErr,
		Duration:          elapsed,
		Stats:             stats,
		FailedCollections: result.FailedCollections,
	}
	if err := g.notifier.NotifySync(ctx, summary); err != nil {
		logging.WarnWithContext(logger, "sync notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push notification for this pass"),
		)
	}
}

func runIDFrom(ctx context.Context) string {
	id, _ := logging.RunIDFromContext(ctx)
	return id
}
