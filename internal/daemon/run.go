package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"folio/internal/config"
	"folio/internal/history"
	"folio/internal/logging"
	"folio/internal/metrics"
	"folio/internal/notifications"
	"folio/internal/preflight"
	"folio/internal/server"
	"folio/internal/snapshot"
)

// Run starts the folio runtime and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{
			Dir:     cfg.Paths.LogDir,
			Pattern: "folio*.log*",
			Exclude: []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)},
		},
	)

	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		logger.Error("open sync history", logging.Error(err))
		return err
	}
	defer store.Close()

	m := metrics.New()
	pipe, err := snapshot.NewPipeline(cfg, logger, m,
		snapshot.WithRecorder(store),
		snapshot.WithObserver(m),
		snapshot.WithNotifier(notifications.NewService(cfg)),
	)
	if err != nil {
		return err
	}

	logPreflight(signalCtx, logger, preflight.RunAll(signalCtx, cfg, pipe.Client))

	snapshots := snapshot.NewStore(cfg)
	srv := server.New(cfg, snapshots, pipe.Generator,
		server.WithLogger(logger),
		server.WithInvalidator(pipe.Fetcher),
		server.WithHistory(store),
		server.WithMetrics(m.Handler()),
	)

	d, err := New(cfg, logger, pipe.Generator, srv,
		WithPruner(store, history.DefaultKeep),
		WithStartupSync(snapshots.HasStaticFiles),
	)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	srv.SetSchedule(d)
	if err := d.Start(signalCtx); err != nil {
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("folio daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, results []preflight.Result) {
	for _, r := range results {
		if r.Passed {
			logger.DebugContext(ctx, "preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported path or Notion access, then run 'folio status --check'"),
			logging.String(logging.FieldImpact, "synchronization passes are likely to fail"),
		)
	}
}
