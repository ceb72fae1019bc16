package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"folio/internal/fileutil"
	"folio/internal/logging"
	"folio/internal/portfolio"
)

// Download outcomes reported to a Recorder.
const (
	OutcomeDownloaded = "downloaded"
	OutcomeReused     = "reused"
	OutcomeFailed     = "failed"
)

// Recorder observes individual download outcomes.
type Recorder interface {
	ObserveDownload(outcome string, bytes int64, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDownload(string, int64, time.Duration) {}

// Report is the outcome of a synchronization pass.
type Report struct {
	Stats portfolio.SyncStats
	// Active holds every filename the synchronized content references.
	Active map[string]struct{}
}

// Synchronizer downloads remote images into a media directory.
type Synchronizer struct {
	dir      string
	client   *http.Client
	timeout  time.Duration
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Synchronizer) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout bounds each download.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Synchronizer) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger sets the synchronizer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the download observer.
func WithRecorder(recorder Recorder) Option {
	return func(s *Synchronizer) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// NewSynchronizer creates a synchronizer writing into dir.
func NewSynchronizer(dir string, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		dir:      dir,
		client:   &http.Client{},
		timeout:  60 * time.Second,
		logger:   logging.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "media")
	return s
}

// Dir returns the media directory.
func (s *Synchronizer) Dir() string {
	return s.dir
}

// Sync mirrors every image of content locally and returns a copy of content
// whose attachment URLs point at the local files that exist. Collections are
// processed concurrently. Individual download failures never fail the pass.
func (s *Synchronizer) Sync(ctx context.Context, content portfolio.Content) (portfolio.Content, Report, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return content, Report{}, fmt.Errorf("create media directory: %w", err)
	}
	plan := NewPlan(content)
	logger := logging.WithContext(ctx, s.logger)

	var (
		mu     sync.Mutex
		report = Report{Active: map[string]struct{}{}}
		out    = content
	)
	merge := func(stats portfolio.SyncStats, active []string) {
		mu.Lock()
		defer mu.Unlock()
		report.Stats.Add(stats)
		for _, name := range active {
			report.Active[name] = struct{}{}
		}
	}

	cols := content.Collections()
	synced := make([][]portfolio.Item, len(cols))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		photo, stats, active := s.syncProfilePhoto(gctx, logger, content.General.ProfilePhoto, plan)
		out.General.ProfilePhoto = photo
		merge(stats, active)
		return nil
	})
	for i, col := range cols {
		g.Go(func() error {
			items, stats, active := s.syncCollection(gctx, logger, col, plan)
			synced[i] = items
			merge(stats, active)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return content, Report{}, err
	}

	for i, col := range cols {
		out.SetCollection(col.Name, synced[i])
	}
	logger.Info("media sync complete",
		logging.Int("total_images", report.Stats.TotalImages),
		logging.Int("downloaded", report.Stats.Downloaded),
		logging.Int("reused", report.Stats.Reused),
		logging.Int("failed", report.Stats.Failed),
		logging.String(logging.FieldEventType, "media_sync_complete"),
	)
	return out, report, nil
}

func (s *Synchronizer) syncCollection(ctx context.Context, logger *slog.Logger, col portfolio.Collection, plan *Plan) ([]portfolio.Item, portfolio.SyncStats, []string) {
	var stats portfolio.SyncStats
	var active []string
	if col.Items == nil {
		return nil, stats, nil
	}
	items := make([]portfolio.Item, len(col.Items))
	for i, item := range col.Items {
		items[i] = item
		if len(item.Attachments) == 0 {
			continue
		}
		attachments := make([]portfolio.Attachment, len(item.Attachments))
		copy(attachments, item.Attachments)
		for j, att := range attachments {
			if name, ok := LocalName(att.URL); ok {
				if fileutil.Exists(filepath.Join(s.dir, name)) {
					active = append(active, name)
				}
				continue
			}
			name, ok := plan.Name(Ref{Collection: col.Name, Item: i, Attachment: j})
			if !ok {
				continue
			}
			stats.TotalImages++
			outcome := s.fetch(ctx, logger, att.URL, name,
				logging.String(logging.FieldCollection, col.Name),
				logging.String("item_id", item.ID),
			)
			switch outcome {
			case OutcomeFailed:
				stats.Failed++
				continue
			case OutcomeReused:
				stats.Reused++
			default:
				stats.Downloaded++
			}
			active = append(active, name)
			attachments[j].OriginalURL = att.URL
			attachments[j].URL = portfolio.MediaURLPrefix + name
		}
		items[i].Attachments = attachments
	}
	return items, stats, active
}

func (s *Synchronizer) syncProfilePhoto(ctx context.Context, logger *slog.Logger, photo string, plan *Plan) (string, portfolio.SyncStats, []string) {
	var stats portfolio.SyncStats
	if name, ok := LocalName(photo); ok {
		if fileutil.Exists(filepath.Join(s.dir, name)) {
			return photo, stats, []string{name}
		}
		return photo, stats, nil
	}
	name, ok := plan.ProfilePhoto()
	if !ok {
		return photo, stats, nil
	}
	stats.TotalImages++
	switch s.fetch(ctx, logger, photo, name, logging.String(logging.FieldCollection, portfolio.NameGeneral)) {
	case OutcomeFailed:
		stats.Failed++
		return photo, stats, nil
	case OutcomeReused:
		stats.Reused++
	default:
		stats.Downloaded++
	}
	return portfolio.MediaURLPrefix + name, stats, []string{name}
}

// fetch makes name present in the media directory, downloading rawURL when needed.
func (s *Synchronizer) fetch(ctx context.Context, logger *slog.Logger, rawURL, name string, attrs ...logging.Attr) string {
	target := filepath.Join(s.dir, name)
	if fileutil.Exists(target) {
		s.recorder.ObserveDownload(OutcomeReused, 0, 0)
		logger.Debug("media already present", logging.Args(append(attrs, logging.String("file", name))...)...)
		return OutcomeReused
	}

	start := time.Now()
	written, err := s.download(ctx, rawURL, target)
	elapsed := time.Since(start)
	if err != nil {
		s.recorder.ObserveDownload(OutcomeFailed, 0, elapsed)
		attrs = append(attrs,
			logging.String("file", name),
			logging.String("source_url", sourceKey(rawURL)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the next sync retries the download"),
			logging.String(logging.FieldImpact, "attachment keeps its remote URL"),
		)
		logging.WarnWithContext(logger, "media download failed", "media_download_failed", attrs...)
		return OutcomeFailed
	}
	s.recorder.ObserveDownload(OutcomeDownloaded, written, elapsed)
	logger.Info("media downloaded", logging.Args(append(attrs,
		logging.String("file", name),
		logging.Int64("bytes", written),
		logging.Duration("elapsed", elapsed),
		logging.String(logging.FieldEventType, "media_downloaded"),
	)...)...)
	return OutcomeDownloaded
}

func (s *Synchronizer) download(ctx context.Context, rawURL, target string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("media host returned %d", resp.StatusCode)
	}
	written, err := fileutil.WriteReaderAtomic(target, resp.Body, 0o644)
	if err != nil {
		return 0, err
	}
	if written == 0 {
		_ = os.Remove(target)
		return 0, errors.New("media host returned an empty body")
	}
	return written, nil
}
