package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"folio/internal/config"
	"folio/internal/portfolio"
)

const userAgent = "folio/1.0"

// Summary describes a finished sync pass.
type Summary struct {
	RunID             string
	Trigger           string
	Success           bool
	Err               error
	Duration          time.Duration
	Stats             portfolio.SyncStats
	FailedCollections []string
}

// Degraded reports whether a successful pass lost content or media along the way.
func (s Summary) Degraded() bool {
	return s.Success && (s.Stats.Failed > 0 || len(s.FailedCollections) > 0)
}

// Service defines the notification surface exposed to the sync pipeline.
type Service interface {
	NotifySync(ctx context.Context, summary Summary) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		onFailure:  cfg.Notifications.SyncFailures,
		onComplete: cfg.Notifications.SyncCompleted,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	onFailure  bool
	onComplete bool
}

func (n *ntfyService) NotifySync(ctx context.Context, s Summary) error {
	duration := s.Duration.Round(time.Second)
	switch {
	case !s.Success:
		if !n.onFailure {
			return nil
		}
		reason := "unknown error"
		if s.Err != nil {
			reason = strings.TrimSpace(s.Err.Error())
		}
		return n.send(ctx, payload{
			title:    "folio - Sync Failed",
			message:  fmt.Sprintf("Sync (%s) failed after %s: %s\nThe previous snapshot is still being served.", s.Trigger, duration, reason),
			tags:     []string{"folio", "sync", "error"},
			priority: "high",
		})
	case s.Degraded():
		if !n.onFailure {
			return nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Sync (%s) finished with problems in %s.", s.Trigger, duration)
		if len(s.FailedCollections) > 0 {
			fmt.Fprintf(&b, "\nEmpty collections: %s", strings.Join(s.FailedCollections, ", "))
		}
		if s.Stats.Failed > 0 {
			fmt.Fprintf(&b, "\nImages still remote: %d of %d", s.Stats.Failed, s.Stats.TotalImages)
		}
		return n.send(ctx, payload{
			title:   "folio - Sync Degraded",
			message: b.String(),
			tags:    []string{"folio", "sync", "warning"},
		})
	default:
		if !n.onComplete {
			return nil
		}
		return n.send(ctx, payload{
			title: "folio - Snapshot Updated",
			message: fmt.Sprintf("Sync (%s) complete in %s: %d images (%d downloaded, %d reused), %d removed",
				s.Trigger, duration, s.Stats.TotalImages, s.Stats.Downloaded, s.Stats.Reused, s.Stats.Cleaned),
			tags:     []string{"folio", "sync", "completed"},
			priority: "low",
		})
	}
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "folio - Test",
		message:  "Notification system test",
		tags:     []string{"folio", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySync(context.Context, Summary) error { return nil }
func (noopService) TestNotification(context.Context) error   { return nil }
