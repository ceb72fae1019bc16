package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"folio/internal/config"
	"folio/internal/notifications"
	"folio/internal/portfolio"
)

type captured struct {
	title    string
	body     string
	tags     string
	priority string
}

func newNtfy(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var (
		mu   sync.Mutex
		msgs []captured
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		msgs = append(msgs, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), msgs...)
	}
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySync(context.Background(), notifications.Summary{Trigger: "cli"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifySyncFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		summary        notifications.Summary
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:           "failure",
			summary:        notifications.Summary{Trigger: "schedule", Err: errors.New("list databases: 401"), Duration: 2 * time.Second},
			expectTitle:    "folio - Sync Failed",
			expectMessage:  "Sync (schedule) failed after 2s: list databases: 401",
			expectTags:     "folio,sync,error",
			expectPriority: "high",
		},
		{
			name: "degraded",
			summary: notifications.Summary{Trigger: "api", Success: true, FailedCollections: []string{"Writing"},
				Stats: portfolio.SyncStats{TotalImages: 5, Failed: 2}},
			expectTitle:   "folio - Sync Degraded",
			expectMessage: "Images still remote: 2 of 5",
			expectTags:    "folio,sync,warning",
		},
		{
			name:           "completed",
			summary:        notifications.Summary{Trigger: "cli", Success: true, Stats: portfolio.SyncStats{TotalImages: 3, Downloaded: 1, Reused: 2}},
			expectTitle:    "folio - Snapshot Updated",
			expectMessage:  "3 images (1 downloaded, 2 reused)",
			expectTags:     "folio,sync,completed",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, messages := newNtfy(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.SyncFailures = true
			cfg.Notifications.SyncCompleted = true
			svc := notifications.NewService(&cfg)

			if err := svc.NotifySync(context.Background(), tc.summary); err != nil {
				t.Fatalf("NotifySync returned error: %v", err)
			}
			got := messages()
			if len(got) != 1 {
				t.Fatalf("expected one message, got %d", len(got))
			}
			msg := got[0]
			if msg.title != tc.expectTitle {
				t.Errorf("title = %q, want %q", msg.title, tc.expectTitle)
			}
			if !strings.Contains(msg.body, tc.expectMessage) {
				t.Errorf("body %q does not contain %q", msg.body, tc.expectMessage)
			}
			if msg.tags != tc.expectTags {
				t.Errorf("tags = %q, want %q", msg.tags, tc.expectTags)
			}
			if msg.priority != tc.expectPriority {
				t.Errorf("priority = %q, want %q", msg.priority, tc.expectPriority)
			}
		})
	}
}

func TestNotifySyncRespectsToggles(t *testing.T) {
	server, messages := newNtfy(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.SyncFailures = false
	cfg.Notifications.SyncCompleted = false
	svc := notifications.NewService(&cfg)

	_ = svc.NotifySync(context.Background(), notifications.Summary{Trigger: "cli", Err: errors.New("boom")})
	_ = svc.NotifySync(context.Background(), notifications.Summary{Trigger: "cli", Success: true})
	if got := messages(); len(got) != 0 {
		t.Fatalf("expected no messages, got %+v", got)
	}
}

func TestSendReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	if err := notifications.NewService(&cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
