package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"folio/internal/config"
	"folio/internal/history"
	"folio/internal/notion"
	"folio/internal/portfolio"
	"folio/internal/preflight"
	"folio/internal/snapshot"
)

type statusReport struct {
	DaemonRunning  bool                      `json:"daemonRunning"`
	HasStaticFiles bool                      `json:"hasStaticFiles"`
	LastUpdate     *portfolio.UpdateMetadata `json:"lastUpdate"`
	LastRun        *history.Run              `json:"lastRun"`
	ContentDir     string                    `json:"contentDir"`
	NotionPageID   string                    `json:"notionPageId"`
	Notifications  bool                      `json:"notifications"`
	SyncInterval   string                    `json:"syncInterval"`
	Checks         []preflight.Result        `json:"checks,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		runChecks  bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show snapshot, daemon and last sync status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := collectStatus(cmd, ctx, cfg)
			if err != nil {
				return err
			}
			if runChecks {
				client, err := notion.New(cfg.Notion.IntegrationSecret, cfg.Notion.BaseURL, cfg.Notion.Version,
					notion.WithLogger(ctx.cliLogger(cmd)),
					notion.WithTimeout(time.Duration(cfg.Notion.RequestTimeout)*time.Second),
				)
				if err != nil {
					return err
				}
				report.Checks = preflight.RunAll(cmd.Context(), cfg, client)
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			for _, line := range statusLines(report, shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&runChecks, "check", false, "Also verify directories and Notion access")
	return cmd
}

func collectStatus(cmd *cobra.Command, ctx *commandContext, cfg *config.Config) (statusReport, error) {
	store := snapshot.NewStore(cfg)
	meta, err := store.Metadata()
	if err != nil {
		return statusReport{}, err
	}
	report := statusReport{
		DaemonRunning:  daemonRunning(cfg),
		HasStaticFiles: store.HasStaticFiles(),
		LastUpdate:     meta,
		ContentDir:     cfg.Paths.ContentDir,
		NotionPageID:   cfg.Notion.PageID,
		Notifications:  strings.TrimSpace(cfg.Notifications.NtfyTopic) != "",
		SyncInterval:   "disabled",
	}
	if interval := cfg.SyncInterval(); interval > 0 {
		report.SyncInterval = interval.String()
	}
	err = ctx.withHistory(func(h *history.Store) error {
		last, err := h.Latest(cmd.Context())
		report.LastRun = last
		return err
	})
	return report, err
}

// daemonRunning probes the daemon lock without holding it.
func daemonRunning(cfg *config.Config) bool {
	lock := flock.New(cfg.DaemonLockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if ok {
		_ = lock.Unlock()
		return false
	}
	return true
}

func statusLines(report statusReport, colorize bool) []string {
	lines := renderSectionHeader("folio", colorize)

	if report.DaemonRunning {
		lines = append(lines, renderStatusLine("Daemon", statusOK, "Running", colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusInfo, "Not running", colorize))
	}

	if report.HasStaticFiles {
		lines = append(lines, renderStatusLine("Snapshot", statusOK, "Present in "+report.ContentDir, colorize))
	} else {
		lines = append(lines, renderStatusLine("Snapshot", statusWarn, "Missing; run 'folio sync'", colorize))
	}

	if meta := report.LastUpdate; meta != nil {
		msg := meta.Timestamp.Local().Format("2006-01-02 15:04:05") + " (" + humanizeAge(time.Since(meta.Timestamp)) + " ago)"
		kind := statusOK
		if meta.Stats != nil && meta.Stats.Failed > 0 {
			kind = statusWarn
			msg += fmt.Sprintf(", %d image(s) still remote", meta.Stats.Failed)
		}
		lines = append(lines, renderStatusLine("Last update", kind, msg, colorize))
	}

	switch run := report.LastRun; {
	case run == nil:
		lines = append(lines, renderStatusLine("Last sync", statusInfo, "No passes recorded", colorize))
	case !run.Success:
		lines = append(lines, renderStatusLine("Last sync", statusError, fmt.Sprintf("Failed (%s): %s", run.Trigger, run.Error), colorize))
	case len(run.FailedCollections) > 0:
		lines = append(lines, renderStatusLine("Last sync", statusWarn, "Degraded: "+strings.Join(run.FailedCollections, ", ")+" empty", colorize))
	default:
		lines = append(lines, renderStatusLine("Last sync", statusOK, fmt.Sprintf("Succeeded (%s, %d items)", run.Trigger, run.Items), colorize))
	}

	lines = append(lines, renderStatusLine("Schedule", statusInfo, report.SyncInterval, colorize))
	lines = append(lines, renderStatusLine("Notion page", statusInfo, report.NotionPageID, colorize))
	if report.Notifications {
		lines = append(lines, renderStatusLine("Notifications", statusOK, "ntfy configured", colorize))
	} else {
		lines = append(lines, renderStatusLine("Notifications", statusInfo, "Disabled", colorize))
	}

	if len(report.Checks) > 0 {
		lines = append(lines, "")
		lines = append(lines, renderSectionHeader("Checks", colorize)...)
		for _, check := range report.Checks {
			kind := statusOK
			if !check.Passed {
				kind = statusError
			}
			lines = append(lines, renderStatusLine(check.Name, kind, check.Detail, colorize))
		}
	}
	return lines
}

func humanizeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
