package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/history"
	"folio/internal/logging"
	"folio/internal/snapshot"
	"folio/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, testsupport.TestPageID)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "init", "--stdout"}, "")
	if err != nil {
		t.Fatalf("config init --stdout: %v", err)
	}
	requireContains(t, out, "[notion]")
}

func TestMissingCredentialsIsFatal(t *testing.T) {
	env := setupCLITestEnv(t)
	empty := filepath.Join(t.TempDir(), "empty.toml")
	if err := os.WriteFile(empty, []byte("[paths]\ncontent_dir = \""+env.cfg.Paths.ContentDir+"\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := runCLI(t, []string{"status"}, empty)
	if err == nil {
		t.Fatal("expected missing credentials to fail")
	}
	requireContains(t, err.Error(), "integration_secret")
}

func TestSyncStatusAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cms.AddDatabase("Projects", "Title", "Attachments")
	env.cms.AddPage("Projects", "p1", map[string]any{
		"Title":       testsupport.Title("Foo"),
		"Attachments": testsupport.Files(env.media.URL("foo.png")),
	})

	out, _, err := runCLI(t, []string{"sync"}, env.configPath)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	requireContains(t, out, "Snapshot updated")
	requireContains(t, out, "Downloaded")
	if _, err := os.Stat(filepath.Join(env.cfg.MediaDir(), "Foo-1.png")); err != nil {
		t.Fatalf("expected mirrored media: %v", err)
	}

	out, _, err = runCLI(t, []string{"sync", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("sync --json: %v", err)
	}
	var result snapshot.Result
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode sync output: %v\n%s", err, out)
	}
	if !result.Success || result.Stats == nil || result.Stats.Reused != 1 || result.Trigger != snapshot.TriggerCLI {
		t.Fatalf("unexpected second sync %+v", result)
	}

	out, _, err = runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !report.HasStaticFiles || report.LastUpdate == nil || report.LastRun == nil || report.LastRun.ID != result.RunID {
		t.Fatalf("unexpected status %+v", report)
	}
	if report.DaemonRunning {
		t.Fatal("daemon should not be reported running")
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[OK] Present")
	requireContains(t, out, "Succeeded (cli, 1 items)")

	if err := os.MkdirAll(filepath.Dir(env.cfg.Paths.FallbackSnapshot), 0o755); err != nil {
		t.Fatalf("mkdir fallback: %v", err)
	}
	if err := os.WriteFile(env.cfg.Paths.FallbackSnapshot, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write fallback: %v", err)
	}
	out, _, err = runCLI(t, []string{"status", "--check", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status --check: %v", err)
	}
	report = statusReport{}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status checks: %v\n%s", err, out)
	}
	if len(report.Checks) == 0 {
		t.Fatal("expected preflight checks in report")
	}
	for _, check := range report.Checks {
		if !check.Passed {
			t.Fatalf("check %q failed: %s", check.Name, check.Detail)
		}
	}

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != result.RunID {
		t.Fatalf("unexpected history %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Trigger")
	requireContains(t, out, "cli")
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No sync passes recorded")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestLogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log entries available")

	path := filepath.Join(env.cfg.Paths.LogDir, logging.LogFileName)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	if err := os.WriteFile(path, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	out, _, err = runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "first") {
		t.Fatalf("expected only trailing lines, got %q", out)
	}
	requireContains(t, out, "second\nthird")
}
