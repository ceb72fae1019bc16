package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"folio/internal/config"
	"folio/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	cms        *testsupport.FakeNotion
	media      *testsupport.MediaHost
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cms := testsupport.NewFakeNotion(t)
	media := testsupport.NewMediaHost(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNotionBaseURL(cms.URL()))

	homeDir := filepath.Join(testsupport.BaseDir(cfg), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("NOTION_INTEGRATION_SECRET", "")
	t.Setenv("NOTION_PAGE_URL", "")
	t.Setenv("NTFY_TOPIC", "")

	configPath := filepath.Join(testsupport.BaseDir(cfg), "folio.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, cms: cms, media: media, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
content_dir = %q
state_dir = %q
log_dir = %q
fallback_snapshot = %q
api_bind = %q

[notion]
integration_secret = %q
page_url = %q
base_url = %q

[sync]
interval_minutes = 0
download_timeout = 5
lock_timeout = 5
`,
		cfg.Paths.ContentDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.FallbackSnapshot,
		cfg.Paths.APIBind,
		cfg.Notion.IntegrationSecret,
		cfg.Notion.PageURL,
		cfg.Notion.BaseURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
