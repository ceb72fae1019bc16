package testsupport

import (
	"path/filepath"
	"testing"

	"folio/internal/config"
)

// TestPageID is the root page id used by generated configs and the fake CMS.
const TestPageID = "0123456789abcdef0123456789abcdef"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Notion.IntegrationSecret = "secret_test"
	cfgVal.Notion.PageURL = "https://www.notion.so/Portfolio-" + TestPageID
	cfgVal.Notion.PageID = TestPageID
	cfgVal.Paths.ContentDir = filepath.Join(base, "content")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.FallbackSnapshot = filepath.Join(base, "fallback", "profileData.json")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Sync.IntervalMinutes = 0
	cfgVal.Sync.DownloadTimeout = 5
	cfgVal.Sync.LockTimeout = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithNotionBaseURL points the config at a fake CMS.
func WithNotionBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notion.BaseURL = url
	}
}

// WithAPIToken sets the bearer token required by admin endpoints.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithNtfyTopic sets the notification topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ContentDir)
}
