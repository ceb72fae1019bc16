package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var pageIDPattern = regexp.MustCompile(`(?i)([a-f0-9]{32})(?:[?#]|$)`)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNotion()
	c.normalizeSync()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ContentDir) == "" {
		c.Paths.ContentDir = defaultContentDir
	}
	if c.Paths.ContentDir, err = expandPath(c.Paths.ContentDir); err != nil {
		return fmt.Errorf("paths.content_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.FallbackSnapshot, err = expandPath(strings.TrimSpace(c.Paths.FallbackSnapshot)); err != nil {
		return fmt.Errorf("paths.fallback_snapshot: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("FOLIO_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeNotion() {
	c.Notion.IntegrationSecret = strings.TrimSpace(c.Notion.IntegrationSecret)
	if c.Notion.IntegrationSecret == "" {
		if value, ok := os.LookupEnv("NOTION_INTEGRATION_SECRET"); ok {
			c.Notion.IntegrationSecret = strings.TrimSpace(value)
		}
	}
	c.Notion.PageURL = strings.TrimSpace(c.Notion.PageURL)
	if c.Notion.PageURL == "" {
		if value, ok := os.LookupEnv("NOTION_PAGE_URL"); ok {
			c.Notion.PageURL = strings.TrimSpace(value)
		}
	}
	c.Notion.PageID = ExtractPageID(c.Notion.PageURL)
	c.Notion.BaseURL = strings.TrimRight(strings.TrimSpace(c.Notion.BaseURL), "/")
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = defaultNotionBaseURL
	}
	c.Notion.Version = strings.TrimSpace(c.Notion.Version)
	if c.Notion.Version == "" {
		c.Notion.Version = defaultNotionVersion
	}
	if c.Notion.RequestTimeout <= 0 {
		c.Notion.RequestTimeout = defaultNotionTimeout
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.IntervalMinutes < 0 {
		c.Sync.IntervalMinutes = 0
	}
	if c.Sync.DownloadTimeout <= 0 {
		c.Sync.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Sync.LockTimeout <= 0 {
		c.Sync.LockTimeout = defaultLockTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// ExtractPageID returns the 32 character hex page id embedded in a Notion page URL.
// Dashed UUID ids are accepted as well. An empty string is returned when no id is found.
func ExtractPageID(pageURL string) string {
	trimmed := strings.TrimSpace(pageURL)
	if trimmed == "" {
		return ""
	}
	compact := strings.ReplaceAll(trimmed, "-", "")
	if match := pageIDPattern.FindStringSubmatch(compact); len(match) == 2 {
		return strings.ToLower(match[1])
	}
	if match := pageIDPattern.FindStringSubmatch(trimmed); len(match) == 2 {
		return strings.ToLower(match[1])
	}
	return ""
}
