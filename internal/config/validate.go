package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateNotion(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotion() error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	if c.Notion.IntegrationSecret == "" {
		return fmt.Errorf("notion.integration_secret is required. Set NOTION_INTEGRATION_SECRET env var or edit %s (create with 'folio config init')", defaultPath)
	}
	if c.Notion.PageURL == "" {
		return fmt.Errorf("notion.page_url is required. Set NOTION_PAGE_URL env var or edit %s", defaultPath)
	}
	if c.Notion.PageID == "" {
		return fmt.Errorf("notion.page_url %q does not contain a page id", c.Notion.PageURL)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ContentDir) == "" {
		return errors.New("paths.content_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

type setting struct {
	key   string
	value int
}

func (c *Config) validateSync() error {
	return ensurePositive(
		setting{"sync.download_timeout", c.Sync.DownloadTimeout},
		setting{"sync.lock_timeout", c.Sync.LockTimeout},
		setting{"notion.request_timeout", c.Notion.RequestTimeout},
		setting{"notifications.request_timeout", c.Notifications.RequestTimeout},
	)
}

// ensurePositive reports the first non-positive setting in argument order.
func ensurePositive(settings ...setting) error {
	for _, s := range settings {
		if s.value <= 0 {
			return fmt.Errorf("%s must be positive", s.key)
		}
	}
	return nil
}
