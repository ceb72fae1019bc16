// Package config loads, normalizes, and validates folio configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads a local .env file, and honours
// environment fallbacks such as NOTION_INTEGRATION_SECRET and NOTION_PAGE_URL.
// The Config type centralizes every knob the daemon and CLI need so content,
// state, and credential settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved Notion page id, and clear validation errors.
package config
