// Package notifications pushes sync pass results to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers always hold a usable Service. Which outcomes are published is
// controlled by the notifications section of config.toml.
package notifications
