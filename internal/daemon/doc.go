// Package daemon coordinates the long-running folio process.
//
// It enforces single-instance execution with a flock-based lock, serves the
// HTTP surface, and drives scheduled synchronization passes. Run wires the
// whole runtime from configuration and blocks until SIGINT or SIGTERM.
package daemon
