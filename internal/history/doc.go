// Package history records synchronization passes in a SQLite database under
// the state directory. Each pass becomes one row holding its trigger, timing,
// outcome and media statistics; the CLI and the HTTP surface read them back.
package history
