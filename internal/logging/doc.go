// Package logging builds the slog loggers shared by the folio daemon and CLI.
//
// It owns the console and JSON handlers, level parsing, and the helpers that
// stamp log lines with a component name and the sync run identifier carried
// on a context. Warnings and errors go through WarnWithContext and
// ErrorWithContext so every such line names an event type and a hint.
package logging
