// Package preflight provides readiness checks for the directories and the
// Notion workspace that folio depends on.
//
// The daemon logs the results at startup and "folio status --check" prints
// them. A failed check never stops a pass on its own; it explains why the
// pass that follows is likely to fail.
package preflight
