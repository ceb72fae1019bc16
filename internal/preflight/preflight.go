package preflight

import (
	"context"

	"folio/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for cfg. The Notion check is
// skipped when lister is nil.
func RunAll(ctx context.Context, cfg *config.Config, lister DatabaseLister) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Content directory", cfg.Paths.ContentDir),
		CheckDirectoryAccess("Media directory", cfg.MediaDir()),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.Paths.FallbackSnapshot != "" {
		results = append(results, CheckReadableFile("Fallback snapshot", cfg.Paths.FallbackSnapshot))
	}
	if lister != nil {
		results = append(results, CheckNotion(ctx, lister, cfg.Notion.PageID))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
