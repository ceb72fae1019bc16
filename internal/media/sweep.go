package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"folio/internal/logging"
)

// SweepResult lists what a sweep removed.
type SweepResult struct {
	Removed []string
	Errors  []error
}

// Sweep deletes every regular file in the media directory whose name is not in
// active. Subdirectories are left alone. Removal failures are collected and logged.
func (s *Synchronizer) Sweep(ctx context.Context, active map[string]struct{}) (SweepResult, error) {
	var result SweepResult
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return result, fmt.Errorf("read media directory: %w", err)
	}
	logger := logging.WithContext(ctx, s.logger)

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if _, keep := active[name]; keep {
			continue
		}
		path := filepath.Join(s.dir, name)
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("remove %s: %w", name, err))
			logging.WarnWithContext(logger, "unused media removal failed; file remains", "media_cleanup_failed",
				logging.String("file", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check content_dir permissions"),
				logging.String(logging.FieldImpact, "stale file stays in the media directory"),
			)
			continue
		}
		result.Removed = append(result.Removed, name)
		logger.Info("unused media removed",
			logging.String("file", name),
			logging.String(logging.FieldEventType, "media_cleanup"),
		)
	}
	return result, nil
}
