package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"folio/internal/config"
	"folio/internal/fileutil"
	"folio/internal/portfolio"
)

// ErrNoSnapshot is returned when a document is missing or unreadable.
var ErrNoSnapshot = errors.New("snapshot not available")

// Store reads the persisted snapshot documents.
type Store struct {
	snapshotPath string
	metadataPath string
	fallbackPath string
}

// NewStore returns a reader over the configured content directory.
func NewStore(cfg *config.Config) *Store {
	return &Store{
		snapshotPath: cfg.SnapshotPath(),
		metadataPath: cfg.MetadataPath(),
		fallbackPath: cfg.Paths.FallbackSnapshot,
	}
}

// SnapshotPath returns the path of profileData.json.
func (s *Store) SnapshotPath() string {
	return s.snapshotPath
}

// Snapshot returns the raw snapshot document. A missing or malformed file yields ErrNoSnapshot.
func (s *Store) Snapshot() ([]byte, error) {
	return readJSONDocument(s.snapshotPath)
}

// Fallback returns the raw last-known-good document.
func (s *Store) Fallback() ([]byte, error) {
	if s.fallbackPath == "" {
		return nil, ErrNoSnapshot
	}
	return readJSONDocument(s.fallbackPath)
}

// Metadata returns the last update metadata, or nil when none has been written.
func (s *Store) Metadata() (*portfolio.UpdateMetadata, error) {
	data, err := os.ReadFile(s.metadataPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read update metadata: %w", err)
	}
	var meta portfolio.UpdateMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode update metadata: %w", err)
	}
	return &meta, nil
}

// HasStaticFiles reports whether both documents exist.
func (s *Store) HasStaticFiles() bool {
	return fileutil.Exists(s.snapshotPath) && fileutil.Exists(s.metadataPath)
}

// Decode parses the current snapshot.
func (s *Store) Decode() (*portfolio.Snapshot, error) {
	data, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	var snap portfolio.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func readJSONDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("%w: %v", ErrNoSnapshot, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid JSON", ErrNoSnapshot, path)
	}
	return data, nil
}

func writeJSONDocument(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
