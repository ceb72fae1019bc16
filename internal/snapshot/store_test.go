package snapshot_test

import (
	"errors"
	"os"
	"testing"

	"folio/internal/snapshot"
	"folio/internal/testsupport"
)

func TestStoreMissingDocuments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := snapshot.NewStore(cfg)

	if _, err := store.Snapshot(); !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if _, err := store.Fallback(); !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot for fallback, got %v", err)
	}
	meta, err := store.Metadata()
	if err != nil || meta != nil {
		t.Fatalf("expected nil metadata, got %+v %v", meta, err)
	}
	if store.HasStaticFiles() {
		t.Fatal("expected no static files")
	}
}

func TestStoreRejectsMalformedSnapshot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.WriteFile(cfg.SnapshotPath(), []byte(`{"general":`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := snapshot.NewStore(cfg).Snapshot(); !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot for truncated JSON, got %v", err)
	}
}

func TestStoreFallbackServedVerbatim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	body := `{"general":{"displayName":"Static"}}`
	testsupport.WriteFile(t, cfg.Paths.FallbackSnapshot, 1)
	if err := os.WriteFile(cfg.Paths.FallbackSnapshot, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := snapshot.NewStore(cfg).Fallback()
	if err != nil {
		t.Fatalf("Fallback: %v", err)
	}
	if string(data) != body {
		t.Fatalf("fallback altered: %s", data)
	}
}
