package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"folio/internal/portfolio"
)

// DefaultKeep is how many runs Prune retains by default.
const DefaultKeep = 500

// Run is one recorded synchronization pass.
type Run struct {
	ID                string              `json:"id"`
	Trigger           string              `json:"trigger"`
	StartedAt         time.Time           `json:"startedAt"`
	FinishedAt        time.Time           `json:"finishedAt"`
	Success           bool                `json:"success"`
	Error             string              `json:"error,omitempty"`
	Items             int                 `json:"items"`
	FailedCollections []string            `json:"failedCollections,omitempty"`
	Stats             portfolio.SyncStats `json:"stats"`
}

// Duration returns how long the pass took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists sync runs in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure state directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// timestampLayout keeps every stored timestamp the same width so text
// ordering matches time ordering. Rows are parsed with RFC3339Nano, which
// accepts this layout.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record inserts a run.
func (s *Store) Record(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (
            id, trigger_source, started_at, finished_at, success, error_message, items, failed_collections,
            total_images, downloaded, reused, failed, cleaned
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Trigger,
		run.StartedAt.UTC().Format(timestampLayout),
		run.FinishedAt.UTC().Format(timestampLayout),
		boolToInt(run.Success),
		nullableString(run.Error),
		run.Items,
		nullableString(strings.Join(run.FailedCollections, ",")),
		run.Stats.TotalImages,
		run.Stats.Downloaded,
		run.Stats.Reused,
		run.Stats.Failed,
		run.Stats.Cleaned,
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

const runColumns = `id, trigger_source, started_at, finished_at, success, error_message, items, failed_collections,
    total_images, downloaded, reused, failed, cleaned`

// List returns up to limit runs, newest first. A limit <= 0 returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync runs: %w", err)
	}
	return runs, nil
}

// Latest returns the most recent run, or nil when none is recorded.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_runs WHERE id NOT IN (
            SELECT id FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT ?
        )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune sync runs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run                 Run
		started, finished   string
		success             int
		errMsg, failedNames sql.NullString
	)
	if err := scanner.Scan(
		&run.ID, &run.Trigger, &started, &finished, &success, &errMsg, &run.Items, &failedNames,
		&run.Stats.TotalImages, &run.Stats.Downloaded, &run.Stats.Reused, &run.Stats.Failed, &run.Stats.Cleaned,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan sync run: %w", err)
	}
	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	run.Success = success != 0
	run.Error = errMsg.String
	if failedNames.Valid && failedNames.String != "" {
		run.FailedCollections = strings.Split(failedNames.String, ",")
	}
	return run, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
