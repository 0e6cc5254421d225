// Package history persists finished shots in an embedded SQLite database.
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

	"github.com/rbright/shotclock/internal/logging"
	"github.com/rbright/shotclock/internal/shot"
)

// migrations are applied in order, once each. Append only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS shots (
		id           TEXT PRIMARY KEY,
		started_at   INTEGER NOT NULL,
		finished_at  INTEGER NOT NULL,
		duration_ms  INTEGER NOT NULL,
		target_ms    INTEGER NOT NULL,
		verdict      TEXT NOT NULL,
		trigger_kind TEXT NOT NULL,
		device       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shots_finished ON shots(finished_at)`,
}

// Store wraps the shot database.
type Store struct {
	db *sql.DB
}

// Summary aggregates every recorded shot.
type Summary struct {
	Count    int
	OnTarget int
	Average  time.Duration
}

// DefaultPath is history.db under the shotclock state directory.
func DefaultPath() (string, error) {
	dir, err := logging.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Open opens (or creates) the database at path and applies pending migrations.
// Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path must not be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, stmt := range migrations {
		version := i + 1
		if version <= current {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations(version) VALUES(?)`, version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}
	return nil
}

// Record implements session.Recorder.
func (s *Store) Record(ctx context.Context, sh shot.Shot) error {
	if strings.TrimSpace(sh.ID) == "" {
		return errors.New("shot id must not be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shots(id, started_at, finished_at, duration_ms, target_ms, verdict, trigger_kind, device)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		sh.ID,
		sh.StartedAt.UnixMilli(),
		sh.FinishedAt.UnixMilli(),
		sh.Duration.Milliseconds(),
		sh.Target.Milliseconds(),
		string(sh.Verdict),
		string(sh.Trigger),
		sh.Device,
	)
	if err != nil {
		return fmt.Errorf("insert shot %s: %w", sh.ID, err)
	}
	return nil
}

// Recent returns up to limit shots, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]shot.Shot, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, duration_ms, target_ms, verdict, trigger_kind, device
		 FROM shots ORDER BY finished_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query shots: %w", err)
	}
	defer rows.Close()

	var shots []shot.Shot
	for rows.Next() {
		var (
			sh                   shot.Shot
			started, finished    int64
			durationMS, targetMS int64
			verdict, triggerKind string
		)
		if err := rows.Scan(&sh.ID, &started, &finished, &durationMS, &targetMS, &verdict, &triggerKind, &sh.Device); err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		sh.StartedAt = time.UnixMilli(started)
		sh.FinishedAt = time.UnixMilli(finished)
		sh.Duration = time.Duration(durationMS) * time.Millisecond
		sh.Target = time.Duration(targetMS) * time.Millisecond
		sh.Verdict = shot.Verdict(verdict)
		sh.Trigger = shot.Trigger(triggerKind)
		shots = append(shots, sh)
	}
	return shots, rows.Err()
}

// Summarize aggregates all recorded shots.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var (
		summary Summary
		avgMS   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN verdict = ? THEN 1 ELSE 0 END), 0), AVG(duration_ms) FROM shots`,
		string(shot.VerdictOnTarget),
	).Scan(&summary.Count, &summary.OnTarget, &avgMS)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize shots: %w", err)
	}
	if avgMS.Valid {
		summary.Average = time.Duration(avgMS.Float64 * float64(time.Millisecond))
	}
	return summary, nil
}
