// Package journal keeps a SQLite record of generation requests. Only
// counts and outcomes are stored, never the submitted text or the tones.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/loqalabs/soundcode/internal/config"
)

const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
)

// Entry is one generation outcome.
type Entry struct {
	ID         string
	Source     string
	Characters int
	Tones      int
	Dropped    int
	Status     string
	CreatedAt  time.Time
}

// Journal wraps the SQLite database. In ephemeral mode it has no database
// and every call is a no-op.
type Journal struct {
	db    *sql.DB
	cfg   config.JournalConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the journal according to cfg. The session mode starts
// from an empty table on every open.
func Open(ctx context.Context, cfg config.JournalConfig, log *slog.Logger) (*Journal, error) {
	j := &Journal{cfg: cfg, log: log.With(slog.String("component", "journal")), clock: time.Now}
	if cfg.RetentionMode == "ephemeral" {
		return j, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	j.db = db

	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.RetentionMode == "session" {
		if _, err := db.ExecContext(ctx, `DELETE FROM generations`); err != nil {
			db.Close()
			return nil, fmt.Errorf("reset session journal: %w", err)
		}
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			j.log.Warn("journal vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := j.Prune(ctx); err != nil {
		j.log.Warn("journal prune on start failed", slog.String("error", err.Error()))
	}

	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS generations (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    characters INTEGER NOT NULL,
    tones INTEGER NOT NULL,
    dropped INTEGER NOT NULL,
    status TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
`
	if _, err := j.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init journal schema: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Enabled reports whether entries are being stored.
func (j *Journal) Enabled() bool { return j != nil && j.db != nil }

// Record stores e, filling in the ID and timestamp when unset.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if !j.Enabled() {
		return e, nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.clock().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO generations(id, source, characters, tones, dropped, status, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Source, e.Characters, e.Tones, e.Dropped, e.Status, e.CreatedAt.UnixNano())
	if err != nil {
		return e, fmt.Errorf("record generation: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if !j.Enabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, source, characters, tones, dropped, status, created_at
		 FROM generations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.Source, &e.Characters, &e.Tones, &e.Dropped, &e.Status, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune applies retention_days and max_entries.
func (j *Journal) Prune(ctx context.Context) (err error) {
	if !j.Enabled() {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if j.cfg.RetentionDays > 0 {
		cutoff := j.clock().Add(-time.Duration(j.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM generations WHERE created_at < ?`, cutoff.UnixNano()); err != nil {
			return err
		}
	}
	if j.cfg.MaxEntries > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM generations WHERE id IN (
			SELECT id FROM generations ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, j.cfg.MaxEntries)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

