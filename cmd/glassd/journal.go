package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"glassd/internal/gesture"
)

// Journal is an append-only log of dispatched gestures.
type Journal struct {
	db *sql.DB
}

// GestureRecord is one journal row.
type GestureRecord struct {
	ID     int64        `json:"id"`
	Kind   gesture.Kind `json:"gesture"`
	At     time.Time    `json:"at"`
	Source string       `json:"source"`
}

const maxJournalLimit = 500

// OpenJournal opens (or creates) the SQLite journal at path.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", ExpandPath(path))
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA journal_mode=WAL;")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL;")

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS gestures (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  kind TEXT NOT NULL,
  at_unix_ms INTEGER NOT NULL,
  source TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_gestures_at ON gestures(at_unix_ms);
`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends rec and returns its row id.
func (j *Journal) Record(ctx context.Context, rec GestureRecord) (int64, error) {
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO gestures (kind, at_unix_ms, source) VALUES (?, ?, ?)`,
		rec.Kind.String(), rec.At.UnixMilli(), rec.Source)
	if err != nil {
		return 0, fmt.Errorf("record gesture: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]GestureRecord, error) {
	if limit <= 0 || limit > maxJournalLimit {
		limit = maxJournalLimit
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, at_unix_ms, source FROM gestures ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query gestures: %w", err)
	}
	defer rows.Close()

	out := make([]GestureRecord, 0, limit)
	for rows.Next() {
		var (
			rec  GestureRecord
			kind string
			ms   int64
		)
		if err := rows.Scan(&rec.ID, &kind, &ms, &rec.Source); err != nil {
			return nil, err
		}
		if rec.Kind, err = gesture.ParseKind(kind); err != nil {
			return nil, err
		}
		rec.At = time.UnixMilli(ms)
		out = append(out, rec)
	}
	return out, rows.Err()
}
