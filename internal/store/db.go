// Package store persists the transfer journal in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/justyntemme/multipane/internal/debug"
	"github.com/justyntemme/multipane/internal/logging"
)

// TransferRecord is one finished transfer as stored in the journal.
type TransferRecord struct {
	ID         string
	Pane       string
	Op         string
	Sources    []string
	DestDir    string
	Phase      string
	Message    string
	Succeeded  int
	Skipped    int
	Blocked    int
	Failed     int
	Bytes      uint64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the transfer ran.
func (r TransferRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type DB struct {
	conn *sql.DB
	path string
}

func NewDB() *DB {
	return &DB{}
}

// Open initializes the database connection and schema
func (d *DB) Open(dbPath string) error {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	// Transfers finish on their own goroutines; one connection serializes
	// the writers instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Performance Tuning
	// WAL mode allows simultaneous readers and writers
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return err
	}
	// Synchronous NORMAL is safe against app crashes, faster than FULL
	if _, err := db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return err
	}

	query := `
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		pane TEXT NOT NULL,
		op TEXT NOT NULL,
		sources TEXT NOT NULL,
		dest_dir TEXT NOT NULL,
		phase TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		succeeded INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		blocked INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		bytes INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS transfers_finished ON transfers(finished_at);
	`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return err
	}

	d.conn = db
	d.path = dbPath
	debug.Log(debug.STORE, "journal opened at %q", dbPath)
	return nil
}

// RecordTransfer inserts or replaces a finished transfer.
func (d *DB) RecordTransfer(rec TransferRecord) error {
	if d.conn == nil {
		return fmt.Errorf("journal not open")
	}
	sources, err := json.Marshal(rec.Sources)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(`INSERT OR REPLACE INTO transfers
		(id, pane, op, sources, dest_dir, phase, message, succeeded, skipped, blocked, failed, bytes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Pane, rec.Op, string(sources), rec.DestDir, rec.Phase, rec.Message,
		rec.Succeeded, rec.Skipped, rec.Blocked, rec.Failed, int64(rec.Bytes),
		rec.StartedAt.UnixMilli(), rec.FinishedAt.UnixMilli(),
	)
	if err != nil {
		logging.Error("Store Error", logging.String("op", "record"), logging.Err(err))
		return err
	}
	debug.Log(debug.STORE, "recorded transfer %s (%s)", rec.ID, rec.Phase)
	return nil
}

// History returns up to limit records, most recently finished first.
// limit <= 0 returns everything.
func (d *DB) History(limit int) ([]TransferRecord, error) {
	if d.conn == nil {
		return nil, fmt.Errorf("journal not open")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.conn.Query(`SELECT id, pane, op, sources, dest_dir, phase, message,
		succeeded, skipped, blocked, failed, bytes, started_at, finished_at
		FROM transfers ORDER BY finished_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransferRecord
	for rows.Next() {
		var (
			rec               TransferRecord
			sources           string
			bytes             int64
			started, finished int64
		)
		if err := rows.Scan(&rec.ID, &rec.Pane, &rec.Op, &sources, &rec.DestDir, &rec.Phase, &rec.Message,
			&rec.Succeeded, &rec.Skipped, &rec.Blocked, &rec.Failed, &bytes, &started, &finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(sources), &rec.Sources); err != nil {
			logging.Warn("Store Error", logging.String("op", "history"), logging.String("id", rec.ID), logging.Err(err))
		}
		rec.Bytes = uint64(bytes)
		rec.StartedAt = time.UnixMilli(started)
		rec.FinishedAt = time.UnixMilli(finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ClearHistory deletes every record.
func (d *DB) ClearHistory() error {
	if d.conn == nil {
		return fmt.Errorf("journal not open")
	}
	_, err := d.conn.Exec("DELETE FROM transfers")
	return err
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

func (d *DB) Close() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
}
