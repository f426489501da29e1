// Package audit is a write-only lifecycle event log backed by SQLite. It
// exists purely for operator history: it is never read back to
// reconstruct a live instance's state after a restart.
package audit

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/numdrassl/fleet"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Log appends lifecycle events to fleet.db.
type Log struct {
	db *sql.DB
}

// Open opens (creating if absent) dbPath and applies any pending
// migrations.
func Open(dbPath string) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL on audit db: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load audit migrations: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("audit migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("audit migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply audit migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// Record appends a single lifecycle event to the log. Failures are logged
// by the caller, never fatal to the orchestrator.
func (l *Log) Record(evt fleet.Event) error {
	kind, serverID, payload := encode(evt)
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	_, err = l.db.Exec(
		"INSERT INTO audit_events (recorded_at, kind, server_id, payload) VALUES (?, ?, ?, ?)",
		time.Now().UTC().Format(time.RFC3339Nano), kind, serverID, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func encode(evt fleet.Event) (kind, serverID string, payload any) {
	switch e := evt.(type) {
	case fleet.ServerSpawnEvent:
		return "ServerSpawn", e.ServerID, e
	case fleet.ServerShutdownEvent:
		return "ServerShutdown", e.ServerID, e
	case fleet.ServerHealthEvent:
		return "ServerHealth", e.ServerID, e
	default:
		return "Unknown", "", evt
	}
}

// Row is one persisted audit entry, as returned by Recent.
type Row struct {
	ID         int64
	RecordedAt time.Time
	Kind       string
	ServerID   string
	Payload    string
}

// Recent returns the n most recently recorded events, newest first.
func (l *Log) Recent(n int) ([]Row, error) {
	rows, err := l.db.Query(
		"SELECT id, recorded_at, kind, server_id, payload FROM audit_events ORDER BY id DESC LIMIT ?", n,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		var recordedAt string
		if err := rows.Scan(&r.ID, &recordedAt, &r.Kind, &r.ServerID, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		r.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
